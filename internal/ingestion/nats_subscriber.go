// Package ingestion is the inbound shell around the single-threaded
// margin core. It subscribes to NATS JetStream subjects, parses JSON
// payloads into typed requests, and feeds them to the engine one at a
// time. All concurrency lives here; the core never sees a goroutine.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"MarginCore/internal/observability"
)

// Stream and subject layout. Mutations and parameter updates are kept on
// separate streams so a burst of price-keyed mutations cannot starve a
// risk-parameter change.
const (
	MutationStream  = "MARGIN_MUTATIONS"
	MutationSubject = "margin.mutations.>"

	ParamStream  = "MARGIN_PARAMS"
	ParamSubject = "margin.params.>"
)

// RawMessage is a parsed-but-untyped message off NATS, ready for the
// runner to convert into a typed request.
type RawMessage struct {
	Subject  string
	Data     []byte
	Received time.Time
	Ack      func()
	Nak      func()
}

// SubjectConfig binds one durable consumer to one subject.
type SubjectConfig struct {
	Subject      string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard consumer layout.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: MutationSubject, ConsumerName: "margin-mutations", StreamName: MutationStream},
		{Subject: ParamSubject, ConsumerName: "margin-params", StreamName: ParamStream},
	}
}

// Subscriber owns the JetStream consumers and forwards messages to a
// single channel, preserving per-stream delivery order.
type Subscriber struct {
	js        jetstream.JetStream
	out       chan<- RawMessage
	consumers []jetstream.ConsumeContext
}

func NewSubscriber(js jetstream.JetStream, out chan<- RawMessage) *Subscriber {
	return &Subscriber{
		js:  js,
		out: out,
	}
}

// Subscribe creates durable JetStream consumers for every configured
// subject. Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (s *Subscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	logger := observability.NewLogger("ingestion")

	for _, cfg := range subjects {
		consumer, err := s.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		cc, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawMessage{
				Subject:  msg.Subject(),
				Data:     msg.Data(),
				Received: time.Now(),
				Ack:      func() { msg.Ack() },
				Nak:      func() { msg.Nak() },
			}

			select {
			case s.out <- raw:
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		s.consumers = append(s.consumers, cc)
		logger.Info().Str("subject", cfg.Subject).Str("consumer", cfg.ConsumerName).Msg("subscribed")
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if absent.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	logger := observability.NewLogger("ingestion")

	streams := []jetstream.StreamConfig{
		{
			Name:      MutationStream,
			Subjects:  []string{"margin.mutations.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      ParamStream,
			Subjects:  []string{"margin.params.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		logger.Info().Str("stream", cfg.Name).Msg("stream ensured")
	}

	return nil
}

// Stop stops all consumers.
func (s *Subscriber) Stop() {
	for _, cc := range s.consumers {
		cc.Stop()
	}
	logger := observability.NewLogger("ingestion")
	logger.Info().Msg("subscribers stopped")
}

// Connect establishes a NATS connection and returns a JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	logger := observability.NewLogger("ingestion")

	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
