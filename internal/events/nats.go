package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Subjects follow the pattern: margin.core.events.{kind}.{market}
const streamName = "MARGIN_CORE_EVENTS"

// NATSSink publishes notifications to NATS JetStream. Failures are logged
// and dropped; downstream consumers that need a complete feed should read
// the operation log instead.
type NATSSink struct {
	js      jetstream.JetStream
	logger  zerolog.Logger
	timeout time.Duration
}

func NewNATSSink(js jetstream.JetStream, logger zerolog.Logger) *NATSSink {
	return &NATSSink{
		js:      js,
		logger:  logger,
		timeout: 2 * time.Second,
	}
}

func (s *NATSSink) Publish(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Warn().Err(err).Str("kind", string(n.Kind)).Msg("marshal notification")
		return
	}

	subject := fmt.Sprintf("margin.core.events.%s", n.Kind)
	if n.Market != "" {
		subject = fmt.Sprintf("%s.%s", subject, n.Market)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.js.Publish(ctx, subject, data); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("notification publish failed")
	}
}

// EnsureStream creates the outbound notification stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{"margin.core.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", streamName, err)
	}
	return nil
}
