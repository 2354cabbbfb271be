package ingestion

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"MarginCore/internal/engine"
	"MarginCore/internal/observability"
	"MarginCore/internal/persistence"
)

// Runner drains the subscriber channel and applies messages to the
// engine one at a time. This loop is the single writer: everything
// downstream of it runs without locks.
type Runner struct {
	engine *engine.Engine
	in     <-chan RawMessage
	logger zerolog.Logger

	snapshotEvery int64
	snapshots     chan<- *persistence.SnapshotData
	applied       int64
}

func NewRunner(eng *engine.Engine, in <-chan RawMessage) *Runner {
	return &Runner{
		engine: eng,
		in:     in,
		logger: observability.NewLogger("runner"),
	}
}

// WithSnapshots makes the runner capture core state every `every`
// applied mutations and hand it to the snapshot worker. The capture
// happens on this goroutine; only the immutable SnapshotData crosses
// over. A full channel skips the snapshot rather than stall ingestion.
func (r *Runner) WithSnapshots(every int64, out chan<- *persistence.SnapshotData) *Runner {
	r.snapshotEvery = every
	r.snapshots = out
	return r
}

// Run processes messages until ctx is cancelled or the channel closes.
//
// Malformed payloads are ACKed and dropped: redelivery cannot fix a bad
// message. Rejected mutations (liquidatable, insufficient collateral)
// are also ACKed; the producer learns the outcome from the event stream.
// Only transient engine errors would warrant a NAK, and the engine has
// none: every error is deterministic for a given payload and state.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-r.in:
			if !ok {
				return nil
			}
			r.dispatch(msg)
		}
	}
}

func (r *Runner) dispatch(msg RawMessage) {
	switch {
	case strings.HasPrefix(msg.Subject, "margin.mutations."):
		r.handleMutation(msg)
	case strings.HasPrefix(msg.Subject, "margin.params."):
		r.handleParams(msg)
	default:
		r.logger.Warn().Str("subject", msg.Subject).Msg("unroutable subject")
		msg.Ack()
	}
}

func (r *Runner) handleMutation(msg RawMessage) {
	req, err := ParseMutation(msg.Data)
	if err != nil {
		r.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed mutation dropped")
		msg.Ack()
		return
	}

	if _, err := r.engine.ProcessMutation(req); err != nil {
		r.logger.Info().
			Err(err).
			Str("account", req.Account.String()).
			Str("market", req.Market.MarketToken).
			Msg("mutation rejected")
		msg.Ack()
		return
	}
	msg.Ack()

	r.applied++
	if r.snapshotEvery > 0 && r.applied%r.snapshotEvery == 0 {
		snap := persistence.Capture(r.engine.Sequence(), r.engine.Store().Snapshot(), r.engine.Positions())
		select {
		case r.snapshots <- snap:
		default:
			r.logger.Warn().Int64("sequence", snap.Sequence).Msg("snapshot queue full, skipped")
		}
	}
}

func (r *Runner) handleParams(msg RawMessage) {
	params, err := ParseParams(msg.Data)
	if err != nil {
		r.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("malformed params dropped")
		msg.Ack()
		return
	}

	r.engine.ApplyParams(params)
	msg.Ack()
}
