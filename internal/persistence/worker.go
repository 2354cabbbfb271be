package persistence

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"MarginCore/internal/observability"
	"MarginCore/internal/position"
)

// Capture builds a snapshot from the core's current state. It must run
// on the goroutine that owns the core; only the resulting SnapshotData
// crosses to the worker.
func Capture(sequence int64, ledger map[string]*big.Int, positions []*position.Position) *SnapshotData {
	rows := make([]PositionRow, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, EncodePosition(p))
	}
	return &SnapshotData{
		Sequence:  sequence,
		Ledger:    EncodeLedger(ledger),
		Positions: rows,
		CreatedAt: time.Now().UTC(),
	}
}

// Worker drains the snapshot channel and writes to Postgres on its own
// goroutine. The core never blocks on the database: when the channel is
// full the producer skips that snapshot and a later one supersedes it.
type Worker struct {
	store    *SnapshotStore
	in       <-chan *SnapshotData
	keep     int
	metrics  *observability.Metrics
	logger   zerolog.Logger
	lastSeen atomic.Int64
}

func NewWorker(store *SnapshotStore, in <-chan *SnapshotData, keep int, metrics *observability.Metrics) *Worker {
	if keep <= 0 {
		keep = 5
	}
	return &Worker{
		store:   store,
		in:      in,
		keep:    keep,
		metrics: metrics,
		logger:  observability.NewLogger("snapshot-worker"),
	}
}

// LastSequence returns the sequence of the most recent snapshot written
// this process lifetime. Safe to call from any goroutine.
func (w *Worker) LastSequence() int64 {
	return w.lastSeen.Load()
}

// Run writes snapshots until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case snap, ok := <-w.in:
			if !ok {
				return nil
			}
			w.save(ctx, snap)
		}
	}
}

// save retries with exponential backoff until the write succeeds or ctx
// is cancelled. Snapshots are an optimization for restart time, not a
// durability guarantee, so giving up on shutdown is fine.
func (w *Worker) save(ctx context.Context, snap *SnapshotData) {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := w.store.Save(ctx, snap)
		if err == nil {
			w.lastSeen.Store(snap.Sequence)
			if w.metrics != nil {
				w.metrics.SnapshotTaken.Inc()
				w.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
				w.metrics.SnapshotLastSeq.Set(float64(snap.Sequence))
			}
			w.logger.Info().Int64("sequence", snap.Sequence).Msg("snapshot saved")

			if err := w.store.Prune(ctx, w.keep); err != nil {
				w.logger.Warn().Err(err).Msg("snapshot prune failed")
			}
			return
		}

		w.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Int64("sequence", snap.Sequence).
			Msg("snapshot write failed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
