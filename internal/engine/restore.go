package engine

import (
	"math/big"

	"MarginCore/internal/position"
)

// Restore replaces the engine's state with a recovered snapshot. Must be
// called before ingestion starts; the engine gives no protection against
// restoring under live traffic.
func (e *Engine) Restore(ledger map[string]*big.Int, positions []*position.Position, sequence int64) {
	e.store.Restore(ledger)
	e.positions = position.NewManager()
	for _, p := range positions {
		e.positions.Set(p)
	}
	e.sequence = sequence

	e.logger.Info().
		Int64("sequence", sequence).
		Int("positions", len(positions)).
		Int("ledger_keys", len(ledger)).
		Msg("state restored from snapshot")
}
