package engine

import (
	"MarginCore/internal/events"
	"MarginCore/internal/market"
	"MarginCore/internal/position"
	"MarginCore/internal/pricing"
	"MarginCore/internal/store"
)

// ScanLiquidatable evaluates every open position in mkt against the
// given prices and returns the position keys that fail the margin check.
// Read-only: nothing in the store or the position set changes. Flagged
// positions are published so a keeper can submit the closing mutations.
func (e *Engine) ScanLiquidatable(mkt market.Market, prices pricing.MarketPrices) ([]position.Key, error) {
	var flagged []position.Key

	for _, p := range e.positions.All() {
		if p.Market != mkt.MarketToken {
			continue
		}
		liq, err := e.evaluator.IsLiquidatable(e.store, p, mkt, prices)
		if err != nil {
			return nil, err
		}
		if e.metrics != nil {
			e.metrics.LiquidationChecks.WithLabelValues(mkt.MarketToken, checkResult(liq)).Inc()
		}
		if !liq {
			continue
		}

		flagged = append(flagged, p.Key())
		if e.metrics != nil {
			e.metrics.LiquidatableFlagged.WithLabelValues(mkt.MarketToken).Inc()
		}
		e.sink.Publish(events.Notification{
			Kind:    events.KindPositionLiquidatableFlag,
			Market:  p.Market,
			Token:   p.CollateralToken,
			Account: p.Account,
			IsLong:  p.IsLong,
		}.WithAmount(p.SizeInUsd))

		e.logger.Warn().
			Str("account", p.Account.String()).
			Str("market", p.Market).
			Bool("is_long", p.IsLong).
			Msg("position below maintenance margin")
	}

	return flagged, nil
}

func checkResult(liquidatable bool) string {
	if liquidatable {
		return "liquidatable"
	}
	return "healthy"
}

// Positions exposes the live position set in deterministic key order for
// read-only callers (snapshots, queries). Callers must not mutate the
// returned records.
func (e *Engine) Positions() []*position.Position {
	return e.positions.All()
}

// Sequence returns the count of applied mutations since construction.
func (e *Engine) Sequence() int64 {
	return e.sequence
}

// Store exposes the backing store for read-only callers.
func (e *Engine) Store() *store.MemStore {
	return e.store
}
