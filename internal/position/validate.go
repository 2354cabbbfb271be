package position

import (
	"fmt"

	"MarginCore/internal/fixed"
	"MarginCore/internal/market"
	"MarginCore/internal/pricing"
	"MarginCore/internal/store"
)

// ValidateNonEmpty fails with ErrEmptyPosition unless sizeInUsd,
// sizeInTokens and collateralAmount are all positive. A violation is
// terminal for the operation, never a warning.
func ValidateNonEmpty(p *Position) error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: size_usd=%s size_tokens=%s collateral=%s",
			ErrEmptyPosition, p.SizeInUsd, p.SizeInTokens, p.CollateralAmount)
	}
	return nil
}

// Validate gates a position before it is persisted: positions with zero
// size are rejected outright, and anything immediately liquidatable must
// not be created. Side-effect free; a nil return means "passed".
func (e *Evaluator) Validate(s store.Getter, p *Position, mkt market.Market, prices pricing.MarketPrices) error {
	if fixed.Zero(p.SizeInUsd) || fixed.Zero(p.SizeInTokens) {
		return fmt.Errorf("%w: size_usd=%s size_tokens=%s", ErrZeroPositionSize, p.SizeInUsd, p.SizeInTokens)
	}

	liquidatable, err := e.IsLiquidatable(s, p, mkt, prices)
	if err != nil {
		return err
	}
	if liquidatable {
		return fmt.Errorf("%w: account=%s market=%s", ErrLiquidatablePosition, p.Account, p.Market)
	}

	return nil
}
