package engine

import (
	"math/big"

	"MarginCore/internal/store"
)

// ParamSet is one risk-parameter update. Nil fields are left unchanged.
// Per-market factors apply to Market; MaxLeverage and MinCollateralUsd
// are global.
type ParamSet struct {
	Market string

	MaxLeverage      *big.Int
	MinCollateralUsd *big.Int

	PositionFeeFactor             *big.Int
	MaxImpactFactorLiquidations   *big.Int
	FundingFactorPerSecond        *big.Int
	BorrowingFactorPerSecondLong  *big.Int
	BorrowingFactorPerSecondShort *big.Int
}

// ApplyParams writes a parameter update into the store. Parameter
// updates take effect for the next operation; they never retroactively
// reprice accrued fees.
func (e *Engine) ApplyParams(p ParamSet) {
	set := func(key string, v *big.Int) {
		if v != nil {
			e.store.SetInt(key, v)
		}
	}

	set(store.MaxLeverageKey, p.MaxLeverage)
	set(store.MinCollateralUsdKey, p.MinCollateralUsd)
	set(store.PositionFeeFactorKey(p.Market), p.PositionFeeFactor)
	set(store.MaxPositionImpactFactorForLiquidationsKey(p.Market), p.MaxImpactFactorLiquidations)
	set(store.FundingFactorPerSecondKey(p.Market), p.FundingFactorPerSecond)
	set(store.BorrowingFactorPerSecondKey(p.Market, true), p.BorrowingFactorPerSecondLong)
	set(store.BorrowingFactorPerSecondKey(p.Market, false), p.BorrowingFactorPerSecondShort)

	e.logger.Info().Str("market", p.Market).Msg("risk parameters updated")
}
