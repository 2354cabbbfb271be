package position

import (
	"fmt"
	"math/big"

	"MarginCore/internal/fixed"
	"MarginCore/internal/market"
	"MarginCore/internal/pricing"
	"MarginCore/internal/store"
)

// ImpactEstimator supplies the raw signed price-impact estimate for fully
// closing a position. The swap/pricing internals live outside the core;
// this is the narrow surface the evaluator consumes.
type ImpactEstimator interface {
	FullCloseImpactUsd(mkt market.Market, sizeInUsd *big.Int, isLong bool) *big.Int
}

// ZeroImpact assumes no price impact. Useful default for tests and for
// deployments without an impact oracle.
type ZeroImpact struct{}

func (ZeroImpact) FullCloseImpactUsd(market.Market, *big.Int, bool) *big.Int {
	return new(big.Int)
}

// Evaluator decides position solvency. It holds read-only collaborators
// and never mutates state.
type Evaluator struct {
	resolver pricing.AffiliateResolver
	impact   ImpactEstimator
}

func NewEvaluator(resolver pricing.AffiliateResolver, impact ImpactEstimator) *Evaluator {
	if impact == nil {
		impact = ZeroImpact{}
	}
	return &Evaluator{resolver: resolver, impact: impact}
}

// IsLiquidatable reports whether the position's remaining collateral after
// a hypothetical full close would breach the minimum-collateral floor or
// the maximum-leverage cap. All prices come from the one MarketPrices
// snapshot; nothing is re-fetched mid-decision.
func (e *Evaluator) IsLiquidatable(s store.Getter, p *Position, mkt market.Market, prices pricing.MarketPrices) (bool, error) {
	pnlUsd, _ := Pnl(p, p.SizeInUsd, prices.PnlPrice(p.IsLong))

	collateralPrice := prices.CollateralPrice(p.CollateralToken, mkt.LongToken, mkt.ShortToken)
	collateralUsd := new(big.Int).Mul(p.CollateralAmount, collateralPrice.Min)

	rawImpact := e.impact.FullCloseImpactUsd(mkt, p.SizeInUsd, p.IsLong)
	maxImpactFactor := s.GetInt(store.MaxPositionImpactFactorForLiquidationsKey(mkt.MarketToken))
	priceImpactUsd := pricing.CapImpactForLiquidation(rawImpact, p.SizeInUsd, maxImpactFactor)

	fees, err := pricing.ComputeFees(s, e.resolver, pricing.FeeInputs{
		Account:                   p.Account,
		Market:                    p.Market,
		CollateralToken:           p.CollateralToken,
		IsLong:                    p.IsLong,
		SizeInUsd:                 p.SizeInUsd,
		SizeDeltaUsd:              p.SizeInUsd, // Full close
		BorrowingFactor:           p.BorrowingFactor,
		FundingFeeAmountPerSize:   p.FundingFeeAmountPerSize,
		ClaimableLongPerSizeSnap:  p.ClaimableLongTokenPerSize,
		ClaimableShortPerSizeSnap: p.ClaimableShortTokenPerSize,
		CollateralTokenPrice:      collateralPrice,
		LongToken:                 mkt.LongToken,
		ShortToken:                mkt.ShortToken,
	})
	if err != nil {
		return false, fmt.Errorf("liquidation check: %w", err)
	}

	remainingCollateralUsd := fixed.Add(collateralUsd, pnlUsd)
	remainingCollateralUsd.Add(remainingCollateralUsd, priceImpactUsd)
	remainingCollateralUsd.Sub(remainingCollateralUsd, fees.TotalNetCostUsd)

	minCollateralUsd := s.GetInt(store.MinCollateralUsdKey)
	if remainingCollateralUsd.Cmp(minCollateralUsd) < 0 || remainingCollateralUsd.Sign() <= 0 {
		return true, nil
	}

	// Leverage check: only meaningful with positive remaining collateral,
	// which the floor check above guarantees.
	maxLeverage := s.GetInt(store.MaxLeverageKey)
	if maxLeverage.Sign() > 0 {
		leverage := fixed.ToFactor(p.SizeInUsd, remainingCollateralUsd)
		if leverage.Cmp(maxLeverage) > 0 {
			return true, nil
		}
	}

	return false, nil
}
