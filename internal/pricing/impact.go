package pricing

import (
	"math/big"

	"MarginCore/internal/fixed"
)

// CapImpactForLiquidation clamps a raw signed price-impact estimate for a
// full close into the range usable by solvency math.
//
// A positive (favorable) impact is clamped to zero: a position that looks
// safe only because of a favorable impact estimate must not be allowed to
// exist, since the estimate can evaporate. A negative impact is clamped to
// -(sizeInUsd * maxImpactFactor / Precision) so one extreme imbalance
// reading cannot cascade-liquidate a market.
//
// The result is never persisted; it feeds the liquidation evaluator only.
func CapImpactForLiquidation(rawImpactUsd, sizeInUsd, maxImpactFactor *big.Int) *big.Int {
	if rawImpactUsd.Sign() > 0 {
		return new(big.Int)
	}

	floor := fixed.Neg(fixed.ApplyFactor(sizeInUsd, maxImpactFactor))
	if rawImpactUsd.Cmp(floor) < 0 {
		return floor
	}
	return fixed.Clone(rawImpactUsd)
}
