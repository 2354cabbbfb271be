package pricing_test

import (
	"math/big"
	"testing"

	"MarginCore/internal/fixed"
	"MarginCore/internal/pricing"
)

func TestCapImpact_PositiveClampedToZero(t *testing.T) {
	got := pricing.CapImpactForLiquidation(big.NewInt(500), big.NewInt(1000), fixed.Precision)
	if got.Sign() != 0 {
		t.Errorf("positive impact should clamp to zero, got %s", got)
	}
}

func TestCapImpact_SmallNegativePassesThrough(t *testing.T) {
	// Floor at 10% of 1000 = -100; -30 is inside the floor.
	tenPct := new(big.Int).Quo(fixed.Precision, big.NewInt(10))
	got := pricing.CapImpactForLiquidation(big.NewInt(-30), big.NewInt(1000), tenPct)
	if got.Int64() != -30 {
		t.Errorf("got %s, want -30", got)
	}
}

func TestCapImpact_LargeNegativeFloored(t *testing.T) {
	tenPct := new(big.Int).Quo(fixed.Precision, big.NewInt(10))
	got := pricing.CapImpactForLiquidation(big.NewInt(-5000), big.NewInt(1000), tenPct)
	if got.Int64() != -100 {
		t.Errorf("got %s, want -100", got)
	}
}

func TestCapImpact_ZeroFactorNeutralizesImpact(t *testing.T) {
	got := pricing.CapImpactForLiquidation(big.NewInt(-5000), big.NewInt(1000), new(big.Int))
	if got.Sign() != 0 {
		t.Errorf("zero factor should floor impact at zero, got %s", got)
	}
}

func TestCapImpact_ResultNeverBelowFloorNorAboveZero(t *testing.T) {
	tenPct := new(big.Int).Quo(fixed.Precision, big.NewInt(10))
	size := big.NewInt(1000)
	floor := int64(-100)

	for _, raw := range []int64{-1_000_000, -101, -100, -99, -1, 0, 1, 1_000_000} {
		got := pricing.CapImpactForLiquidation(big.NewInt(raw), size, tenPct)
		if got.Int64() < floor || got.Int64() > 0 {
			t.Errorf("raw %d: capped %s outside [%d, 0]", raw, got, floor)
		}
	}
}
