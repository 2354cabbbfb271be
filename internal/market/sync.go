package market

import (
	"fmt"
	"math/big"

	"MarginCore/internal/fixed"
	"MarginCore/internal/pricing"
	"MarginCore/internal/store"
)

// AdvanceFundingAndBorrowing advances the market's cumulative
// funding-per-size and borrowing-factor accumulators to now (unix
// seconds). It must run before any fee or PnL computation in the same
// operation; fees computed against stale accumulators charge positions at
// stale rates.
//
// now is a versioned input from the caller. The core never reads the
// wall clock.
func AdvanceFundingAndBorrowing(s store.Store, mkt Market, prices pricing.MarketPrices, now int64) error {
	if err := advanceFunding(s, mkt, prices, now); err != nil {
		return fmt.Errorf("advance funding for %s: %w", mkt.MarketToken, err)
	}
	for _, isLong := range []bool{true, false} {
		if err := advanceBorrowing(s, mkt, isLong, now); err != nil {
			return fmt.Errorf("advance borrowing for %s: %w", mkt.MarketToken, err)
		}
	}
	return nil
}

// advanceFunding accrues funding based on the open-interest skew. The side
// with the larger open interest pays; the other side accrues claimable
// funding in both collateral tokens.
func advanceFunding(s store.Store, mkt Market, prices pricing.MarketPrices, now int64) error {
	updatedAt := s.GetInt(store.FundingUpdatedAtKey(mkt.MarketToken)).Int64()
	s.SetInt(store.FundingUpdatedAtKey(mkt.MarketToken), big.NewInt(now))

	if updatedAt == 0 {
		// First touch: stamp the clock, nothing to accrue.
		return nil
	}
	if now < updatedAt {
		return fmt.Errorf("time went backwards: updated_at=%d now=%d", updatedAt, now)
	}
	elapsed := now - updatedAt
	if elapsed == 0 {
		return nil
	}

	longOI := openInterestUsd(s, mkt, true)
	shortOI := openInterestUsd(s, mkt, false)
	totalOI := fixed.Add(longOI, shortOI)
	if totalOI.Sign() == 0 {
		return nil
	}

	skew := fixed.Sub(longOI, shortOI)
	if skew.Sign() == 0 {
		return nil
	}
	longsPay := skew.Sign() > 0

	// Per-size funding delta: per-second factor scaled by skew share and
	// elapsed time. Precision-scaled USD per unit of USD size.
	factorPerSecond := s.GetInt(store.FundingFactorPerSecondKey(mkt.MarketToken))
	skewFactor := fixed.ToFactor(new(big.Int).Abs(skew), totalOI)
	perSizeDelta := fixed.ApplyFactor(new(big.Int).Mul(factorPerSecond, big.NewInt(elapsed)), skewFactor)
	if perSizeDelta.Sign() == 0 {
		return nil
	}

	// The paying side owes perSizeDelta regardless of which collateral
	// token backs each position: the per-token keys are alternatives keyed
	// by a position's own collateral token, never summed.
	for _, token := range []string{mkt.LongToken, mkt.ShortToken} {
		store.AddInt(s, store.FundingFeePerSizeKey(mkt.MarketToken, token, longsPay), perSizeDelta)
	}

	// The receiving side accrues claimable token amounts, half in each
	// collateral token, converted at the max price so the protocol never
	// over-credits.
	half := new(big.Int).Quo(perSizeDelta, big.NewInt(2))
	crediting := []struct {
		token string
		price pricing.Price
	}{
		{mkt.LongToken, prices.LongTokenPrice},
		{mkt.ShortToken, prices.ShortTokenPrice},
	}
	for _, c := range crediting {
		if fixed.Zero(c.price.Max) {
			return fmt.Errorf("zero max price for %s", c.token)
		}
		tokenPerSize := new(big.Int).Quo(half, c.price.Max)
		store.AddInt(s, store.ClaimableFundingPerSizeKey(mkt.MarketToken, c.token, !longsPay), tokenPerSize)
	}

	return nil
}

// advanceBorrowing accrues the cumulative borrowing factor for one side.
func advanceBorrowing(s store.Store, mkt Market, isLong bool, now int64) error {
	key := store.BorrowingUpdatedAtKey(mkt.MarketToken, isLong)
	updatedAt := s.GetInt(key).Int64()
	s.SetInt(key, big.NewInt(now))

	if updatedAt == 0 {
		return nil
	}
	if now < updatedAt {
		return fmt.Errorf("time went backwards: updated_at=%d now=%d", updatedAt, now)
	}
	elapsed := now - updatedAt
	if elapsed == 0 {
		return nil
	}

	perSecond := s.GetInt(store.BorrowingFactorPerSecondKey(mkt.MarketToken, isLong))
	delta := new(big.Int).Mul(perSecond, big.NewInt(elapsed))
	store.AddInt(s, store.CumulativeBorrowingFactorKey(mkt.MarketToken, isLong), delta)

	return nil
}

// ApplyBorrowingDelta replaces a position's contribution to the market's
// total-borrowing ledger: the prior contribution (pre-mutation size and
// factor) is removed and the new one inserted. It must run exactly once
// per mutation, strictly after AdvanceFundingAndBorrowing, and must be
// given the position's pre-mutation fields: reading them after the
// position record is updated charges the position at a stale rate.
func ApplyBorrowingDelta(
	s store.Store,
	mkt Market,
	isLong bool,
	prevSizeInUsd, prevBorrowingFactor *big.Int,
	nextSizeInUsd, nextBorrowingFactor *big.Int,
) {
	key := store.TotalBorrowingKey(mkt.MarketToken, isLong)
	total := s.GetInt(key)
	total.Sub(total, fixed.ApplyFactor(prevSizeInUsd, prevBorrowingFactor))
	total.Add(total, fixed.ApplyFactor(nextSizeInUsd, nextBorrowingFactor))
	s.SetInt(key, total)
}

// openInterestUsd sums one side's USD open interest across both
// collateral tokens.
func openInterestUsd(s store.Getter, mkt Market, isLong bool) *big.Int {
	total := s.GetInt(store.OpenInterestUsdKey(mkt.MarketToken, mkt.LongToken, isLong))
	total.Add(total, s.GetInt(store.OpenInterestUsdKey(mkt.MarketToken, mkt.ShortToken, isLong)))
	return total
}
