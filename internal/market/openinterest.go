package market

import (
	"math/big"

	"MarginCore/internal/store"
)

// ApplyOpenInterestDelta applies a signed USD delta and the matching
// signed token delta to one side's open-interest ledgers, keyed by
// (market, collateral token, direction).
//
// The token delta must be the sizeDeltaInTokens produced by the valuation
// for this same operation; recomputing it after the position record has
// changed would desynchronize the two ledgers. A zero USD delta is a
// strict no-op regardless of the token delta.
func ApplyOpenInterestDelta(
	s store.Store,
	mkt Market,
	collateralToken string,
	isLong bool,
	sizeDeltaUsd, sizeDeltaTokens *big.Int,
) {
	if sizeDeltaUsd.Sign() == 0 {
		return
	}

	store.AddInt(s, store.OpenInterestUsdKey(mkt.MarketToken, collateralToken, isLong), sizeDeltaUsd)
	store.AddInt(s, store.OpenInterestTokensKey(mkt.MarketToken, collateralToken, isLong), sizeDeltaTokens)
}

// OpenInterestUsd returns one side's USD open interest for one collateral
// token.
func OpenInterestUsd(s store.Getter, mkt Market, collateralToken string, isLong bool) *big.Int {
	return s.GetInt(store.OpenInterestUsdKey(mkt.MarketToken, collateralToken, isLong))
}

// OpenInterestTokens returns one side's token-denominated open interest
// for one collateral token.
func OpenInterestTokens(s store.Getter, mkt Market, collateralToken string, isLong bool) *big.Int {
	return s.GetInt(store.OpenInterestTokensKey(mkt.MarketToken, collateralToken, isLong))
}
