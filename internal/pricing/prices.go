package pricing

import "math/big"

// Price is a bid/ask pair for one asset at a point in time. Valuation
// always uses the conservative side: Min for collateral, the
// direction-dependent side for PnL.
type Price struct {
	Min *big.Int
	Max *big.Int
}

// MarketPrices is the price snapshot for one evaluation. It is captured
// once per operation and passed through every sub-calculation so all
// numbers in one decision are mutually consistent.
type MarketPrices struct {
	IndexTokenPrice Price
	LongTokenPrice  Price
	ShortTokenPrice Price
}

// PnlPrice returns the index price side that values the position's PnL
// conservatively: the lower price for longs, the higher for shorts.
func (mp MarketPrices) PnlPrice(isLong bool) *big.Int {
	if isLong {
		return mp.IndexTokenPrice.Min
	}
	return mp.IndexTokenPrice.Max
}

// UsdToTokens converts a non-negative USD amount to token units at the
// given price, rounding down so the protocol never over-credits.
func UsdToTokens(usd, price *big.Int) *big.Int {
	return new(big.Int).Quo(usd, price)
}

// CollateralPrice returns the price pair for a collateral token given the
// market's long and short tokens.
func (mp MarketPrices) CollateralPrice(token, longToken, shortToken string) Price {
	if token == longToken {
		return mp.LongTokenPrice
	}
	if token == shortToken {
		return mp.ShortTokenPrice
	}
	return Price{Min: new(big.Int), Max: new(big.Int)}
}
