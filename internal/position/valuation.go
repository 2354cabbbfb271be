package position

import (
	"fmt"
	"math/big"

	"MarginCore/internal/fixed"
)

// Pnl computes the signed PnL in USD for closing sizeDeltaUsd of the
// position at indexTokenPrice, and the token-denominated size attributed
// to that close.
//
// A full close (sizeDeltaUsd == SizeInUsd) attributes exactly SizeInTokens
// so no rounding error can strand dust. A partial close rounds the token
// delta in the protocol's favor: up for longs (the trader gets fewer
// tokens attributed), down for shorts. The bias is the same; the
// direction flips with how short exposure is tokenized. Do not collapse
// the two into one rounding rule.
//
// The caller guarantees SizeInTokens > 0 (non-empty-position invariant).
func Pnl(p *Position, sizeDeltaUsd, indexTokenPrice *big.Int) (pnlUsd, sizeDeltaInTokens *big.Int) {
	if fixed.Zero(p.SizeInTokens) {
		panic(fmt.Sprintf("FATAL: valuation of position with zero token size (account=%s market=%s)", p.Account, p.Market))
	}

	positionValue := new(big.Int).Mul(p.SizeInTokens, indexTokenPrice)

	var totalPnl *big.Int
	if p.IsLong {
		totalPnl = fixed.Sub(positionValue, p.SizeInUsd)
	} else {
		totalPnl = fixed.Sub(p.SizeInUsd, positionValue)
	}

	if sizeDeltaUsd.Cmp(p.SizeInUsd) == 0 {
		sizeDeltaInTokens = fixed.Clone(p.SizeInTokens)
	} else if p.IsLong {
		sizeDeltaInTokens = fixed.MulDivCeil(p.SizeInTokens, sizeDeltaUsd, p.SizeInUsd)
	} else {
		sizeDeltaInTokens = fixed.MulDivFloor(p.SizeInTokens, sizeDeltaUsd, p.SizeInUsd)
	}

	pnlUsd = fixed.MulDivTrunc(totalPnl, sizeDeltaInTokens, p.SizeInTokens)

	return pnlUsd, sizeDeltaInTokens
}
