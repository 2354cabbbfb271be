package store

import (
	"fmt"

	"github.com/google/uuid"
)

// Store keys are path strings derived deterministically from the entities
// they describe. Every component derives keys through these helpers so the
// same (market, token, direction) tuple always lands on the same entry.

// Global risk parameters.
const (
	MaxLeverageKey      = "risk:max_leverage"       // Precision-scaled ratio
	MinCollateralUsdKey = "risk:min_collateral_usd" // Precision-scaled USD
)

func dirName(isLong bool) string {
	if isLong {
		return "long"
	}
	return "short"
}

// MaxPositionImpactFactorForLiquidationsKey bounds the negative price
// impact a liquidation check may assume, as a factor of position size.
func MaxPositionImpactFactorForLiquidationsKey(market string) string {
	return fmt.Sprintf("market:%s:max_position_impact_factor_liquidations", market)
}

// PositionFeeFactorKey is the fee factor applied to a size delta.
func PositionFeeFactorKey(market string) string {
	return fmt.Sprintf("market:%s:position_fee_factor", market)
}

// FundingFactorPerSecondKey scales the open-interest skew into a
// per-second funding rate.
func FundingFactorPerSecondKey(market string) string {
	return fmt.Sprintf("market:%s:funding_factor_per_second", market)
}

// BorrowingFactorPerSecondKey is the per-second borrowing rate for one
// side of a market.
func BorrowingFactorPerSecondKey(market string, isLong bool) string {
	return fmt.Sprintf("market:%s:borrowing_factor_per_second:%s", market, dirName(isLong))
}

// FundingFeePerSizeKey is the cumulative funding owed per unit of position
// size, per collateral token and direction.
func FundingFeePerSizeKey(market, token string, isLong bool) string {
	return fmt.Sprintf("market:%s:funding_fee_per_size:%s:%s", market, token, dirName(isLong))
}

// ClaimableFundingPerSizeKey is the cumulative claimable funding per unit
// of position size, per collateral token and direction.
func ClaimableFundingPerSizeKey(market, token string, isLong bool) string {
	return fmt.Sprintf("market:%s:claimable_funding_per_size:%s:%s", market, token, dirName(isLong))
}

// CumulativeBorrowingFactorKey is the cumulative borrowing factor for one
// side of a market.
func CumulativeBorrowingFactorKey(market string, isLong bool) string {
	return fmt.Sprintf("market:%s:cumulative_borrowing_factor:%s", market, dirName(isLong))
}

// FundingUpdatedAtKey records the unix second of the last funding advance.
func FundingUpdatedAtKey(market string) string {
	return fmt.Sprintf("market:%s:funding_updated_at", market)
}

// BorrowingUpdatedAtKey records the unix second of the last borrowing
// advance for one side of a market.
func BorrowingUpdatedAtKey(market string, isLong bool) string {
	return fmt.Sprintf("market:%s:borrowing_updated_at:%s", market, dirName(isLong))
}

// OpenInterestUsdKey is the USD open-interest ledger entry for
// (market, collateral token, direction).
func OpenInterestUsdKey(market, token string, isLong bool) string {
	return fmt.Sprintf("market:%s:open_interest_usd:%s:%s", market, token, dirName(isLong))
}

// OpenInterestTokensKey is the token-denominated open-interest ledger
// entry for (market, collateral token, direction).
func OpenInterestTokensKey(market, token string, isLong bool) string {
	return fmt.Sprintf("market:%s:open_interest_tokens:%s:%s", market, token, dirName(isLong))
}

// TotalBorrowingKey is the sum over one side's positions of
// size * cumulative borrowing factor at entry.
func TotalBorrowingKey(market string, isLong bool) string {
	return fmt.Sprintf("market:%s:total_borrowing:%s", market, dirName(isLong))
}

// ClaimableFundingKey is an account's claimable funding balance for one
// token in one market.
func ClaimableFundingKey(market, token string, account uuid.UUID) string {
	return fmt.Sprintf("claimable:funding:%s:%s:%s", market, token, account)
}

// AffiliateRewardKey is an affiliate's claimable reward balance for one
// token in one market.
func AffiliateRewardKey(market, token string, affiliate uuid.UUID) string {
	return fmt.Sprintf("claimable:affiliate_reward:%s:%s:%s", market, token, affiliate)
}
