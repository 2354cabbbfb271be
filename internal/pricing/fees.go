package pricing

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"MarginCore/internal/fixed"
	"MarginCore/internal/store"
)

// FundingFees carries the claimable funding amounts produced by an update,
// per collateral-eligible token. Negative funding owed to a position is
// not paid out immediately; it accrues as a claimable balance.
type FundingFees struct {
	FeeUsd                    *big.Int
	ClaimableLongTokenAmount  *big.Int
	ClaimableShortTokenAmount *big.Int
}

// ReferralFees is the affiliate/trader split of the position fee.
// Amounts are denominated in the collateral token.
type ReferralFees struct {
	Affiliate             uuid.UUID
	HasAffiliate          bool
	AffiliateRewardAmount *big.Int
	TraderDiscountAmount  *big.Int
}

// PositionFees is the full fee breakdown for one position update.
// It is computed per operation and never stored.
type PositionFees struct {
	Funding         FundingFees
	Referral        ReferralFees
	PositionFeeUsd  *big.Int
	BorrowingFeeUsd *big.Int
	TotalNetCostUsd *big.Int
}

// Tier is an affiliate's rebate configuration, both factors
// Precision-scaled. Tier governance is external; the core only consumes it.
type Tier struct {
	TotalRebateFactor   *big.Int
	DiscountShareFactor *big.Int
}

// AffiliateResolver answers which affiliate, if any, referred an account.
type AffiliateResolver interface {
	AffiliateFor(account uuid.UUID) (uuid.UUID, Tier, bool)
}

// StaticResolver is a map-backed AffiliateResolver for wiring and tests.
type StaticResolver struct {
	affiliates map[uuid.UUID]uuid.UUID
	tiers      map[uuid.UUID]Tier
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{
		affiliates: make(map[uuid.UUID]uuid.UUID),
		tiers:      make(map[uuid.UUID]Tier),
	}
}

// Register links a trader to an affiliate with the given tier.
func (r *StaticResolver) Register(trader, affiliate uuid.UUID, tier Tier) {
	r.affiliates[trader] = affiliate
	r.tiers[affiliate] = tier
}

func (r *StaticResolver) AffiliateFor(account uuid.UUID) (uuid.UUID, Tier, bool) {
	affiliate, ok := r.affiliates[account]
	if !ok {
		return uuid.Nil, Tier{}, false
	}
	return affiliate, r.tiers[affiliate], true
}

// FeeInputs bundles the per-operation values the fee calculation reads.
// Fields mirror the position's pre-mutation state.
type FeeInputs struct {
	Account         uuid.UUID
	Market          string
	CollateralToken string
	IsLong          bool

	SizeInUsd    *big.Int
	SizeDeltaUsd *big.Int // Absolute size change for this update

	// Position snapshots of the market accumulators, taken when the
	// position was last touched.
	BorrowingFactor           *big.Int
	FundingFeeAmountPerSize   *big.Int
	ClaimableLongPerSizeSnap  *big.Int
	ClaimableShortPerSizeSnap *big.Int

	CollateralTokenPrice Price
	LongToken            string
	ShortToken           string
}

// ComputeFees produces the PositionFees for one position update from the
// market's current accumulators. The funding and borrowing accumulators
// must already be advanced to the operation's timestamp; computing fees
// against stale accumulators charges the position at a stale rate.
func ComputeFees(s store.Getter, resolver AffiliateResolver, in FeeInputs) (PositionFees, error) {
	if fixed.Zero(in.CollateralTokenPrice.Min) {
		return PositionFees{}, fmt.Errorf("compute fees: zero min price for collateral token %s", in.CollateralToken)
	}

	fees := PositionFees{
		Funding: FundingFees{
			FeeUsd:                    new(big.Int),
			ClaimableLongTokenAmount:  new(big.Int),
			ClaimableShortTokenAmount: new(big.Int),
		},
		Referral: ReferralFees{
			AffiliateRewardAmount: new(big.Int),
			TraderDiscountAmount:  new(big.Int),
		},
	}

	// Position fee on the size delta.
	feeFactor := s.GetInt(store.PositionFeeFactorKey(in.Market))
	fees.PositionFeeUsd = fixed.ApplyFactor(new(big.Int).Abs(in.SizeDeltaUsd), feeFactor)

	// Referral split of the position fee. Token amounts round down so the
	// protocol never over-credits.
	traderDiscountUsd := new(big.Int)
	if resolver != nil {
		if affiliate, tier, ok := resolver.AffiliateFor(in.Account); ok {
			rebateUsd := fixed.ApplyFactor(fees.PositionFeeUsd, tier.TotalRebateFactor)
			traderDiscountUsd = fixed.ApplyFactor(rebateUsd, tier.DiscountShareFactor)
			rewardUsd := fixed.Sub(rebateUsd, traderDiscountUsd)

			fees.Referral.Affiliate = affiliate
			fees.Referral.HasAffiliate = true
			fees.Referral.AffiliateRewardAmount = UsdToTokens(rewardUsd, in.CollateralTokenPrice.Min)
			fees.Referral.TraderDiscountAmount = UsdToTokens(traderDiscountUsd, in.CollateralTokenPrice.Min)
		}
	}

	// Borrowing fee from the cumulative factor delta since the position
	// last synced.
	cumulative := s.GetInt(store.CumulativeBorrowingFactorKey(in.Market, in.IsLong))
	factorDelta := fixed.Sub(cumulative, in.BorrowingFactor)
	if factorDelta.Sign() < 0 {
		return PositionFees{}, fmt.Errorf("compute fees: borrowing factor went backwards for %s (delta %s)", in.Market, factorDelta)
	}
	fees.BorrowingFeeUsd = fixed.ApplyFactor(in.SizeInUsd, factorDelta)

	// Funding owed by the position since its last snapshot.
	perSize := s.GetInt(store.FundingFeePerSizeKey(in.Market, in.CollateralToken, in.IsLong))
	perSizeDelta := fixed.Sub(perSize, in.FundingFeeAmountPerSize)
	if perSizeDelta.Sign() > 0 {
		fees.Funding.FeeUsd = fixed.ApplyFactor(in.SizeInUsd, perSizeDelta)
	}

	// Funding owed to the position accrues as claimable token amounts.
	longPerSize := s.GetInt(store.ClaimableFundingPerSizeKey(in.Market, in.LongToken, in.IsLong))
	if delta := fixed.Sub(longPerSize, in.ClaimableLongPerSizeSnap); delta.Sign() > 0 {
		fees.Funding.ClaimableLongTokenAmount = fixed.MulDivFloor(in.SizeInUsd, delta, fixed.Precision)
	}
	shortPerSize := s.GetInt(store.ClaimableFundingPerSizeKey(in.Market, in.ShortToken, in.IsLong))
	if delta := fixed.Sub(shortPerSize, in.ClaimableShortPerSizeSnap); delta.Sign() > 0 {
		fees.Funding.ClaimableShortTokenAmount = fixed.MulDivFloor(in.SizeInUsd, delta, fixed.Precision)
	}

	// Net cost: position fee less the trader's discount, plus accrued
	// borrowing and funding.
	net := fixed.Sub(fees.PositionFeeUsd, traderDiscountUsd)
	net.Add(net, fees.BorrowingFeeUsd)
	net.Add(net, fees.Funding.FeeUsd)
	fees.TotalNetCostUsd = net

	return fees, nil
}
