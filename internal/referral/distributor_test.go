package referral_test

import (
	"math/big"
	"testing"

	"github.com/google/uuid"

	"MarginCore/internal/events"
	"MarginCore/internal/market"
	"MarginCore/internal/position"
	"MarginCore/internal/pricing"
	"MarginCore/internal/referral"
	"MarginCore/internal/store"
)

var (
	trader    = uuid.MustParse("6f1d8a52-3a0c-47a9-b7f2-0e9a4c8d1b33")
	affiliate = uuid.MustParse("b2c9e1d4-7f68-4a05-9c3e-51d20a8b6e77")
)

var ethMarket = market.Market{
	MarketToken: "ETH-USD",
	IndexToken:  "ETH",
	LongToken:   "WETH",
	ShortToken:  "USDC",
}

func samplePosition() *position.Position {
	return position.New(trader, "ETH-USD", "USDC", true)
}

func referralFees(reward, discount int64) pricing.PositionFees {
	return pricing.PositionFees{
		Referral: pricing.ReferralFees{
			Affiliate:             affiliate,
			HasAffiliate:          true,
			AffiliateRewardAmount: big.NewInt(reward),
			TraderDiscountAmount:  big.NewInt(discount),
		},
	}
}

// ============================================================================
// Test: HandleReferral
// ============================================================================

func TestHandleReferral_CreditsAffiliate(t *testing.T) {
	ms := store.NewMemStore()
	sink := &events.MemSink{}
	d := referral.NewDistributor(sink)

	d.HandleReferral(ms, samplePosition(), referralFees(30, 20))

	key := store.AffiliateRewardKey("ETH-USD", "USDC", affiliate)
	if got := ms.GetInt(key); got.Int64() != 30 {
		t.Errorf("reward balance = %s, want 30", got)
	}

	// Repeated updates accumulate.
	d.HandleReferral(ms, samplePosition(), referralFees(30, 20))
	if got := ms.GetInt(key); got.Int64() != 60 {
		t.Errorf("reward balance = %s, want 60", got)
	}
}

func TestHandleReferral_PublishesRewardAndDiscount(t *testing.T) {
	ms := store.NewMemStore()
	sink := &events.MemSink{}
	d := referral.NewDistributor(sink)

	d.HandleReferral(ms, samplePosition(), referralFees(30, 20))

	if len(sink.Notifications) != 2 {
		t.Fatalf("published %d notifications, want 2", len(sink.Notifications))
	}
	reward := sink.Notifications[0]
	if reward.Kind != events.KindAffiliateRewardEarned || reward.Account != affiliate {
		t.Errorf("first notification = %+v", reward)
	}
	if reward.Amount != "30" {
		t.Errorf("reward amount = %s, want 30", reward.Amount)
	}
	discount := sink.Notifications[1]
	if discount.Kind != events.KindTraderDiscountApplied || discount.Account != trader {
		t.Errorf("second notification = %+v", discount)
	}
	if discount.Amount != "20" {
		t.Errorf("discount amount = %s, want 20", discount.Amount)
	}
}

func TestHandleReferral_NoAffiliate_NoOp(t *testing.T) {
	ms := store.NewMemStore()
	sink := &events.MemSink{}
	d := referral.NewDistributor(sink)

	fees := referralFees(30, 20)
	fees.Referral.HasAffiliate = false
	d.HandleReferral(ms, samplePosition(), fees)

	if len(ms.Snapshot()) != 0 {
		t.Error("no balances should move without an affiliate")
	}
	if len(sink.Notifications) != 0 {
		t.Error("no notifications expected without an affiliate")
	}
}

func TestHandleReferral_ZeroReward_SkipsCreditButAnnouncesDiscount(t *testing.T) {
	ms := store.NewMemStore()
	sink := &events.MemSink{}
	d := referral.NewDistributor(sink)

	d.HandleReferral(ms, samplePosition(), referralFees(0, 20))

	if len(ms.Snapshot()) != 0 {
		t.Error("zero reward must not touch the store")
	}
	if len(sink.Notifications) != 1 || sink.Notifications[0].Kind != events.KindTraderDiscountApplied {
		t.Errorf("notifications = %+v", sink.Notifications)
	}
}

// ============================================================================
// Test: IncrementClaimableFunding
// ============================================================================

func TestIncrementClaimableFunding_CreditsBothTokens(t *testing.T) {
	ms := store.NewMemStore()
	sink := &events.MemSink{}
	d := referral.NewDistributor(sink)

	fees := pricing.PositionFees{
		Funding: pricing.FundingFees{
			ClaimableLongTokenAmount:  big.NewInt(7),
			ClaimableShortTokenAmount: big.NewInt(11),
		},
	}
	d.IncrementClaimableFunding(ms, ethMarket, samplePosition(), fees)

	if got := ms.GetInt(store.ClaimableFundingKey("ETH-USD", "WETH", trader)); got.Int64() != 7 {
		t.Errorf("long claimable = %s, want 7", got)
	}
	if got := ms.GetInt(store.ClaimableFundingKey("ETH-USD", "USDC", trader)); got.Int64() != 11 {
		t.Errorf("short claimable = %s, want 11", got)
	}
	if len(sink.Notifications) != 2 {
		t.Fatalf("published %d notifications, want 2", len(sink.Notifications))
	}
	for _, n := range sink.Notifications {
		if n.Kind != events.KindClaimableFundingUpdated {
			t.Errorf("kind = %s", n.Kind)
		}
	}
}

func TestIncrementClaimableFunding_ZeroAmounts_NoOp(t *testing.T) {
	ms := store.NewMemStore()
	sink := &events.MemSink{}
	d := referral.NewDistributor(sink)

	fees := pricing.PositionFees{
		Funding: pricing.FundingFees{
			ClaimableLongTokenAmount:  new(big.Int),
			ClaimableShortTokenAmount: new(big.Int),
		},
	}
	d.IncrementClaimableFunding(ms, ethMarket, samplePosition(), fees)

	if len(ms.Snapshot()) != 0 || len(sink.Notifications) != 0 {
		t.Error("zero funding must move nothing")
	}
}
