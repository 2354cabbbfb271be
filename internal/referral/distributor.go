// Package referral routes affiliate rewards and claimable funding rebates
// generated by a position update into claimable store balances.
package referral

import (
	"math/big"

	"MarginCore/internal/events"
	"MarginCore/internal/market"
	"MarginCore/internal/position"
	"MarginCore/internal/pricing"
	"MarginCore/internal/store"
)

// Distributor applies the referral and claimable-funding side effects of
// a position update. All monetary movement goes through the store; the
// sink only carries informational notifications.
type Distributor struct {
	sink events.Sink
}

func NewDistributor(sink events.Sink) *Distributor {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Distributor{sink: sink}
}

// HandleReferral credits the affiliate's claimable reward balance for
// (market, collateral token). A trader discount produced no separate
// monetary movement (it already reduced the net cost), so it is only
// announced.
func (d *Distributor) HandleReferral(s store.Store, p *position.Position, fees pricing.PositionFees) {
	if !fees.Referral.HasAffiliate {
		return
	}

	if fees.Referral.AffiliateRewardAmount.Sign() > 0 {
		store.AddInt(s,
			store.AffiliateRewardKey(p.Market, p.CollateralToken, fees.Referral.Affiliate),
			fees.Referral.AffiliateRewardAmount)
		d.sink.Publish(events.Notification{
			Kind:    events.KindAffiliateRewardEarned,
			Market:  p.Market,
			Token:   p.CollateralToken,
			Account: fees.Referral.Affiliate,
			IsLong:  p.IsLong,
		}.WithAmount(fees.Referral.AffiliateRewardAmount))
	}

	if fees.Referral.TraderDiscountAmount.Sign() > 0 {
		d.sink.Publish(events.Notification{
			Kind:    events.KindTraderDiscountApplied,
			Market:  p.Market,
			Token:   p.CollateralToken,
			Account: p.Account,
			IsLong:  p.IsLong,
		}.WithAmount(fees.Referral.TraderDiscountAmount))
	}
}

// IncrementClaimableFunding credits funding owed to the position as
// claimable balances, one per collateral-eligible token. Nothing is paid
// out immediately; the balances are claimed out of band.
func (d *Distributor) IncrementClaimableFunding(s store.Store, mkt market.Market, p *position.Position, fees pricing.PositionFees) {
	if fees.Funding.ClaimableLongTokenAmount.Sign() > 0 {
		d.credit(s, mkt.LongToken, p, fees.Funding.ClaimableLongTokenAmount)
	}
	if fees.Funding.ClaimableShortTokenAmount.Sign() > 0 {
		d.credit(s, mkt.ShortToken, p, fees.Funding.ClaimableShortTokenAmount)
	}
}

func (d *Distributor) credit(s store.Store, token string, p *position.Position, amount *big.Int) {
	store.AddInt(s, store.ClaimableFundingKey(p.Market, token, p.Account), amount)
	d.sink.Publish(events.Notification{
		Kind:    events.KindClaimableFundingUpdated,
		Market:  p.Market,
		Token:   token,
		Account: p.Account,
		IsLong:  p.IsLong,
	}.WithAmount(amount))
}
