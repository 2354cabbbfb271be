package events

import (
	"math/big"

	"github.com/google/uuid"
)

// Kind discriminates outbound notifications.
type Kind string

const (
	KindTraderDiscountApplied    Kind = "trader_discount_applied"
	KindAffiliateRewardEarned    Kind = "affiliate_reward_earned"
	KindClaimableFundingUpdated  Kind = "claimable_funding_updated"
	KindPositionMutated          Kind = "position_mutated"
	KindPositionLiquidatableFlag Kind = "position_liquidatable"
)

// Notification is one fire-and-forget outbound message. Amounts travel as
// decimal strings so downstream consumers never lose precision.
type Notification struct {
	Kind    Kind      `json:"kind"`
	Market  string    `json:"market"`
	Token   string    `json:"token,omitempty"`
	Account uuid.UUID `json:"account"`
	Amount  string    `json:"amount,omitempty"`
	IsLong  bool      `json:"is_long"`
}

// WithAmount sets Amount from a big integer.
func (n Notification) WithAmount(v *big.Int) Notification {
	if v != nil {
		n.Amount = v.String()
	}
	return n
}

// Sink receives outbound notifications. Publishing is fire-and-forget:
// the core never branches on whether a publish succeeded, so Publish
// returns nothing and implementations swallow (and log) failures.
type Sink interface {
	Publish(n Notification)
}

// NopSink discards everything. Default for library use.
type NopSink struct{}

func (NopSink) Publish(Notification) {}

// MemSink records notifications in order. Test helper.
type MemSink struct {
	Notifications []Notification
}

func (s *MemSink) Publish(n Notification) {
	s.Notifications = append(s.Notifications, n)
}
