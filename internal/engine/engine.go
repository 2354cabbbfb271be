// Package engine orchestrates position mutations. It owns the ordering
// contract across the accounting ledgers: accumulators advance first,
// valuation and fees are computed against the advanced state, the
// validator gates the result, and only then do the open-interest and
// referral side effects land. Every operation runs inside one store
// transaction; any failure discards all buffered mutations.
package engine

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"MarginCore/internal/events"
	"MarginCore/internal/fixed"
	"MarginCore/internal/market"
	"MarginCore/internal/observability"
	"MarginCore/internal/position"
	"MarginCore/internal/pricing"
	"MarginCore/internal/referral"
	"MarginCore/internal/store"
)

// Engine is the single-threaded position-mutation processor. The host
// serializes operations; no locking happens here.
type Engine struct {
	store       *store.MemStore
	positions   *position.Manager
	evaluator   *position.Evaluator
	resolver    pricing.AffiliateResolver
	distributor *referral.Distributor
	sink        events.Sink
	metrics     *observability.Metrics
	logger      zerolog.Logger

	sequence int64
}

// Options carries the optional collaborators. Nil fields get safe
// defaults (no affiliate program, zero price impact, discarded events).
type Options struct {
	Resolver pricing.AffiliateResolver
	Impact   position.ImpactEstimator
	Sink     events.Sink
	Metrics  *observability.Metrics
	Logger   *zerolog.Logger
}

func New(st *store.MemStore, opts Options) *Engine {
	sink := opts.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	logger := observability.NewLogger("engine")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Engine{
		store:       st,
		positions:   position.NewManager(),
		evaluator:   position.NewEvaluator(opts.Resolver, opts.Impact),
		resolver:    opts.Resolver,
		distributor: referral.NewDistributor(sink),
		sink:        sink,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// MutationRequest describes one position size/collateral change.
// SizeDeltaUsd is signed: positive increases exposure, negative decreases
// it. Prices and Now are versioned inputs captured once for the whole
// operation; the engine never re-fetches prices or reads the wall clock.
type MutationRequest struct {
	Account         uuid.UUID
	Market          market.Market
	CollateralToken string
	IsLong          bool

	SizeDeltaUsd          *big.Int
	CollateralDeltaAmount *big.Int

	Prices pricing.MarketPrices
	Now    int64
}

// MutationResult reports what one applied mutation did.
type MutationResult struct {
	Sequence          int64
	Position          *position.Position // nil after a full close
	Closed            bool
	PnlUsd            *big.Int
	SizeDeltaInTokens *big.Int // magnitude
	Fees              pricing.PositionFees
}

// ProcessMutation runs the full ordered pipeline for one mutation:
//
//  1. advance funding and borrowing accumulators to req.Now
//  2. compute fees and valuation against the advanced accumulators
//  3. build the post-mutation position record
//  4. replace the position's total-borrowing contribution, reading the
//     pre-mutation size and factor
//  5. validate the post-mutation record (non-empty, not liquidatable)
//  6. apply open-interest deltas using the valuation's token delta
//  7. route referral rewards and claimable funding
//
// The order is a correctness contract, not an accident of statement
// order: see the step comments. On any error, every buffered store write
// is discarded and the position record is untouched.
func (e *Engine) ProcessMutation(req MutationRequest) (*MutationResult, error) {
	start := time.Now()
	op := opLabel(req.SizeDeltaUsd)

	res, err := e.processMutation(req, op)
	if err != nil {
		if e.metrics != nil {
			e.metrics.OpsRejected.WithLabelValues(op, rejectionReason(err)).Inc()
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	return res, nil
}

func (e *Engine) processMutation(req MutationRequest, op string) (*MutationResult, error) {
	if req.SizeDeltaUsd == nil {
		req.SizeDeltaUsd = new(big.Int)
	}
	if req.CollateralDeltaAmount == nil {
		req.CollateralDeltaAmount = new(big.Int)
	}

	tx := store.Begin(e.store)

	// Step 1: accumulators must reflect req.Now before anything is
	// priced, otherwise fees and the borrowing snapshot are stale.
	if err := market.AdvanceFundingAndBorrowing(tx, req.Market, req.Prices, req.Now); err != nil {
		tx.Discard()
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.FundingAdvances.WithLabelValues(req.Market.MarketToken).Inc()
	}

	key := position.DeriveKey(req.Account, req.Market.MarketToken, req.CollateralToken, req.IsLong)
	prev := e.positions.Get(key)
	if prev == nil {
		prev = position.New(req.Account, req.Market.MarketToken, req.CollateralToken, req.IsLong)
	}

	decrease := req.SizeDeltaUsd.Sign() < 0
	absDeltaUsd := new(big.Int).Abs(req.SizeDeltaUsd)
	if decrease {
		if err := position.ValidateNonEmpty(prev); err != nil {
			tx.Discard()
			return nil, err
		}
		if absDeltaUsd.Cmp(prev.SizeInUsd) > 0 {
			tx.Discard()
			return nil, fmt.Errorf("decrease %s exceeds position size %s", absDeltaUsd, prev.SizeInUsd)
		}
	}

	collateralPrice := req.Prices.CollateralPrice(req.CollateralToken, req.Market.LongToken, req.Market.ShortToken)
	if fixed.Zero(collateralPrice.Min) {
		tx.Discard()
		return nil, fmt.Errorf("token %s is not collateral-eligible for market %s", req.CollateralToken, req.Market.MarketToken)
	}

	// Step 2: fees and valuation. Both read the advanced accumulators
	// and the pre-mutation position.
	fees, err := pricing.ComputeFees(tx, e.resolver, pricing.FeeInputs{
		Account:                   req.Account,
		Market:                    req.Market.MarketToken,
		CollateralToken:           req.CollateralToken,
		IsLong:                    req.IsLong,
		SizeInUsd:                 prev.SizeInUsd,
		SizeDeltaUsd:              absDeltaUsd,
		BorrowingFactor:           prev.BorrowingFactor,
		FundingFeeAmountPerSize:   prev.FundingFeeAmountPerSize,
		ClaimableLongPerSizeSnap:  prev.ClaimableLongTokenPerSize,
		ClaimableShortPerSizeSnap: prev.ClaimableShortTokenPerSize,
		CollateralTokenPrice:      collateralPrice,
		LongToken:                 req.Market.LongToken,
		ShortToken:                req.Market.ShortToken,
	})
	if err != nil {
		tx.Discard()
		return nil, err
	}

	pnlUsd := new(big.Int)
	var deltaTokens *big.Int
	if decrease {
		pnlUsd, deltaTokens = position.Pnl(prev, absDeltaUsd, req.Prices.PnlPrice(req.IsLong))
	} else {
		deltaTokens = increaseTokens(absDeltaUsd, req.Prices.IndexTokenPrice, req.IsLong)
	}

	// Step 3: build the post-mutation record on a clone; the live record
	// stays untouched until commit.
	next, err := e.buildNext(tx, prev, req, fees, pnlUsd, deltaTokens, collateralPrice, decrease)
	if err != nil {
		tx.Discard()
		return nil, err
	}

	// Step 4: total borrowing swaps the pre-mutation contribution for the
	// new one. prev must still hold pre-mutation fields here.
	market.ApplyBorrowingDelta(tx, req.Market, req.IsLong,
		prev.SizeInUsd, prev.BorrowingFactor,
		next.SizeInUsd, next.BorrowingFactor)

	// Step 5: gate the result before any of it becomes visible.
	closed := next.SizeInUsd.Sign() == 0
	if closed {
		if next.SizeInTokens.Sign() != 0 {
			panic(fmt.Sprintf("FATAL: full close left %s tokens on position %s", next.SizeInTokens, req.Account))
		}
	} else {
		if err := position.ValidateNonEmpty(next); err != nil {
			tx.Discard()
			return nil, err
		}
		if err := e.evaluator.Validate(tx, next, req.Market, req.Prices); err != nil {
			tx.Discard()
			return nil, err
		}
	}

	// Step 6: open interest uses this operation's deltaTokens, never a
	// recomputed value.
	signedDeltaUsd := fixed.Clone(req.SizeDeltaUsd)
	signedDeltaTokens := fixed.Clone(deltaTokens)
	if decrease {
		signedDeltaTokens.Neg(signedDeltaTokens)
	}
	market.ApplyOpenInterestDelta(tx, req.Market, req.CollateralToken, req.IsLong, signedDeltaUsd, signedDeltaTokens)

	// Step 7: referral and claimable-funding side effects.
	e.distributor.HandleReferral(tx, prev, fees)
	e.distributor.IncrementClaimableFunding(tx, req.Market, prev, fees)

	if e.metrics != nil {
		e.metrics.TxWrites.Observe(float64(tx.Pending()))
	}
	tx.Commit()
	e.recordLedgerMetrics(req, fees)

	if closed {
		e.positions.Remove(key)
	} else {
		e.positions.Set(next)
	}
	e.sequence++

	e.sink.Publish(events.Notification{
		Kind:    events.KindPositionMutated,
		Market:  req.Market.MarketToken,
		Token:   req.CollateralToken,
		Account: req.Account,
		IsLong:  req.IsLong,
	}.WithAmount(req.SizeDeltaUsd))

	e.logger.Debug().
		Str("account", req.Account.String()).
		Str("market", req.Market.MarketToken).
		Str("op", op).
		Bool("closed", closed).
		Msg("mutation applied")

	result := &MutationResult{
		Sequence:          e.sequence,
		Closed:            closed,
		PnlUsd:            pnlUsd,
		SizeDeltaInTokens: deltaTokens,
		Fees:              fees,
	}
	if !closed {
		result.Position = next
	}
	return result, nil
}

// buildNext applies the size, collateral, PnL and cost deltas to a clone
// of prev and refreshes its accumulator snapshots from the advanced
// store state.
func (e *Engine) buildNext(
	tx *store.Tx,
	prev *position.Position,
	req MutationRequest,
	fees pricing.PositionFees,
	pnlUsd, deltaTokens *big.Int,
	collateralPrice pricing.Price,
	decrease bool,
) (*position.Position, error) {
	next := prev.Clone()

	if decrease {
		next.SizeInUsd.Sub(next.SizeInUsd, new(big.Int).Abs(req.SizeDeltaUsd))
		next.SizeInTokens.Sub(next.SizeInTokens, deltaTokens)
		next.DecreasedAtTime = req.Now
	} else {
		next.SizeInUsd.Add(next.SizeInUsd, req.SizeDeltaUsd)
		next.SizeInTokens.Add(next.SizeInTokens, deltaTokens)
		next.IncreasedAtTime = req.Now
	}
	if next.SizeInTokens.Sign() < 0 {
		return nil, fmt.Errorf("token size underflow: %s", next.SizeInTokens)
	}

	next.CollateralAmount.Add(next.CollateralAmount, req.CollateralDeltaAmount)

	// Realized PnL on a decrease settles into collateral, rounded down.
	if pnlUsd.Sign() != 0 {
		pnlTokens := fixed.MulDivFloor(pnlUsd, big.NewInt(1), collateralPrice.Min)
		next.CollateralAmount.Add(next.CollateralAmount, pnlTokens)
	}

	// Fee cost comes out of collateral, rounded up against the trader.
	if fees.TotalNetCostUsd.Sign() > 0 {
		costTokens := fixed.MulDivCeil(fees.TotalNetCostUsd, big.NewInt(1), collateralPrice.Min)
		next.CollateralAmount.Sub(next.CollateralAmount, costTokens)
	}

	if next.CollateralAmount.Sign() < 0 {
		return nil, fmt.Errorf("insufficient collateral: %s after costs", next.CollateralAmount)
	}

	// Refresh accumulator snapshots so the next operation only pays the
	// delta accrued from here on.
	next.BorrowingFactor = tx.GetInt(store.CumulativeBorrowingFactorKey(req.Market.MarketToken, req.IsLong))
	next.FundingFeeAmountPerSize = tx.GetInt(store.FundingFeePerSizeKey(req.Market.MarketToken, req.CollateralToken, req.IsLong))
	next.ClaimableLongTokenPerSize = tx.GetInt(store.ClaimableFundingPerSizeKey(req.Market.MarketToken, req.Market.LongToken, req.IsLong))
	next.ClaimableShortTokenPerSize = tx.GetInt(store.ClaimableFundingPerSizeKey(req.Market.MarketToken, req.Market.ShortToken, req.IsLong))

	return next, nil
}

// recordLedgerMetrics mirrors committed ledger movement into gauges and
// counters. Runs after commit so a discarded operation leaves no trace.
func (e *Engine) recordLedgerMetrics(req MutationRequest, fees pricing.PositionFees) {
	if e.metrics == nil {
		return
	}

	mkt := req.Market.MarketToken
	oi := e.store.GetInt(store.OpenInterestUsdKey(mkt, req.CollateralToken, req.IsLong))
	oiFloat, _ := new(big.Float).SetInt(oi).Float64()
	e.metrics.OpenInterestUsd.WithLabelValues(mkt, req.CollateralToken, dirLabel(req.IsLong)).Set(oiFloat)

	if fees.Funding.ClaimableLongTokenAmount.Sign() > 0 {
		e.metrics.ClaimableCredits.WithLabelValues(mkt, req.Market.LongToken).Inc()
	}
	if fees.Funding.ClaimableShortTokenAmount.Sign() > 0 {
		e.metrics.ClaimableCredits.WithLabelValues(mkt, req.Market.ShortToken).Inc()
	}
	if fees.Referral.HasAffiliate && fees.Referral.AffiliateRewardAmount.Sign() > 0 {
		e.metrics.AffiliateRewards.WithLabelValues(mkt, req.CollateralToken).Inc()
	}
}

func dirLabel(isLong bool) string {
	if isLong {
		return "long"
	}
	return "short"
}

// increaseTokens converts a USD size increase into tokens at the
// conservative execution price: longs buy at the max price rounding down,
// shorts sell at the min price rounding up. Same protocol-favoring bias
// as the close-direction rounding, mirrored.
func increaseTokens(sizeDeltaUsd *big.Int, indexPrice pricing.Price, isLong bool) *big.Int {
	if isLong {
		if fixed.Zero(indexPrice.Max) {
			return new(big.Int)
		}
		return fixed.MulDivFloor(sizeDeltaUsd, big.NewInt(1), indexPrice.Max)
	}
	if fixed.Zero(indexPrice.Min) {
		return new(big.Int)
	}
	return fixed.MulDivCeil(sizeDeltaUsd, big.NewInt(1), indexPrice.Min)
}

func opLabel(sizeDeltaUsd *big.Int) string {
	if sizeDeltaUsd != nil && sizeDeltaUsd.Sign() < 0 {
		return "decrease"
	}
	return "increase"
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, position.ErrEmptyPosition):
		return "empty_position"
	case errors.Is(err, position.ErrZeroPositionSize):
		return "zero_size"
	case errors.Is(err, position.ErrLiquidatablePosition):
		return "liquidatable"
	default:
		return "invalid"
	}
}
