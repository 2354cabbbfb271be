package ingestion

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"

	"MarginCore/internal/engine"
	"MarginCore/internal/market"
	"MarginCore/internal/pricing"
)

// JSON wire formats. Field names use snake_case to match upstream
// producers. All scaled amounts travel as decimal strings so 30-decimal
// values survive the trip.

type priceJSON struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type mutationJSON struct {
	Account         string `json:"account"`
	Market          string `json:"market"`
	IndexToken      string `json:"index_token"`
	LongToken       string `json:"long_token"`
	ShortToken      string `json:"short_token"`
	CollateralToken string `json:"collateral_token"`
	IsLong          bool   `json:"is_long"`

	SizeDeltaUsd          string `json:"size_delta_usd"`
	CollateralDeltaAmount string `json:"collateral_delta_amount"`

	IndexTokenPrice priceJSON `json:"index_token_price"`
	LongTokenPrice  priceJSON `json:"long_token_price"`
	ShortTokenPrice priceJSON `json:"short_token_price"`

	Timestamp int64 `json:"timestamp"`
}

type paramJSON struct {
	Market string `json:"market"`

	MaxLeverage      string `json:"max_leverage,omitempty"`
	MinCollateralUsd string `json:"min_collateral_usd,omitempty"`

	PositionFeeFactor             string `json:"position_fee_factor,omitempty"`
	MaxImpactFactorLiquidations   string `json:"max_impact_factor_liquidations,omitempty"`
	FundingFactorPerSecond        string `json:"funding_factor_per_second,omitempty"`
	BorrowingFactorPerSecondLong  string `json:"borrowing_factor_per_second_long,omitempty"`
	BorrowingFactorPerSecondShort string `json:"borrowing_factor_per_second_short,omitempty"`
}

// ParseMutation converts a mutation payload into an engine request.
func ParseMutation(data []byte) (engine.MutationRequest, error) {
	var j mutationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return engine.MutationRequest{}, fmt.Errorf("parse mutation: %w", err)
	}

	account, err := uuid.Parse(j.Account)
	if err != nil {
		return engine.MutationRequest{}, fmt.Errorf("parse account: %w", err)
	}
	if j.Market == "" {
		return engine.MutationRequest{}, fmt.Errorf("missing market")
	}
	if j.Timestamp <= 0 {
		return engine.MutationRequest{}, fmt.Errorf("missing timestamp")
	}

	sizeDelta, err := parseBig(j.SizeDeltaUsd, "size_delta_usd")
	if err != nil {
		return engine.MutationRequest{}, err
	}
	collateralDelta, err := parseBig(j.CollateralDeltaAmount, "collateral_delta_amount")
	if err != nil {
		return engine.MutationRequest{}, err
	}

	prices, err := parsePrices(j)
	if err != nil {
		return engine.MutationRequest{}, err
	}

	return engine.MutationRequest{
		Account: account,
		Market: market.Market{
			MarketToken: j.Market,
			IndexToken:  j.IndexToken,
			LongToken:   j.LongToken,
			ShortToken:  j.ShortToken,
		},
		CollateralToken:       j.CollateralToken,
		IsLong:                j.IsLong,
		SizeDeltaUsd:          sizeDelta,
		CollateralDeltaAmount: collateralDelta,
		Prices:                prices,
		Now:                   j.Timestamp,
	}, nil
}

// ParseParams converts a risk-parameter payload. Absent fields stay nil
// and leave the stored value unchanged.
func ParseParams(data []byte) (engine.ParamSet, error) {
	var j paramJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return engine.ParamSet{}, fmt.Errorf("parse params: %w", err)
	}
	if j.Market == "" {
		return engine.ParamSet{}, fmt.Errorf("missing market")
	}

	p := engine.ParamSet{Market: j.Market}
	for _, f := range []struct {
		raw  string
		name string
		dst  **big.Int
	}{
		{j.MaxLeverage, "max_leverage", &p.MaxLeverage},
		{j.MinCollateralUsd, "min_collateral_usd", &p.MinCollateralUsd},
		{j.PositionFeeFactor, "position_fee_factor", &p.PositionFeeFactor},
		{j.MaxImpactFactorLiquidations, "max_impact_factor_liquidations", &p.MaxImpactFactorLiquidations},
		{j.FundingFactorPerSecond, "funding_factor_per_second", &p.FundingFactorPerSecond},
		{j.BorrowingFactorPerSecondLong, "borrowing_factor_per_second_long", &p.BorrowingFactorPerSecondLong},
		{j.BorrowingFactorPerSecondShort, "borrowing_factor_per_second_short", &p.BorrowingFactorPerSecondShort},
	} {
		if f.raw == "" {
			continue
		}
		v, err := parseBig(f.raw, f.name)
		if err != nil {
			return engine.ParamSet{}, err
		}
		*f.dst = v
	}

	return p, nil
}

func parsePrices(j mutationJSON) (pricing.MarketPrices, error) {
	index, err := parsePrice(j.IndexTokenPrice, "index_token_price")
	if err != nil {
		return pricing.MarketPrices{}, err
	}
	long, err := parsePrice(j.LongTokenPrice, "long_token_price")
	if err != nil {
		return pricing.MarketPrices{}, err
	}
	short, err := parsePrice(j.ShortTokenPrice, "short_token_price")
	if err != nil {
		return pricing.MarketPrices{}, err
	}
	return pricing.MarketPrices{
		IndexTokenPrice: index,
		LongTokenPrice:  long,
		ShortTokenPrice: short,
	}, nil
}

func parsePrice(p priceJSON, name string) (pricing.Price, error) {
	min, err := parseBig(p.Min, name+".min")
	if err != nil {
		return pricing.Price{}, err
	}
	max, err := parseBig(p.Max, name+".max")
	if err != nil {
		return pricing.Price{}, err
	}
	if min.Sign() < 0 || max.Sign() < 0 {
		return pricing.Price{}, fmt.Errorf("%s: negative price", name)
	}
	if min.Cmp(max) > 0 {
		return pricing.Price{}, fmt.Errorf("%s: min %s above max %s", name, min, max)
	}
	return pricing.Price{Min: min, Max: max}, nil
}

// parseBig accepts a decimal string, with an empty string meaning zero.
func parseBig(s, name string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", name, s)
	}
	return v, nil
}
