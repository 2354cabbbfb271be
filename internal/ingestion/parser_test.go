package ingestion_test

import (
	"testing"

	"MarginCore/internal/ingestion"
)

const validMutation = `{
	"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14",
	"market": "ETH-USD",
	"index_token": "ETH",
	"long_token": "WETH",
	"short_token": "USDC",
	"collateral_token": "USDC",
	"is_long": true,
	"size_delta_usd": "1000000000000000000000000000000000",
	"collateral_delta_amount": "200",
	"index_token_price": {"min": "4100", "max": "4105"},
	"long_token_price": {"min": "4100", "max": "4105"},
	"short_token_price": {"min": "1", "max": "1"},
	"timestamp": 1756500000
}`

// ============================================================================
// Test: ParseMutation
// ============================================================================

func TestParseMutation_ValidPayload(t *testing.T) {
	req, err := ingestion.ParseMutation([]byte(validMutation))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Account.String() != "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14" {
		t.Errorf("account = %s", req.Account)
	}
	if req.Market.MarketToken != "ETH-USD" || req.Market.IndexToken != "ETH" {
		t.Errorf("market = %+v", req.Market)
	}
	if req.Market.LongToken != "WETH" || req.Market.ShortToken != "USDC" {
		t.Errorf("market tokens = %+v", req.Market)
	}
	if req.CollateralToken != "USDC" || !req.IsLong {
		t.Errorf("collateral=%s isLong=%v", req.CollateralToken, req.IsLong)
	}
	if req.SizeDeltaUsd.String() != "1000000000000000000000000000000000" {
		t.Errorf("size delta = %s", req.SizeDeltaUsd)
	}
	if req.CollateralDeltaAmount.Int64() != 200 {
		t.Errorf("collateral delta = %s", req.CollateralDeltaAmount)
	}
	if req.Prices.IndexTokenPrice.Min.Int64() != 4100 || req.Prices.IndexTokenPrice.Max.Int64() != 4105 {
		t.Errorf("index price = %+v", req.Prices.IndexTokenPrice)
	}
	if req.Now != 1756500000 {
		t.Errorf("now = %d", req.Now)
	}
}

func TestParseMutation_NegativeDelta(t *testing.T) {
	payload := `{
		"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14",
		"market": "ETH-USD",
		"collateral_token": "USDC",
		"size_delta_usd": "-500",
		"index_token_price": {"min": "10", "max": "10"},
		"long_token_price": {"min": "10", "max": "10"},
		"short_token_price": {"min": "1", "max": "1"},
		"timestamp": 1756500000
	}`
	req, err := ingestion.ParseMutation([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SizeDeltaUsd.Int64() != -500 {
		t.Errorf("size delta = %s, want -500", req.SizeDeltaUsd)
	}
	// Absent amounts parse as zero rather than nil.
	if req.CollateralDeltaAmount == nil || req.CollateralDeltaAmount.Sign() != 0 {
		t.Errorf("collateral delta = %v, want 0", req.CollateralDeltaAmount)
	}
}

func TestParseMutation_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{`},
		{"bad account", `{"account": "nope", "market": "ETH-USD", "timestamp": 1}`},
		{"missing market", `{"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14", "timestamp": 1}`},
		{"missing timestamp", `{"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14", "market": "ETH-USD"}`},
		{"bad integer", `{
			"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14",
			"market": "ETH-USD",
			"size_delta_usd": "12.5",
			"timestamp": 1
		}`},
		{"negative price", `{
			"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14",
			"market": "ETH-USD",
			"index_token_price": {"min": "-1", "max": "1"},
			"timestamp": 1
		}`},
		{"min above max", `{
			"account": "0b6a7a6e-05a3-4a7b-9a44-6f6b8f0e2b14",
			"market": "ETH-USD",
			"index_token_price": {"min": "20", "max": "10"},
			"timestamp": 1
		}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ingestion.ParseMutation([]byte(tc.payload)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// ============================================================================
// Test: ParseParams
// ============================================================================

func TestParseParams_PartialUpdate(t *testing.T) {
	payload := `{
		"market": "ETH-USD",
		"max_leverage": "50000000000000000000000000000000",
		"position_fee_factor": "500000000000000000000000000"
	}`
	p, err := ingestion.ParseParams([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Market != "ETH-USD" {
		t.Errorf("market = %s", p.Market)
	}
	if p.MaxLeverage == nil || p.MaxLeverage.String() != "50000000000000000000000000000000" {
		t.Errorf("max leverage = %v", p.MaxLeverage)
	}
	if p.PositionFeeFactor == nil || p.PositionFeeFactor.String() != "500000000000000000000000000" {
		t.Errorf("position fee factor = %v", p.PositionFeeFactor)
	}

	// Untouched fields must stay nil so the stored values survive.
	if p.MinCollateralUsd != nil || p.FundingFactorPerSecond != nil {
		t.Error("absent fields should stay nil")
	}
	if p.BorrowingFactorPerSecondLong != nil || p.BorrowingFactorPerSecondShort != nil {
		t.Error("absent borrowing factors should stay nil")
	}
}

func TestParseParams_MissingMarket(t *testing.T) {
	if _, err := ingestion.ParseParams([]byte(`{"max_leverage": "5"}`)); err == nil {
		t.Error("expected an error")
	}
}

func TestParseParams_BadValue(t *testing.T) {
	if _, err := ingestion.ParseParams([]byte(`{"market": "ETH-USD", "max_leverage": "five"}`)); err == nil {
		t.Error("expected an error")
	}
}
