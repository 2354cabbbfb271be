package persistence_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"

	"MarginCore/internal/persistence"
	"MarginCore/internal/position"
	"MarginCore/internal/testutil"
)

// ============================================================================
// Test: Ledger codec
// ============================================================================

func TestLedgerCodec_RoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890123456", 10)
	in := map[string]*big.Int{
		"market:ETH-USD:open_interest_usd:USDC:long": huge,
		"risk:max_leverage":                          big.NewInt(-42),
	}

	encoded := persistence.EncodeLedger(in)
	if encoded["market:ETH-USD:open_interest_usd:USDC:long"] != huge.String() {
		t.Errorf("encoded value = %s", encoded["market:ETH-USD:open_interest_usd:USDC:long"])
	}

	out, err := persistence.DecodeLedger(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d entries, want %d", len(out), len(in))
	}
	for k, v := range in {
		if out[k].Cmp(v) != 0 {
			t.Errorf("%s = %s, want %s", k, out[k], v)
		}
	}
}

func TestDecodeLedger_BadValue(t *testing.T) {
	if _, err := persistence.DecodeLedger(map[string]string{"k": "not-a-number"}); err == nil {
		t.Error("expected an error")
	}
}

// ============================================================================
// Test: Position codec
// ============================================================================

func TestPositionCodec_RoundTrip(t *testing.T) {
	p := position.New(uuid.New(), "ETH-USD", "USDC", true)
	p.SizeInUsd, _ = new(big.Int).SetString("5000000000000000000000000000000000", 10)
	p.SizeInTokens = big.NewInt(125)
	p.CollateralAmount = big.NewInt(900)
	p.BorrowingFactor = big.NewInt(77)
	p.FundingFeeAmountPerSize = big.NewInt(-3)
	p.ClaimableLongTokenPerSize = big.NewInt(5)
	p.ClaimableShortTokenPerSize = big.NewInt(9)
	p.IncreasedAtTime = 1756500000
	p.DecreasedAtTime = 1756500100

	row := persistence.EncodePosition(p)
	got, err := persistence.DecodePosition(row)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Account != p.Account || got.Market != p.Market {
		t.Errorf("identity = %s/%s", got.Account, got.Market)
	}
	if got.CollateralToken != "USDC" || !got.IsLong {
		t.Errorf("collateral=%s isLong=%v", got.CollateralToken, got.IsLong)
	}
	if got.SizeInUsd.Cmp(p.SizeInUsd) != 0 || got.SizeInTokens.Cmp(p.SizeInTokens) != 0 {
		t.Errorf("size = %s/%s", got.SizeInUsd, got.SizeInTokens)
	}
	if got.CollateralAmount.Cmp(p.CollateralAmount) != 0 {
		t.Errorf("collateral = %s", got.CollateralAmount)
	}
	if got.BorrowingFactor.Cmp(p.BorrowingFactor) != 0 {
		t.Errorf("borrowing factor = %s", got.BorrowingFactor)
	}
	if got.FundingFeeAmountPerSize.Cmp(p.FundingFeeAmountPerSize) != 0 {
		t.Errorf("funding per size = %s", got.FundingFeeAmountPerSize)
	}
	if got.ClaimableLongTokenPerSize.Cmp(p.ClaimableLongTokenPerSize) != 0 ||
		got.ClaimableShortTokenPerSize.Cmp(p.ClaimableShortTokenPerSize) != 0 {
		t.Errorf("claimable per size = %s/%s", got.ClaimableLongTokenPerSize, got.ClaimableShortTokenPerSize)
	}
	if got.IncreasedAtTime != p.IncreasedAtTime || got.DecreasedAtTime != p.DecreasedAtTime {
		t.Errorf("timestamps = %d/%d", got.IncreasedAtTime, got.DecreasedAtTime)
	}
	if got.Key() != p.Key() {
		t.Error("derived key changed across the round trip")
	}
}

func TestDecodePosition_BadAccount(t *testing.T) {
	row := persistence.EncodePosition(position.New(uuid.New(), "ETH-USD", "USDC", true))
	row.Account = "nope"
	if _, err := persistence.DecodePosition(row); err == nil {
		t.Error("expected an error")
	}
}

func TestDecodePosition_BadAmount(t *testing.T) {
	row := persistence.EncodePosition(position.New(uuid.New(), "ETH-USD", "USDC", true))
	row.SizeInUsd = "12.5"
	if _, err := persistence.DecodePosition(row); err == nil {
		t.Error("expected an error")
	}
}

// ============================================================================
// Test: SnapshotStore (requires Postgres)
// ============================================================================

func TestSnapshotStore_SaveLoadPrune(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ss := persistence.NewSnapshotStore(db)
	ctx := context.Background()

	for seq := int64(1); seq <= 3; seq++ {
		snap := &persistence.SnapshotData{
			Sequence:  seq,
			Ledger:    map[string]string{"risk:max_leverage": "100"},
			CreatedAt: time.Now().UTC(),
		}
		if err := ss.Save(ctx, snap); err != nil {
			t.Fatalf("save %d: %v", seq, err)
		}
	}

	latest, err := ss.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if latest == nil || latest.Sequence != 3 {
		t.Fatalf("latest = %+v, want sequence 3", latest)
	}

	seq, err := ss.LatestSequence(ctx)
	if err != nil {
		t.Fatalf("latest sequence: %v", err)
	}
	if seq != 3 {
		t.Errorf("latest sequence = %d, want 3", seq)
	}

	if err := ss.Prune(ctx, 1); err != nil {
		t.Fatalf("prune: %v", err)
	}
	latest, err = ss.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("load after prune: %v", err)
	}
	if latest == nil || latest.Sequence != 3 {
		t.Error("prune must keep the most recent snapshot")
	}
}

func TestSnapshotStore_LoadLatest_Empty(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	ss := persistence.NewSnapshotStore(db)

	latest, err := ss.LoadLatest(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if latest != nil {
		t.Errorf("latest = %+v, want nil on an empty table", latest)
	}
}
