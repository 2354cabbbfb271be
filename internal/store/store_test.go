package store_test

import (
	"math/big"
	"testing"

	"github.com/google/uuid"

	"MarginCore/internal/store"
)

// ============================================================================
// Test: MemStore
// ============================================================================

func TestMemStore_UnsetKeyIsZero(t *testing.T) {
	s := store.NewMemStore()
	if got := s.GetInt("missing"); got.Sign() != 0 {
		t.Errorf("unset key returned %s, want 0", got)
	}
}

func TestMemStore_GetReturnsCopy(t *testing.T) {
	s := store.NewMemStore()
	s.SetInt("k", big.NewInt(10))

	v := s.GetInt("k")
	v.SetInt64(999)

	if got := s.GetInt("k"); got.Int64() != 10 {
		t.Errorf("stored value mutated through returned copy: %s", got)
	}
}

func TestMemStore_SetCopiesInput(t *testing.T) {
	s := store.NewMemStore()
	v := big.NewInt(10)
	s.SetInt("k", v)
	v.SetInt64(999)

	if got := s.GetInt("k"); got.Int64() != 10 {
		t.Errorf("stored value mutated through input: %s", got)
	}
}

func TestAddInt_Accumulates(t *testing.T) {
	s := store.NewMemStore()
	store.AddInt(s, "k", big.NewInt(5))
	got := store.AddInt(s, "k", big.NewInt(-2))

	if got.Int64() != 3 {
		t.Errorf("AddInt returned %s, want 3", got)
	}
	if stored := s.GetInt("k"); stored.Int64() != 3 {
		t.Errorf("stored %s, want 3", stored)
	}
}

func TestMemStore_SnapshotSkipsZeroes(t *testing.T) {
	s := store.NewMemStore()
	s.SetInt("a", big.NewInt(1))
	s.SetInt("b", big.NewInt(0))

	snap := s.Snapshot()
	if _, ok := snap["b"]; ok {
		t.Error("snapshot should omit zero entries")
	}
	if snap["a"].Int64() != 1 {
		t.Errorf("snapshot a = %s, want 1", snap["a"])
	}
}

func TestMemStore_RestoreRoundTrip(t *testing.T) {
	s := store.NewMemStore()
	s.SetInt("a", big.NewInt(7))

	s2 := store.NewMemStore()
	s2.Restore(s.Snapshot())

	if got := s2.GetInt("a"); got.Int64() != 7 {
		t.Errorf("restored a = %s, want 7", got)
	}
}

func TestMemStore_KeysSorted(t *testing.T) {
	s := store.NewMemStore()
	s.SetInt("c", big.NewInt(3))
	s.SetInt("a", big.NewInt(1))
	s.SetInt("b", big.NewInt(2))

	keys := s.Keys()
	want := []string{"a", "b", "c"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %s, want %s", i, keys[i], want[i])
		}
	}
}

// ============================================================================
// Test: Tx
// ============================================================================

func TestTx_ReadsFallThroughToBase(t *testing.T) {
	base := store.NewMemStore()
	base.SetInt("k", big.NewInt(4))

	tx := store.Begin(base)
	if got := tx.GetInt("k"); got.Int64() != 4 {
		t.Errorf("tx read %s, want 4", got)
	}
}

func TestTx_WritesInvisibleUntilCommit(t *testing.T) {
	base := store.NewMemStore()
	tx := store.Begin(base)
	tx.SetInt("k", big.NewInt(9))

	if got := base.GetInt("k"); got.Sign() != 0 {
		t.Errorf("base saw uncommitted write: %s", got)
	}
	if got := tx.GetInt("k"); got.Int64() != 9 {
		t.Errorf("tx read-your-writes failed: %s", got)
	}

	tx.Commit()
	if got := base.GetInt("k"); got.Int64() != 9 {
		t.Errorf("base after commit: %s, want 9", got)
	}
}

func TestTx_DiscardDropsEverything(t *testing.T) {
	base := store.NewMemStore()
	base.SetInt("k", big.NewInt(1))

	tx := store.Begin(base)
	tx.SetInt("k", big.NewInt(100))
	tx.SetInt("other", big.NewInt(50))
	tx.Discard()

	if got := base.GetInt("k"); got.Int64() != 1 {
		t.Errorf("k after discard: %s, want 1", got)
	}
	if got := base.GetInt("other"); got.Sign() != 0 {
		t.Errorf("other after discard: %s, want 0", got)
	}
}

func TestTx_WriteAfterFinishPanics(t *testing.T) {
	tx := store.Begin(store.NewMemStore())
	tx.Commit()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on write to finished tx")
		}
	}()
	tx.SetInt("k", big.NewInt(1))
}

func TestTx_Pending(t *testing.T) {
	tx := store.Begin(store.NewMemStore())
	tx.SetInt("a", big.NewInt(1))
	tx.SetInt("b", big.NewInt(2))
	tx.SetInt("a", big.NewInt(3))

	if got := tx.Pending(); got != 2 {
		t.Errorf("pending = %d, want 2", got)
	}
}

// ============================================================================
// Test: Keys
// ============================================================================

func TestKeys_DirectionDisambiguates(t *testing.T) {
	long := store.OpenInterestUsdKey("ETH-USD", "USDC", true)
	short := store.OpenInterestUsdKey("ETH-USD", "USDC", false)
	if long == short {
		t.Error("long and short open-interest keys must differ")
	}
}

func TestKeys_ClaimableFundingIncludesAccount(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	if store.ClaimableFundingKey("ETH-USD", "USDC", a) == store.ClaimableFundingKey("ETH-USD", "USDC", b) {
		t.Error("claimable funding keys must differ per account")
	}
}
