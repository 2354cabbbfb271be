package position

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/google/uuid"

	"MarginCore/internal/fixed"
)

// Position is a leveraged exposure record. The (account, market,
// collateral token, direction) tuple is the primary key: at most one open
// position exists per tuple.
type Position struct {
	Account         uuid.UUID
	Market          string // Market token of the venue
	CollateralToken string
	IsLong          bool

	SizeInUsd        *big.Int // Unsigned notional, Precision-scaled USD
	SizeInTokens     *big.Int // Unsigned token-denominated notional
	CollateralAmount *big.Int // Unsigned, collateral-token units

	// Snapshots of the market accumulators at the last time this position
	// was touched. The deltas against the live accumulators price the
	// position's accrued borrowing and funding.
	BorrowingFactor            *big.Int
	FundingFeeAmountPerSize    *big.Int
	ClaimableLongTokenPerSize  *big.Int
	ClaimableShortTokenPerSize *big.Int

	IncreasedAtTime int64
	DecreasedAtTime int64
}

// Key is the fixed-size digest identifying a position.
type Key [32]byte

// DeriveKey derives the position key from the identity tuple. The digest
// is order-sensitive and deterministic; it is the sole lookup key for a
// position record. Variable-length fields carry a fixed 4-byte big-endian
// length prefix so no pair of identifiers can share canonical bytes.
func DeriveKey(account uuid.UUID, marketToken, collateralToken string, isLong bool) Key {
	buf := make([]byte, 0, 64)

	buf = append(buf, account[:]...)
	buf = appendLenPrefixed(buf, marketToken)
	buf = appendLenPrefixed(buf, collateralToken)

	if isLong {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	return Key(sha256.Sum256(buf))
}

func appendLenPrefixed(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// Key returns the position's derived key.
func (p *Position) Key() Key {
	return DeriveKey(p.Account, p.Market, p.CollateralToken, p.IsLong)
}

// IsEmpty reports whether any of the non-empty-position fields is zero.
func (p *Position) IsEmpty() bool {
	return fixed.Zero(p.SizeInUsd) || fixed.Zero(p.SizeInTokens) || fixed.Zero(p.CollateralAmount)
}

// Clone returns a deep copy. Operations mutate a clone and swap it in
// only after the whole operation succeeds.
func (p *Position) Clone() *Position {
	return &Position{
		Account:                    p.Account,
		Market:                     p.Market,
		CollateralToken:            p.CollateralToken,
		IsLong:                     p.IsLong,
		SizeInUsd:                  fixed.Clone(p.SizeInUsd),
		SizeInTokens:               fixed.Clone(p.SizeInTokens),
		CollateralAmount:           fixed.Clone(p.CollateralAmount),
		BorrowingFactor:            fixed.Clone(p.BorrowingFactor),
		FundingFeeAmountPerSize:    fixed.Clone(p.FundingFeeAmountPerSize),
		ClaimableLongTokenPerSize:  fixed.Clone(p.ClaimableLongTokenPerSize),
		ClaimableShortTokenPerSize: fixed.Clone(p.ClaimableShortTokenPerSize),
		IncreasedAtTime:            p.IncreasedAtTime,
		DecreasedAtTime:            p.DecreasedAtTime,
	}
}

// New returns an empty position for the identity tuple with all numeric
// fields zeroed.
func New(account uuid.UUID, marketToken, collateralToken string, isLong bool) *Position {
	return &Position{
		Account:                    account,
		Market:                     marketToken,
		CollateralToken:            collateralToken,
		IsLong:                     isLong,
		SizeInUsd:                  new(big.Int),
		SizeInTokens:               new(big.Int),
		CollateralAmount:           new(big.Int),
		BorrowingFactor:            new(big.Int),
		FundingFeeAmountPerSize:    new(big.Int),
		ClaimableLongTokenPerSize:  new(big.Int),
		ClaimableShortTokenPerSize: new(big.Int),
	}
}
