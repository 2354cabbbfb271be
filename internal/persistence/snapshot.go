// Package persistence stores periodic snapshots of the margin core's
// in-memory state in Postgres. The core itself never touches the
// database; a worker goroutine captures and writes snapshots on its own
// schedule, and recovery rebuilds the store and position set from the
// latest snapshot before ingestion resumes.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"MarginCore/internal/position"
)

// SnapshotData is the full serializable core state at one applied
// sequence. Ledger amounts travel as decimal strings; int64 would
// truncate 30-decimal values.
type SnapshotData struct {
	Sequence  int64             `json:"sequence"`
	Ledger    map[string]string `json:"ledger"`
	Positions []PositionRow     `json:"positions"`
	CreatedAt time.Time         `json:"created_at"`
}

// PositionRow is one serializable position record.
type PositionRow struct {
	Account         string `json:"account"`
	Market          string `json:"market"`
	CollateralToken string `json:"collateral_token"`
	IsLong          bool   `json:"is_long"`

	SizeInUsd        string `json:"size_in_usd"`
	SizeInTokens     string `json:"size_in_tokens"`
	CollateralAmount string `json:"collateral_amount"`

	BorrowingFactor            string `json:"borrowing_factor"`
	FundingFeeAmountPerSize    string `json:"funding_fee_amount_per_size"`
	ClaimableLongTokenPerSize  string `json:"claimable_long_token_per_size"`
	ClaimableShortTokenPerSize string `json:"claimable_short_token_per_size"`

	IncreasedAtTime int64 `json:"increased_at_time"`
	DecreasedAtTime int64 `json:"decreased_at_time"`
}

// SnapshotStore reads and writes snapshots.
type SnapshotStore struct {
	db *sql.DB
}

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save persists one snapshot. Saving the same sequence twice overwrites
// the stored payload, so a retried write is harmless.
func (ss *SnapshotStore) Save(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = ss.db.ExecContext(ctx, `
		INSERT INTO margin.snapshots (snapshot_id, sequence, data, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, size_bytes = $4
	`, uuid.New(), snap.Sequence, data, len(data), snap.CreatedAt)
	return err
}

// LoadLatest returns the most recent snapshot, or nil on a cold start.
func (ss *SnapshotStore) LoadLatest(ctx context.Context) (*SnapshotData, error) {
	row := ss.db.QueryRowContext(ctx, `
		SELECT data FROM margin.snapshots
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// LatestSequence returns the highest stored snapshot sequence, or zero
// when none exist.
func (ss *SnapshotStore) LatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := ss.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM margin.snapshots`).Scan(&seq); err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// Prune deletes all but the newest keep snapshots.
func (ss *SnapshotStore) Prune(ctx context.Context, keep int) error {
	_, err := ss.db.ExecContext(ctx, `
		DELETE FROM margin.snapshots
		WHERE sequence NOT IN (
			SELECT sequence FROM margin.snapshots ORDER BY sequence DESC LIMIT $1
		)
	`, keep)
	return err
}

// EncodeLedger converts in-memory ledger values to the wire form.
func EncodeLedger(values map[string]*big.Int) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v.String()
	}
	return out
}

// DecodeLedger converts wire-form ledger values back to big integers.
func DecodeLedger(values map[string]string) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(values))
	for k, s := range values {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("ledger key %s: invalid integer %q", k, s)
		}
		out[k] = v
	}
	return out, nil
}

// EncodePosition converts one position record to the wire form.
func EncodePosition(p *position.Position) PositionRow {
	return PositionRow{
		Account:                    p.Account.String(),
		Market:                     p.Market,
		CollateralToken:            p.CollateralToken,
		IsLong:                     p.IsLong,
		SizeInUsd:                  p.SizeInUsd.String(),
		SizeInTokens:               p.SizeInTokens.String(),
		CollateralAmount:           p.CollateralAmount.String(),
		BorrowingFactor:            p.BorrowingFactor.String(),
		FundingFeeAmountPerSize:    p.FundingFeeAmountPerSize.String(),
		ClaimableLongTokenPerSize:  p.ClaimableLongTokenPerSize.String(),
		ClaimableShortTokenPerSize: p.ClaimableShortTokenPerSize.String(),
		IncreasedAtTime:            p.IncreasedAtTime,
		DecreasedAtTime:            p.DecreasedAtTime,
	}
}

// DecodePosition converts one wire-form row back to a position record.
func DecodePosition(row PositionRow) (*position.Position, error) {
	account, err := uuid.Parse(row.Account)
	if err != nil {
		return nil, fmt.Errorf("position account: %w", err)
	}

	p := position.New(account, row.Market, row.CollateralToken, row.IsLong)
	for _, f := range []struct {
		raw  string
		name string
		dst  **big.Int
	}{
		{row.SizeInUsd, "size_in_usd", &p.SizeInUsd},
		{row.SizeInTokens, "size_in_tokens", &p.SizeInTokens},
		{row.CollateralAmount, "collateral_amount", &p.CollateralAmount},
		{row.BorrowingFactor, "borrowing_factor", &p.BorrowingFactor},
		{row.FundingFeeAmountPerSize, "funding_fee_amount_per_size", &p.FundingFeeAmountPerSize},
		{row.ClaimableLongTokenPerSize, "claimable_long_token_per_size", &p.ClaimableLongTokenPerSize},
		{row.ClaimableShortTokenPerSize, "claimable_short_token_per_size", &p.ClaimableShortTokenPerSize},
	} {
		v, ok := new(big.Int).SetString(f.raw, 10)
		if !ok {
			return nil, fmt.Errorf("position %s: invalid integer %q", f.name, f.raw)
		}
		*f.dst = v
	}
	p.IncreasedAtTime = row.IncreasedAtTime
	p.DecreasedAtTime = row.DecreasedAtTime
	return p, nil
}
