package persistence_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"MarginCore/internal/observability"
	"MarginCore/internal/persistence"
	"MarginCore/internal/testutil"
)

// ============================================================================
// Test: Migrator (requires Postgres)
// ============================================================================

func TestMigrator_UpIsIdempotent(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	logger := observability.NewLoggerWithLevel("migrator-test", zerolog.Disabled)
	m := persistence.NewMigrator(db, "../../migrations", logger)
	ctx := context.Background()

	if err := m.Up(ctx); err != nil {
		t.Fatalf("first up: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("second up: %v", err)
	}

	var applied int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM public.margin_schema_migrations WHERE version = '000001'`,
	).Scan(&applied)
	if err != nil {
		t.Fatalf("read bookkeeping: %v", err)
	}
	if applied != 1 {
		t.Errorf("version 000001 recorded %d times, want 1", applied)
	}

	// The migrated table is usable.
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM margin.snapshots`).Scan(&n); err != nil {
		t.Errorf("snapshots table missing after up: %v", err)
	}
}
