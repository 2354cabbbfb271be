package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// migrationTable lives outside the margin schema so rolling the schema
// migration back does not destroy its own bookkeeping.
const migrationTable = "public.margin_schema_migrations"

// Migrator applies the margin schema migrations in version order.
// File naming follows golang-migrate: {version}_{name}.up.sql / .down.sql.
type Migrator struct {
	db            *sql.DB
	migrationsDir string
	logger        zerolog.Logger
}

func NewMigrator(db *sql.DB, migrationsDir string, logger zerolog.Logger) *Migrator {
	return &Migrator{db: db, migrationsDir: migrationsDir, logger: logger}
}

// Up applies every pending up-migration. Each migration and its
// bookkeeping row commit in one transaction, so a failed migration
// leaves no partial record and the next run retries it.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("get applied versions: %w", err)
	}

	files, err := m.listMigrationFiles(".up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	pending := 0
	for _, f := range files {
		version := extractVersion(f)
		if applied[version] {
			continue
		}

		sqlText, err := m.readMigration(f)
		if err != nil {
			return err
		}
		record := statement{
			query: fmt.Sprintf(`INSERT INTO %s (version, filename) VALUES ($1, $2)`, migrationTable),
			args:  []interface{}{version, f},
		}
		if err := m.runInTx(ctx, statement{query: sqlText}, record); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}

		pending++
		m.logger.Info().Str("migration", f).Msg("migration applied")
	}

	if pending == 0 {
		m.logger.Info().Msg("schema up to date")
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	var version, filename string
	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version, filename FROM %s ORDER BY version DESC LIMIT 1`, migrationTable),
	).Scan(&version, &filename)
	if err == sql.ErrNoRows {
		m.logger.Info().Msg("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get latest migration: %w", err)
	}

	downFile := strings.Replace(filename, ".up.sql", ".down.sql", 1)
	sqlText, err := m.readMigration(downFile)
	if err != nil {
		return err
	}
	remove := statement{
		query: fmt.Sprintf(`DELETE FROM %s WHERE version = $1`, migrationTable),
		args:  []interface{}{version},
	}
	if err := m.runInTx(ctx, statement{query: sqlText}, remove); err != nil {
		return fmt.Errorf("roll back migration %s: %w", downFile, err)
	}

	m.logger.Info().Str("migration", downFile).Msg("migration rolled back")
	return nil
}

type statement struct {
	query string
	args  []interface{}
}

// runInTx executes the statements in order inside one transaction.
func (m *Migrator) runInTx(ctx context.Context, stmts ...statement) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (m *Migrator) readMigration(name string) (string, error) {
	content, err := os.ReadFile(filepath.Join(m.migrationsDir, name))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(content), nil
}

func (m *Migrator) ensureMigrationTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    TEXT PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, migrationTable))
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`SELECT version FROM %s`, migrationTable))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) listMigrationFiles(suffix string) ([]string, error) {
	entries, err := os.ReadDir(m.migrationsDir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

// extractVersion returns the numeric prefix from a migration filename,
// e.g. "000001_snapshots.up.sql" yields "000001".
func extractVersion(filename string) string {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) > 0 {
		return parts[0]
	}
	return filename
}
