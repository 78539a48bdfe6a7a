package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/ledgerscope/internal/common"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// Column types are portable between sqlite and postgres. Money and
// timestamps are stored as text so values round-trip exactly.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: execAll(
			`CREATE TABLE IF NOT EXISTS branches (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL,
				city TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS customers (
				id BIGINT PRIMARY KEY,
				first_name TEXT NOT NULL DEFAULT '',
				last_name TEXT NOT NULL DEFAULT '',
				branch_id BIGINT
			)`,
			`CREATE TABLE IF NOT EXISTS employees (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL DEFAULT '',
				position TEXT NOT NULL DEFAULT '',
				branch_id BIGINT
			)`,
			`CREATE TABLE IF NOT EXISTS accounts (
				id BIGINT PRIMARY KEY,
				branch_id BIGINT,
				account_type TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				balance TEXT NOT NULL DEFAULT '0',
				opened_at TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS account_owners (
				account_id BIGINT NOT NULL,
				customer_id BIGINT NOT NULL,
				PRIMARY KEY (account_id, customer_id)
			)`,
			`CREATE TABLE IF NOT EXISTS transactions (
				id BIGINT PRIMARY KEY,
				account_id BIGINT NOT NULL,
				employee_id BIGINT,
				transaction_type TEXT NOT NULL,
				amount TEXT NOT NULL,
				occurred_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS transfers (
				id BIGINT PRIMARY KEY,
				from_account_id BIGINT NOT NULL,
				to_account_id BIGINT NOT NULL,
				amount TEXT NOT NULL,
				initiated_at TEXT,
				transaction_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS fees (
				id BIGINT PRIMARY KEY,
				account_id BIGINT NOT NULL,
				fee_type TEXT NOT NULL DEFAULT '',
				amount TEXT NOT NULL,
				fee_date TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS loans (
				id BIGINT PRIMARY KEY,
				account_id BIGINT NOT NULL,
				customer_id BIGINT,
				loan_type TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'active',
				principal TEXT NOT NULL,
				interest_rate TEXT NOT NULL DEFAULT '0',
				start_date TEXT,
				end_date TEXT
			)`,
		),
	},
	{
		Version:     2,
		Description: "Index postings by account and time",
		Up: execAll(
			`CREATE INDEX IF NOT EXISTS idx_transactions_account_time ON transactions(account_id, occurred_at)`,
			`CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_account_id, transaction_at)`,
			`CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_account_id, transaction_at)`,
			`CREATE INDEX IF NOT EXISTS idx_fees_account_date ON fees(account_id, fee_date)`,
		),
	},
	{
		Version:     3,
		Description: "Index loans and accounts for ranking queries",
		Up: execAll(
			`CREATE INDEX IF NOT EXISTS idx_loans_account ON loans(account_id)`,
			`CREATE INDEX IF NOT EXISTS idx_accounts_branch ON accounts(branch_id)`,
		),
	},
}

func execAll(queries ...string) func(*sql.Tx) error {
	return func(tx *sql.Tx) error {
		for _, query := range queries {
			if _, err := tx.Exec(query); err != nil {
				return fmt.Errorf("failed to execute query '%s': %w", query, err)
			}
		}
		return nil
	}
}

// Migrate applies all pending database migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if currentVersion > ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than supported version %d",
			common.ErrDatabaseCorrupted, currentVersion, ExpectedSchemaVersion)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if upErr := migration.Up(tx); upErr != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
			}
			if setErr := s.setSchemaVersion(ctx, tx, migration.Version); setErr != nil {
				return fmt.Errorf("failed to update schema version: %w", setErr)
			}
			return nil
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description,
			"driver", s.driver)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("%w: schema version mismatch: expected %d, got %d",
			common.ErrDatabaseCorrupted, ExpectedSchemaVersion, finalVersion)
	}
	return nil
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if s.driver == DriverSQLite {
		if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
			return 0, fmt.Errorf("failed to get schema version: %w", err)
		}
		return version, nil
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	if s.driver == DriverSQLite {
		_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version))
		return err
	}
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO schema_version (version) VALUES (?)`), version)
	return err
}
