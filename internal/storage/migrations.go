package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
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

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS users (
					login TEXT PRIMARY KEY,
					password_hash TEXT NOT NULL,
					balance TEXT NOT NULL DEFAULT '0'
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					user_login TEXT NOT NULL,
					id TEXT NOT NULL,
					seq INTEGER NOT NULL,
					date TEXT NOT NULL,
					category TEXT NOT NULL,
					kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
					amount TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					PRIMARY KEY (user_login, id),
					FOREIGN KEY (user_login) REFERENCES users(login) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS budgets (
					user_login TEXT NOT NULL,
					category TEXT NOT NULL,
					limit_amount TEXT NOT NULL,
					spent TEXT NOT NULL DEFAULT '0',
					PRIMARY KEY (user_login, category),
					FOREIGN KEY (user_login) REFERENCES users(login) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS categories (
					user_login TEXT NOT NULL,
					name TEXT NOT NULL,
					PRIMARY KEY (user_login, name),
					FOREIGN KEY (user_login) REFERENCES users(login) ON DELETE CASCADE
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Index transactions by insertion order and date",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_seq ON transactions(user_login, seq)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(user_login, date)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Track snapshot metadata",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS snapshot_meta (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					saved_at DATETIME NOT NULL,
					user_count INTEGER NOT NULL
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
