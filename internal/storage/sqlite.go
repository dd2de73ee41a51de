package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteStorage keeps the user graph in a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
	retry  common.RetryOptions
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
		retry:  common.DefaultRetryOptions(),
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string { return s.dbPath }

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveUsers replaces everything stored with users in one SQL transaction.
// Busy or locked databases are retried with backoff.
func (s *SQLiteStorage) SaveUsers(ctx context.Context, users map[string]*model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUsers(users); err != nil {
		return err
	}

	err := common.WithRetry(ctx, func() error {
		return classifySQLiteError(s.saveUsers(ctx, users))
	}, s.retry)
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}

	slog.Debug("Saved user snapshot", "users", len(users), "database", s.dbPath)
	return nil
}

func (s *SQLiteStorage) saveUsers(ctx context.Context, users map[string]*model.User) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"transactions", "budgets", "categories", "users"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	insertUser, err := tx.PrepareContext(ctx, `INSERT INTO users (login, password_hash, balance) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user insert: %w", err)
	}
	defer func() { _ = insertUser.Close() }()

	insertTxn, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(user_login, id, seq, date, category, kind, amount, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer func() { _ = insertTxn.Close() }()

	insertBudget, err := tx.PrepareContext(ctx, `INSERT INTO budgets (user_login, category, limit_amount, spent) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare budget insert: %w", err)
	}
	defer func() { _ = insertBudget.Close() }()

	insertCategory, err := tx.PrepareContext(ctx, `INSERT INTO categories (user_login, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare category insert: %w", err)
	}
	defer func() { _ = insertCategory.Close() }()

	for _, login := range sortedLogins(users) {
		user := users[login]
		wallet := user.Wallet()

		if _, err = insertUser.ExecContext(ctx, user.Login(), user.PasswordHash(), wallet.Balance().String()); err != nil {
			return fmt.Errorf("failed to save user %s: %w", user.Login(), err)
		}
		for seq, txn := range wallet.Transactions() {
			if _, err = insertTxn.ExecContext(ctx,
				user.Login(), txn.ID(), seq, txn.Date().Format(model.DateLayout), txn.Category(),
				txn.Kind().String(), txn.Amount().String(), txn.Description()); err != nil {
				return fmt.Errorf("failed to save transaction %s for %s: %w", txn.ID(), user.Login(), err)
			}
		}
		for _, b := range wallet.Budgets() {
			if _, err = insertBudget.ExecContext(ctx, user.Login(), b.Category(), b.Limit().String(), b.Spent().String()); err != nil {
				return fmt.Errorf("failed to save budget %q for %s: %w", b.Category(), user.Login(), err)
			}
		}
		for _, c := range wallet.Categories() {
			if _, err = insertCategory.ExecContext(ctx, user.Login(), c); err != nil {
				return fmt.Errorf("failed to save category %q for %s: %w", c, user.Login(), err)
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO snapshot_meta (id, saved_at, user_count) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, user_count = excluded.user_count`,
		time.Now().UTC(), len(users)); err != nil {
		return fmt.Errorf("failed to record snapshot metadata: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

type walletRows struct {
	balance    decimal.Decimal
	hash       string
	txns       []model.Transaction
	budgets    []*model.Budget
	categories []string
}

// LoadUsers reads the whole user graph.
func (s *SQLiteStorage) LoadUsers(ctx context.Context) (map[string]*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rowsByUser, err := s.loadUserRows(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loadTransactionRows(ctx, rowsByUser); err != nil {
		return nil, err
	}
	if err := s.loadBudgetRows(ctx, rowsByUser); err != nil {
		return nil, err
	}
	if err := s.loadCategoryRows(ctx, rowsByUser); err != nil {
		return nil, err
	}

	users := make(map[string]*model.User, len(rowsByUser))
	for login, rows := range rowsByUser {
		wallet, err := model.RestoreWallet(login, rows.balance, rows.txns, rows.budgets, rows.categories)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabaseCorrupted, err)
		}
		user, err := model.RestoreUser(login, rows.hash, wallet)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrDatabaseCorrupted, err)
		}
		users[user.Login()] = user
	}

	slog.Debug("Loaded user snapshot", "users", len(users), "database", s.dbPath)
	return users, nil
}

func (s *SQLiteStorage) loadUserRows(ctx context.Context) (map[string]*walletRows, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT login, password_hash, balance FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*walletRows)
	for rows.Next() {
		var login, hash, balance string
		if err := rows.Scan(&login, &hash, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		amount, err := parseStoredDecimal(balance, "balance of "+login)
		if err != nil {
			return nil, err
		}
		out[login] = &walletRows{hash: hash, balance: amount}
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) loadTransactionRows(ctx context.Context, byUser map[string]*walletRows) error {
	rows, err := s.db.QueryContext(ctx, `SELECT user_login, id, date, category, kind, amount, description
		FROM transactions ORDER BY user_login, seq`)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var login, id, date, category, kind, amount, description string
		if err := rows.Scan(&login, &id, &date, &category, &kind, &amount, &description); err != nil {
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		owner, ok := byUser[login]
		if !ok {
			return fmt.Errorf("%w: transaction %s belongs to unknown user %s", common.ErrDatabaseCorrupted, id, login)
		}
		txn, err := restoreTransaction(id, date, category, kind, amount, description)
		if err != nil {
			return fmt.Errorf("%w: transaction %s: %w", common.ErrDatabaseCorrupted, id, err)
		}
		owner.txns = append(owner.txns, txn)
	}
	return rows.Err()
}

func (s *SQLiteStorage) loadBudgetRows(ctx context.Context, byUser map[string]*walletRows) error {
	rows, err := s.db.QueryContext(ctx, `SELECT user_login, category, limit_amount, spent FROM budgets`)
	if err != nil {
		return fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var login, category, limit, spent string
		if err := rows.Scan(&login, &category, &limit, &spent); err != nil {
			return fmt.Errorf("failed to scan budget: %w", err)
		}
		owner, ok := byUser[login]
		if !ok {
			return fmt.Errorf("%w: budget %q belongs to unknown user %s", common.ErrDatabaseCorrupted, category, login)
		}
		b, err := restoreBudget(category, limit, spent)
		if err != nil {
			return fmt.Errorf("%w: budget %q: %w", common.ErrDatabaseCorrupted, category, err)
		}
		owner.budgets = append(owner.budgets, b)
	}
	return rows.Err()
}

func (s *SQLiteStorage) loadCategoryRows(ctx context.Context, byUser map[string]*walletRows) error {
	rows, err := s.db.QueryContext(ctx, `SELECT user_login, name FROM categories`)
	if err != nil {
		return fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var login, name string
		if err := rows.Scan(&login, &name); err != nil {
			return fmt.Errorf("failed to scan category: %w", err)
		}
		if owner, ok := byUser[login]; ok {
			owner.categories = append(owner.categories, name)
		}
	}
	return rows.Err()
}

// LastSaved returns when the last snapshot was written. ok is false when
// nothing has been saved yet.
func (s *SQLiteStorage) LastSaved(ctx context.Context) (savedAt time.Time, users int, ok bool, err error) {
	if err = validateContext(ctx); err != nil {
		return time.Time{}, 0, false, err
	}
	err = s.db.QueryRowContext(ctx, `SELECT saved_at, user_count FROM snapshot_meta WHERE id = 1`).Scan(&savedAt, &users)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, 0, false, nil
	}
	if err != nil {
		return time.Time{}, 0, false, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	return savedAt, users, true, nil
}

// classifySQLiteError marks busy and locked errors as retryable.
func classifySQLiteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return &common.RetryableError{Err: err, Retryable: true}
	}
	return err
}

func sortedLogins(users map[string]*model.User) []string {
	logins := make([]string, 0, len(users))
	for login := range users {
		logins = append(logins, login)
	}
	sort.Strings(logins)
	return logins
}
