package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// JSONFileStorage keeps the user graph in a single JSON document that is
// rewritten whole on every save.
type JSONFileStorage struct {
	path  string
	retry common.RetryOptions
}

type userRecord struct {
	Login        string       `json:"login"`
	PasswordHash string       `json:"password_hash"`
	Wallet       walletRecord `json:"wallet"`
}

type walletRecord struct {
	Balance      decimal.Decimal     `json:"balance"`
	Transactions []transactionRecord `json:"transactions"`
	Budgets      []budgetRecord      `json:"budgets"`
	Categories   []string            `json:"categories"`
}

type transactionRecord struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type budgetRecord struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
}

// NewJSONFileStorage creates a store backed by path. The file is created on first save.
func NewJSONFileStorage(path string) (*JSONFileStorage, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONFileStorage{path: path, retry: common.DefaultRetryOptions()}, nil
}

// Path returns the backing file path.
func (s *JSONFileStorage) Path() string { return s.path }

// Close is a no-op; the file is not held open.
func (s *JSONFileStorage) Close() error { return nil }

// LoadUsers reads the file. A missing file is an empty dataset.
func (s *JSONFileStorage) LoadUsers(ctx context.Context) (map[string]*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]*model.User), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	var records []userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrDatabaseCorrupted, s.path, err)
	}

	users := make(map[string]*model.User, len(records))
	for _, rec := range records {
		user, err := rec.toUser()
		if err != nil {
			return nil, fmt.Errorf("%w: user %s: %w", common.ErrDatabaseCorrupted, rec.Login, err)
		}
		if _, dup := users[user.Login()]; dup {
			return nil, fmt.Errorf("%w: user %s appears twice", common.ErrDatabaseCorrupted, user.Login())
		}
		users[user.Login()] = user
	}

	slog.Debug("Loaded user snapshot", "users", len(users), "file", s.path)
	return users, nil
}

// SaveUsers writes users to a temporary file and renames it over the old one.
func (s *JSONFileStorage) SaveUsers(ctx context.Context, users map[string]*model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateUsers(users); err != nil {
		return err
	}

	records := make([]userRecord, 0, len(users))
	for _, login := range sortedLogins(users) {
		records = append(records, fromUser(users[login]))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	err = common.WithRetry(ctx, func() error {
		return writeFileAtomic(s.path, data)
	}, s.retry)
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}

	slog.Debug("Saved user snapshot", "users", len(users), "file", s.path)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &common.RetryableError{Err: fmt.Errorf("failed to replace %s: %w", path, err), Retryable: true}
	}
	return nil
}

func fromUser(u *model.User) userRecord {
	w := u.Wallet()
	rec := userRecord{
		Login:        u.Login(),
		PasswordHash: u.PasswordHash(),
		Wallet: walletRecord{
			Balance:      w.Balance(),
			Transactions: []transactionRecord{},
			Budgets:      []budgetRecord{},
			Categories:   w.Categories(),
		},
	}
	for _, tx := range w.Transactions() {
		rec.Wallet.Transactions = append(rec.Wallet.Transactions, transactionRecord{
			ID:          tx.ID(),
			Date:        tx.Date().Format(model.DateLayout),
			Category:    tx.Category(),
			Kind:        tx.Kind().String(),
			Amount:      tx.Amount(),
			Description: tx.Description(),
		})
	}
	for _, b := range w.Budgets() {
		rec.Wallet.Budgets = append(rec.Wallet.Budgets, budgetRecord{
			Category: b.Category(),
			Limit:    b.Limit(),
			Spent:    b.Spent(),
		})
	}
	return rec
}

func (r userRecord) toUser() (*model.User, error) {
	login := model.NormalizeLogin(r.Login)

	txns := make([]model.Transaction, 0, len(r.Wallet.Transactions))
	for _, t := range r.Wallet.Transactions {
		txn, err := restoreTransaction(t.ID, t.Date, t.Category, t.Kind, t.Amount.String(), t.Description)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		txns = append(txns, txn)
	}

	budgets := make([]*model.Budget, 0, len(r.Wallet.Budgets))
	for _, b := range r.Wallet.Budgets {
		budget, err := model.RestoreBudget(b.Category, b.Limit, b.Spent)
		if err != nil {
			return nil, fmt.Errorf("budget %q: %w", b.Category, err)
		}
		budgets = append(budgets, budget)
	}

	wallet, err := model.RestoreWallet(login, r.Wallet.Balance, txns, budgets, r.Wallet.Categories)
	if err != nil {
		return nil, err
	}
	return model.RestoreUser(login, r.PasswordHash, wallet)
}
