package finance

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/notification"
	"github.com/shopspring/decimal"
)

// ErrNotAuthenticated is returned by session operations that need a logged-in user.
var ErrNotAuthenticated = fmt.Errorf("%w: not authenticated", common.ErrInvalidState)

// Session is one front end's view of the ledger: either logged out or bound
// to a single user. Alerts raised by the session's operations collect in its
// notification queue.
type Session struct {
	service       *Service
	user          *model.User
	notifications *notification.Service
}

func newSession(s *Service) *Session {
	return &Session{
		service:       s,
		notifications: notification.New(),
	}
}

// Login binds the session to the user and surfaces alerts already pending
// in that user's wallet. A successful login replaces any previous user.
func (s *Session) Login(login, password string) error {
	user, err := s.service.Authenticate(login, password)
	if err != nil {
		return err
	}

	s.user = user
	s.notifications.Clear()
	s.notifications.CheckInitialNotifications(user.Wallet())

	slog.Info("User logged in", "login", user.Login())
	return nil
}

// Logout unbinds the user and drops pending alerts.
func (s *Session) Logout() {
	if s.user != nil {
		slog.Info("User logged out", "login", s.user.Login())
	}
	s.user = nil
	s.notifications.Clear()
}

// IsAuthenticated reports whether a user is bound.
func (s *Session) IsAuthenticated() bool { return s.user != nil }

// CurrentLogin returns the bound user's login, or "" when logged out.
func (s *Session) CurrentLogin() string {
	if s.user == nil {
		return ""
	}
	return s.user.Login()
}

func (s *Session) wallet() (*model.Wallet, error) {
	if s.user == nil {
		return nil, ErrNotAuthenticated
	}
	return s.user.Wallet(), nil
}

// Balance returns the bound user's balance.
func (s *Session) Balance() (decimal.Decimal, error) {
	w, err := s.wallet()
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance(), nil
}

// AddIncome records income. A zero date means today.
func (s *Session) AddIncome(category string, amount decimal.Decimal, description string, date time.Time) (model.Transaction, error) {
	w, err := s.wallet()
	if err != nil {
		return model.Transaction{}, err
	}
	tx, err := model.NewTransaction(category, amount, model.KindIncome, description, model.WithDate(date))
	if err != nil {
		return model.Transaction{}, err
	}
	if err := w.AddTransaction(tx); err != nil {
		return model.Transaction{}, err
	}
	slog.Debug("Income added", "login", s.user.Login(), "category", tx.Category(), "amount", tx.Amount().String())
	return tx, nil
}

// AddExpense records an expense and checks the category's budget and the balance.
func (s *Session) AddExpense(category string, amount decimal.Decimal, description string, date time.Time) (model.Transaction, error) {
	w, err := s.wallet()
	if err != nil {
		return model.Transaction{}, err
	}
	tx, err := model.NewTransaction(category, amount, model.KindExpense, description, model.WithDate(date))
	if err != nil {
		return model.Transaction{}, err
	}
	if err := w.AddTransaction(tx); err != nil {
		return model.Transaction{}, err
	}
	s.notifications.CheckAfterExpense(w, tx.Category())
	slog.Debug("Expense added", "login", s.user.Login(), "category", tx.Category(), "amount", tx.Amount().String())
	return tx, nil
}

// Transfer sends amount to another user. The sender's wallet is checked
// for alerts afterwards, like any expense.
func (s *Session) Transfer(toLogin string, amount decimal.Decimal, description string) error {
	from, err := s.wallet()
	if err != nil {
		return err
	}
	recipient, ok := s.service.User(toLogin)
	if !ok {
		return fmt.Errorf("%w: user %s", common.ErrNotFound, model.NormalizeLogin(toLogin))
	}

	sent, _, err := model.Transfer(model.TransferRequest{
		From:        from,
		To:          recipient.Wallet(),
		FromLogin:   s.user.Login(),
		ToLogin:     recipient.Login(),
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return err
	}

	s.notifications.CheckAfterExpense(from, sent.Category())
	slog.Info("Transfer completed",
		"from", s.user.Login(),
		"to", recipient.Login(),
		"amount", amount.String())
	return nil
}

// ClearTransactions wipes the bound user's transactions and resets budgets.
func (s *Session) ClearTransactions() error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	w.ClearTransactions()
	slog.Info("Transactions cleared", "login", s.user.Login())
	return nil
}

// SetBudget creates a budget for category.
func (s *Session) SetBudget(category string, limit decimal.Decimal) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	return w.SetBudget(category, limit)
}

// UpdateBudget changes an existing budget's limit.
func (s *Session) UpdateBudget(category string, limit decimal.Decimal) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	return w.UpdateBudget(category, limit)
}

// RemoveBudget drops a budget if it exists.
func (s *Session) RemoveBudget(category string) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	w.RemoveBudget(category)
	return nil
}

// AddCategory registers a category.
func (s *Session) AddCategory(category string) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	return w.AddCategory(category)
}

// RemoveCategory forgets a category with no transactions.
func (s *Session) RemoveCategory(category string) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	return w.RemoveCategory(category)
}

// ImportTransactions adds a batch of transactions to the bound wallet.
func (s *Session) ImportTransactions(txs []model.Transaction) error {
	w, err := s.wallet()
	if err != nil {
		return err
	}
	if err := w.ImportTransactions(txs); err != nil {
		return err
	}
	slog.Info("Transactions imported", "login", s.user.Login(), "count", len(txs))
	return nil
}

// Transactions returns the bound wallet's transactions in insertion order.
func (s *Session) Transactions() ([]model.Transaction, error) {
	w, err := s.wallet()
	if err != nil {
		return nil, err
	}
	return w.Transactions(), nil
}

// Notifications returns the pending alerts.
func (s *Session) Notifications() []string {
	return s.notifications.Notifications()
}

// ClearNotifications drops the pending alerts.
func (s *Session) ClearNotifications() {
	s.notifications.Clear()
}
