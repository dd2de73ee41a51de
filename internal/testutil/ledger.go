// Package testutil provides fixtures for ledger tests: a fluent builder for
// a populated finance service and a sample user graph for store tests.
//
// Example:
//
//	ledger := testutil.NewLedger(t).
//		WithUser("alice", "secret1").
//		Income("alice", "Salary", "50000").
//		Expense("alice", "Food", "3000")
//
//	session := ledger.Login("alice", "secret1")
package testutil

import (
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/finance"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Ledger wraps a finance service seeded through builder calls. Every call
// fails the test immediately on error.
type Ledger struct {
	Service   *finance.Service
	t         *testing.T
	passwords map[string]string
}

// NewLedger creates an empty ledger using the cheapest bcrypt cost.
func NewLedger(t *testing.T) *Ledger {
	t.Helper()
	return &Ledger{
		Service:   finance.NewService(finance.WithPasswordCost(bcrypt.MinCost)),
		t:         t,
		passwords: make(map[string]string),
	}
}

// Amount parses a decimal literal, failing the test on bad input.
func Amount(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad amount %q: %v", s, err)
	}
	return d
}

// WithUser registers a user.
func (l *Ledger) WithUser(login, password string) *Ledger {
	l.t.Helper()
	if _, err := l.Service.Register(login, password); err != nil {
		l.t.Fatalf("register %s: %v", login, err)
	}
	l.passwords[model.NormalizeLogin(login)] = password
	return l
}

// Income records income for login dated today.
func (l *Ledger) Income(login, category, amount string) *Ledger {
	l.t.Helper()
	l.as(login, func(s *finance.Session) error {
		_, err := s.AddIncome(category, Amount(l.t, amount), "", time.Time{})
		return err
	})
	return l
}

// Expense records an expense for login dated today.
func (l *Ledger) Expense(login, category, amount string) *Ledger {
	l.t.Helper()
	l.as(login, func(s *finance.Session) error {
		_, err := s.AddExpense(category, Amount(l.t, amount), "", time.Time{})
		return err
	})
	return l
}

// Budget sets a budget for login.
func (l *Ledger) Budget(login, category, limit string) *Ledger {
	l.t.Helper()
	l.as(login, func(s *finance.Session) error {
		return s.SetBudget(category, Amount(l.t, limit))
	})
	return l
}

// Login opens a new session for a user registered through WithUser.
func (l *Ledger) Login(login, password string) *finance.Session {
	l.t.Helper()
	s := l.Service.NewSession()
	if err := s.Login(login, password); err != nil {
		l.t.Fatalf("login %s: %v", login, err)
	}
	return s
}

func (l *Ledger) as(login string, fn func(*finance.Session) error) {
	l.t.Helper()
	password, ok := l.passwords[model.NormalizeLogin(login)]
	if !ok {
		l.t.Fatalf("user %s was not registered through the ledger builder", login)
	}
	s := l.Login(login, password)
	if err := fn(s); err != nil {
		l.t.Fatalf("%s: %v", login, err)
	}
}

// SampleUsers returns a small user graph exercising every stored field:
// alice has income, expenses, a budget with spent, a back-filled budget and
// an unused category; bob has a single income.
func SampleUsers(t *testing.T) map[string]*model.User {
	t.Helper()
	ledger := NewLedger(t).
		WithUser("alice", "secret1").
		WithUser("bob", "hunter22").
		Income("alice", "Salary", "50000").
		Budget("alice", "Food", "5000").
		Expense("alice", "Food", "4000.55").
		Expense("alice", "Transport", "120").
		Budget("alice", "Transport", "100").
		Income("bob", "Freelance", "1234.5")

	s := ledger.Login("alice", "secret1")
	if err := s.AddCategory("Books"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	return ledger.Service.Users()
}
