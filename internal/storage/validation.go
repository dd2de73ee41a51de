// Package storage persists the ledger's user graph as whole snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidUser  = errors.New("invalid user")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateUsers checks a snapshot before anything is written.
func validateUsers(users map[string]*model.User) error {
	if users == nil {
		return fmt.Errorf("%w: users", ErrNilParameter)
	}
	for key, u := range users {
		if u == nil {
			return fmt.Errorf("%w: user %q is nil", ErrInvalidUser, key)
		}
		if u.Wallet() == nil {
			return fmt.Errorf("%w: user %q has no wallet", ErrInvalidUser, key)
		}
		if key != u.Login() {
			return fmt.Errorf("%w: key %q does not match login %q", ErrInvalidUser, key, u.Login())
		}
	}
	return nil
}

func parseStoredDecimal(s, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return d, nil
}

func restoreTransaction(id, date, category, kind, amount, description string) (model.Transaction, error) {
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return model.Transaction{}, err
	}
	value, err := parseStoredDecimal(amount, "amount")
	if err != nil {
		return model.Transaction{}, err
	}
	return model.NewTransaction(category, value, k, description, model.WithID(id), model.WithDate(day))
}

func restoreBudget(category, limit, spent string) (*model.Budget, error) {
	l, err := parseStoredDecimal(limit, "limit")
	if err != nil {
		return nil, err
	}
	sp, err := parseStoredDecimal(spent, "spent")
	if err != nil {
		return nil, err
	}
	return model.RestoreBudget(category, l, sp)
}
