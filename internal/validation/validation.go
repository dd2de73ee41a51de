// Package validation checks raw user input before it reaches the ledger.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 4

// MaxAmount is the largest amount accepted from input.
var MaxAmount = decimal.NewFromInt(1_000_000_000)

var (
	loginPattern    = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)
	categoryPattern = regexp.MustCompile(`^[\p{L}0-9\s_\-]{1,50}$`)
)

// Login checks a login: 3 to 20 letters, digits or underscores.
func Login(login string) error {
	if !loginPattern.MatchString(strings.TrimSpace(login)) {
		return fmt.Errorf("%w: login must be 3-20 characters of letters, digits or underscore", common.ErrInvalidArgument)
	}
	return nil
}

// Password checks the minimum length.
func Password(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidArgument, MinPasswordLength)
	}
	return nil
}

// Category checks a category name: up to 50 letters, digits, spaces, underscores or hyphens.
func Category(category string) error {
	if !categoryPattern.MatchString(strings.TrimSpace(category)) {
		return fmt.Errorf("%w: category must be 1-50 letters, digits, spaces, '_' or '-'", common.ErrInvalidArgument)
	}
	return nil
}

// ParseAmount parses a positive amount no larger than MaxAmount. A decimal
// comma is accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", common.ErrInvalidArgument, s)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", common.ErrInvalidArgument)
	}
	if amount.GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: amount cannot exceed %s", common.ErrInvalidArgument, MaxAmount)
	}
	return amount, nil
}

// ParseLimit parses a budget limit, which may be zero.
func ParseLimit(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "0" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// ParseDate parses an ISO date. Blank input means today.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.Today(), nil
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must look like 2024-01-31", common.ErrInvalidArgument)
	}
	return d, nil
}

// DateRange checks that start is not after end.
func DateRange(start, end time.Time) error {
	if model.Day(start).After(model.Day(end)) {
		return fmt.Errorf("%w: start date is after end date", common.ErrInvalidArgument)
	}
	return nil
}

// ParseCategoryList splits a comma-separated list, dropping blanks and duplicates.
func ParseCategoryList(s string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		c := strings.TrimSpace(part)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no categories given", common.ErrInvalidArgument)
	}
	return out, nil
}
