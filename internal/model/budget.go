package model

import (
	"fmt"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/shopspring/decimal"
)

// NearLimitPercentage is the usage at which a budget starts warning.
const NearLimitPercentage = 80.0

var hundred = decimal.NewFromInt(100)

// Budget caps spending in one category. Spent accumulates from creation or
// the last reset and may run past the limit.
type Budget struct {
	limit    decimal.Decimal
	spent    decimal.Decimal
	category string
}

// NewBudget creates a budget with nothing spent.
func NewBudget(category string, limit decimal.Decimal) (*Budget, error) {
	return RestoreBudget(category, limit, decimal.Zero)
}

// RestoreBudget rebuilds a budget from a stored snapshot, keeping its spent total.
func RestoreBudget(category string, limit, spent decimal.Decimal) (*Budget, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: budget category cannot be empty", common.ErrInvalidArgument)
	}
	if limit.IsNegative() {
		return nil, fmt.Errorf("%w: budget limit cannot be negative, got %s", common.ErrInvalidArgument, limit)
	}
	if spent.IsNegative() {
		return nil, fmt.Errorf("%w: budget spent cannot be negative, got %s", common.ErrInvalidArgument, spent)
	}
	return &Budget{category: category, limit: limit, spent: spent}, nil
}

// AddSpending adds amount to the spent total.
func (b *Budget) AddSpending(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: spending cannot be negative, got %s", common.ErrInvalidArgument, amount)
	}
	b.spent = b.spent.Add(amount)
	return nil
}

// UpdateLimit replaces the limit and leaves spent untouched.
func (b *Budget) UpdateLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return fmt.Errorf("%w: budget limit cannot be negative, got %s", common.ErrInvalidArgument, limit)
	}
	b.limit = limit
	return nil
}

// Reset zeroes the spent total.
func (b *Budget) Reset() {
	b.spent = decimal.Zero
}

// Category returns the budgeted category.
func (b Budget) Category() string { return b.category }

// Limit returns the spending cap.
func (b Budget) Limit() decimal.Decimal { return b.limit }

// Spent returns the accumulated spending.
func (b Budget) Spent() decimal.Decimal { return b.spent }

// Remaining returns limit minus spent, negative once over budget.
func (b Budget) Remaining() decimal.Decimal { return b.limit.Sub(b.spent) }

// UsagePercentage returns spent as a percentage of the limit, or 0 for a zero limit.
func (b Budget) UsagePercentage() float64 {
	if !b.limit.IsPositive() {
		return 0
	}
	pct, _ := b.spent.Div(b.limit).Mul(hundred).Float64()
	return pct
}

// Exceeded reports whether spending is over the limit.
func (b Budget) Exceeded() bool { return b.spent.GreaterThan(b.limit) }

// NearLimit reports whether usage reached the warning threshold.
func (b Budget) NearLimit() bool { return b.UsagePercentage() >= NearLimitPercentage }

// Equal reports whether both budgets cover the same category.
func (b Budget) Equal(other Budget) bool { return b.category == other.category }
