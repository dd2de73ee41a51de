package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tells whether a transaction brings money in or takes it out.
type Kind int

const (
	// KindIncome adds its amount to the wallet balance.
	KindIncome Kind = iota + 1
	// KindExpense subtracts its amount and counts against a budget.
	KindExpense
)

// String returns the canonical label used by the interchange formats.
func (k Kind) String() string {
	switch k {
	case KindIncome:
		return "income"
	case KindExpense:
		return "expense"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label returns the display label.
func (k Kind) Label() string {
	switch k {
	case KindIncome:
		return "Income"
	case KindExpense:
		return "Expense"
	default:
		return "Unknown"
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind accepts canonical, display and legacy localized labels.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "доход":
		return KindIncome, nil
	case "expense", "расход":
		return KindExpense, nil
	default:
		return 0, fmt.Errorf("%w: unknown transaction kind %q", common.ErrInvalidArgument, s)
	}
}

// Transaction is a single immutable income or expense record.
type Transaction struct {
	date        time.Time
	amount      decimal.Decimal
	id          string
	category    string
	description string
	kind        Kind
}

// TransactionOption sets an optional field when constructing a Transaction.
type TransactionOption func(*Transaction)

// WithID keeps a previously assigned id. An empty id is ignored.
func WithID(id string) TransactionOption {
	return func(t *Transaction) {
		if id = strings.TrimSpace(id); id != "" {
			t.id = id
		}
	}
}

// WithDate sets the transaction's calendar date. A zero time is ignored.
func WithDate(date time.Time) TransactionOption {
	return func(t *Transaction) {
		if !date.IsZero() {
			t.date = Day(date)
		}
	}
}

// NewTransaction validates its input and builds a Transaction dated today
// with a fresh id unless options say otherwise.
func NewTransaction(category string, amount decimal.Decimal, kind Kind, description string, opts ...TransactionOption) (Transaction, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return Transaction{}, fmt.Errorf("%w: category cannot be empty", common.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: amount must be positive, got %s", common.ErrInvalidArgument, amount)
	}
	if !kind.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown transaction kind %d", common.ErrInvalidArgument, int(kind))
	}

	t := Transaction{
		id:          uuid.NewString(),
		category:    category,
		amount:      amount,
		kind:        kind,
		date:        Today(),
		description: strings.TrimSpace(description),
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t, nil
}

// ID returns the transaction's unique id.
func (t Transaction) ID() string { return t.id }

// Category returns the transaction's category.
func (t Transaction) Category() string { return t.category }

// Amount returns the unsigned amount.
func (t Transaction) Amount() decimal.Decimal { return t.amount }

// Kind returns whether this is income or expense.
func (t Transaction) Kind() Kind { return t.kind }

// Date returns the calendar date at midnight UTC.
func (t Transaction) Date() time.Time { return t.date }

// Description returns the trimmed, possibly empty description.
func (t Transaction) Description() string { return t.description }

// IsIncome reports whether the transaction is income.
func (t Transaction) IsIncome() bool { return t.kind == KindIncome }

// IsExpense reports whether the transaction is an expense.
func (t Transaction) IsExpense() bool { return t.kind == KindExpense }

// SignedAmount returns the amount as it affects the balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.kind == KindExpense {
		return t.amount.Neg()
	}
	return t.amount
}

// Equal compares every field. Amounts are compared by value, so 10 and 10.00 match.
func (t Transaction) Equal(other Transaction) bool {
	return t.id == other.id &&
		t.category == other.category &&
		t.amount.Equal(other.amount) &&
		t.kind == other.kind &&
		t.date.Equal(other.date) &&
		t.description == other.description
}

// DateLayout is the ISO calendar date format used everywhere dates are rendered.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date, expressed as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current local calendar date as midnight UTC.
func Today() time.Time {
	return Day(time.Now())
}
