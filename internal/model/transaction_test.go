package model

import (
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction_Defaults(t *testing.T) {
	tx, err := NewTransaction("  Food ", dec("12.50"), KindExpense, "  lunch  ")
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID())
	assert.Equal(t, "Food", tx.Category())
	assert.Equal(t, "lunch", tx.Description())
	assert.Equal(t, Today(), tx.Date())
	assert.True(t, tx.SignedAmount().Equal(dec("-12.50")))
	assert.True(t, tx.IsExpense())

	other, err := NewTransaction("Food", dec("1"), KindExpense, "")
	require.NoError(t, err)
	assert.NotEqual(t, tx.ID(), other.ID())
}

func TestNewTransaction_Reconstruct(t *testing.T) {
	date := time.Date(2024, 3, 15, 18, 30, 0, 0, time.FixedZone("EST", -5*3600))
	tx, err := NewTransaction("Salary", dec("50000"), KindIncome, "", WithID("tx-1"), WithDate(date))
	require.NoError(t, err)

	assert.Equal(t, "tx-1", tx.ID())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), tx.Date())
	assert.Empty(t, tx.Description())
	assert.True(t, tx.SignedAmount().Equal(dec("50000")))
}

func TestNewTransaction_Validation(t *testing.T) {
	tests := []struct {
		name     string
		category string
		amount   string
		kind     Kind
	}{
		{name: "blank category", category: " ", amount: "1", kind: KindIncome},
		{name: "zero amount", category: "Food", amount: "0", kind: KindExpense},
		{name: "negative amount", category: "Food", amount: "-3", kind: KindExpense},
		{name: "unknown kind", category: "Food", amount: "3", kind: Kind(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTransaction(tt.category, dec(tt.amount), tt.kind, "")
			require.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"income", KindIncome},
		{"Income", KindIncome},
		{"INCOME", KindIncome},
		{"Доход", KindIncome},
		{" expense ", KindExpense},
		{"Расход", KindExpense},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseKind("refund")
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestTransaction_Equal(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a, err := NewTransaction("Food", dec("10"), KindExpense, "x", WithID("a"), WithDate(date))
	require.NoError(t, err)
	b, err := NewTransaction("Food", dec("10.00"), KindExpense, "x", WithID("a"), WithDate(date))
	require.NoError(t, err)
	c, err := NewTransaction("Food", dec("10"), KindIncome, "x", WithID("a"), WithDate(date))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
