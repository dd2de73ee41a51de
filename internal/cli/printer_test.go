package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/finance"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Error(common.NewUserError("Could not reach the store", errors.New("disk I/O error")))
	p.Error(errors.New("plain failure"))

	assert.Contains(t, buf.String(), "Could not reach the store")
	assert.NotContains(t, buf.String(), "disk I/O error")
	assert.Contains(t, buf.String(), "plain failure")
}

func TestPrinter_Budgets(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Budgets([]finance.BudgetStatus{
		{Category: "Food", Limit: decimal.NewFromInt(100), Spent: decimal.NewFromInt(85), Remaining: decimal.NewFromInt(15), UsagePercentage: 85, NearLimit: true},
		{Category: "Taxi", Limit: decimal.NewFromInt(10), Spent: decimal.NewFromInt(12), Remaining: decimal.NewFromInt(-2), UsagePercentage: 120, Exceeded: true, NearLimit: true},
	})

	out := buf.String()
	assert.Contains(t, out, "near limit")
	assert.Contains(t, out, "EXCEEDED")
	assert.Contains(t, out, "-2.00")
	assert.Contains(t, out, "120.0%")
}

func TestPrinter_Amounts(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Amounts("Expenses", []finance.CategoryAmount{
		{Category: "Food", Amount: decimal.RequireFromString("10.005")},
		{Category: "Rent", Amount: decimal.NewFromInt(500)},
	})
	assert.Contains(t, buf.String(), "510.01")

	buf.Reset()
	NewPrinter(&buf).Amounts("Expenses", nil)
	assert.Contains(t, buf.String(), "No expenses found.")
}
