package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// Summary totals a wallet.
type Summary struct {
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	Balance          decimal.Decimal
	TransactionCount int
}

// CategorySummary is the income and expense of one category plus its budget, if any.
type CategorySummary struct {
	Budget       *model.Budget
	Category     string
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
}

// BudgetStatus is a point-in-time view of one budget.
type BudgetStatus struct {
	Category        string
	Limit           decimal.Decimal
	Spent           decimal.Decimal
	Remaining       decimal.Decimal
	UsagePercentage float64
	Exceeded        bool
	NearLimit       bool
}

// CategoryAmount pairs a category with a total.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// Summary returns the bound wallet's totals.
func (s *Session) Summary() (Summary, error) {
	w, err := s.wallet()
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		TotalIncome:      w.TotalIncome(),
		TotalExpense:     w.TotalExpense(),
		Balance:          w.Balance(),
		TransactionCount: w.Len(),
	}, nil
}

// CategorySummaries returns one entry per known category, sorted by category.
func (s *Session) CategorySummaries() ([]CategorySummary, error) {
	w, err := s.wallet()
	if err != nil {
		return nil, err
	}

	categories := w.Categories()
	out := make([]CategorySummary, 0, len(categories))
	for _, c := range categories {
		summary := CategorySummary{
			Category:     c,
			TotalIncome:  w.IncomeByCategory(c),
			TotalExpense: w.ExpenseByCategory(c),
		}
		if b, ok := w.Budget(c); ok {
			summary.Budget = &b
		}
		out = append(out, summary)
	}
	return out, nil
}

// BudgetStatuses returns every budget's status, sorted by category.
func (s *Session) BudgetStatuses() ([]BudgetStatus, error) {
	w, err := s.wallet()
	if err != nil {
		return nil, err
	}

	budgets := w.Budgets()
	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, statusOf(b))
	}
	return out, nil
}

// BudgetStatus returns the status of the budget for category.
func (s *Session) BudgetStatus(category string) (BudgetStatus, error) {
	w, err := s.wallet()
	if err != nil {
		return BudgetStatus{}, err
	}
	b, ok := w.Budget(category)
	if !ok {
		return BudgetStatus{}, fmt.Errorf("%w: no budget for category %q", common.ErrNotFound, strings.TrimSpace(category))
	}
	return statusOf(b), nil
}

func statusOf(b model.Budget) BudgetStatus {
	return BudgetStatus{
		Category:        b.Category(),
		Limit:           b.Limit(),
		Spent:           b.Spent(),
		Remaining:       b.Remaining(),
		UsagePercentage: b.UsagePercentage(),
		Exceeded:        b.Exceeded(),
		NearLimit:       b.NearLimit(),
	}
}

// ExpensesBySelectedCategories totals expenses for each requested category.
// Every name must be a known category; unknown names are all reported together.
func (s *Session) ExpensesBySelectedCategories(categories []string) ([]CategoryAmount, error) {
	w, err := s.wallet()
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, c := range categories {
		if !w.HasCategory(c) {
			missing = append(missing, strings.TrimSpace(c))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: categories %s", common.ErrNotFound, strings.Join(missing, ", "))
	}

	return sortedAmounts(w.ExpensesByCategories(categories)), nil
}

// ExpensesByPeriod totals expenses per category for dates in [start, end].
func (s *Session) ExpensesByPeriod(start, end time.Time) ([]CategoryAmount, error) {
	w, err := s.wallet()
	if err != nil {
		return nil, err
	}
	if model.Day(start).After(model.Day(end)) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s",
			common.ErrInvalidArgument, start.Format(model.DateLayout), end.Format(model.DateLayout))
	}
	return sortedAmounts(w.ExpensesByPeriod(start, end)), nil
}

func sortedAmounts(totals map[string]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(totals))
	for c, amount := range totals {
		out = append(out, CategoryAmount{Category: c, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
