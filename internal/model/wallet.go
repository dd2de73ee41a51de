package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/shopspring/decimal"
)

// Wallet holds one user's ledger: transactions in insertion order, budgets
// keyed by category, the set of known categories and the running balance.
// The balance always equals the signed sum of the transactions.
type Wallet struct {
	balance      decimal.Decimal
	budgets      map[string]*Budget
	categories   map[string]struct{}
	ids          map[string]struct{}
	userID       string
	transactions []Transaction
}

// NewWallet creates an empty wallet for userID.
func NewWallet(userID string) *Wallet {
	return &Wallet{
		userID:     userID,
		budgets:    make(map[string]*Budget),
		categories: make(map[string]struct{}),
		ids:        make(map[string]struct{}),
	}
}

// RestoreWallet rebuilds a wallet from a stored snapshot without replaying
// side effects. Budgets keep their stored spent totals. The stored balance
// must match the transactions.
func RestoreWallet(userID string, balance decimal.Decimal, txs []Transaction, budgets []*Budget, categories []string) (*Wallet, error) {
	w := NewWallet(userID)

	sum := decimal.Zero
	for _, tx := range txs {
		if _, dup := w.ids[tx.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate transaction id %s in wallet %s", common.ErrInvalidState, tx.ID(), userID)
		}
		w.ids[tx.ID()] = struct{}{}
		w.transactions = append(w.transactions, tx)
		w.categories[tx.Category()] = struct{}{}
		sum = sum.Add(tx.SignedAmount())
	}
	if !sum.Equal(balance) {
		return nil, fmt.Errorf("%w: wallet %s balance %s does not match transactions total %s",
			common.ErrInvalidState, userID, balance, sum)
	}
	w.balance = balance

	for _, b := range budgets {
		if b == nil {
			continue
		}
		if _, dup := w.budgets[b.Category()]; dup {
			return nil, fmt.Errorf("%w: duplicate budget %q in wallet %s", common.ErrInvalidState, b.Category(), userID)
		}
		restored := *b
		w.budgets[b.Category()] = &restored
		w.categories[b.Category()] = struct{}{}
	}

	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			w.categories[c] = struct{}{}
		}
	}

	return w, nil
}

// UserID returns the owner's login.
func (w *Wallet) UserID() string { return w.userID }

// Balance returns income minus expenses.
func (w *Wallet) Balance() decimal.Decimal { return w.balance }

// Len returns the number of transactions.
func (w *Wallet) Len() int { return len(w.transactions) }

// AddTransaction appends tx and applies its effect on the balance, the
// category set and, for expenses, the category's budget.
func (w *Wallet) AddTransaction(tx Transaction) error {
	if !tx.Kind().Valid() || tx.Category() == "" {
		return fmt.Errorf("%w: transaction was not built with NewTransaction", common.ErrInvalidArgument)
	}
	if _, dup := w.ids[tx.ID()]; dup {
		return fmt.Errorf("%w: transaction %s", common.ErrAlreadyExists, tx.ID())
	}
	w.apply(tx)
	return nil
}

func (w *Wallet) apply(tx Transaction) {
	w.transactions = append(w.transactions, tx)
	w.ids[tx.ID()] = struct{}{}
	w.categories[tx.Category()] = struct{}{}
	w.balance = w.balance.Add(tx.SignedAmount())

	if tx.IsExpense() {
		if b, ok := w.budgets[tx.Category()]; ok {
			// Amount is positive by construction.
			_ = b.AddSpending(tx.Amount())
		}
	}
}

// ImportTransactions replays AddTransaction for each element in order. Ids
// are checked up front so a rejected import leaves the wallet untouched.
func (w *Wallet) ImportTransactions(txs []Transaction) error {
	seen := make(map[string]struct{}, len(txs))
	for i, tx := range txs {
		if !tx.Kind().Valid() || tx.Category() == "" {
			return fmt.Errorf("%w: transaction at index %d is empty", common.ErrInvalidArgument, i)
		}
		if _, dup := w.ids[tx.ID()]; dup {
			return fmt.Errorf("%w: transaction %s at index %d", common.ErrAlreadyExists, tx.ID(), i)
		}
		if _, dup := seen[tx.ID()]; dup {
			return fmt.Errorf("%w: transaction %s repeated at index %d", common.ErrAlreadyExists, tx.ID(), i)
		}
		seen[tx.ID()] = struct{}{}
	}
	for _, tx := range txs {
		w.apply(tx)
	}
	return nil
}

// SetBudget creates a budget for category and back-fills its spent total
// from existing expenses in that category.
func (w *Wallet) SetBudget(category string, limit decimal.Decimal) error {
	b, err := NewBudget(category, limit)
	if err != nil {
		return err
	}
	if _, exists := w.budgets[b.Category()]; exists {
		return fmt.Errorf("%w: budget for category %q", common.ErrAlreadyExists, b.Category())
	}
	if spent := w.ExpenseByCategory(b.Category()); spent.IsPositive() {
		_ = b.AddSpending(spent)
	}
	w.budgets[b.Category()] = b
	w.categories[b.Category()] = struct{}{}
	return nil
}

// UpdateBudget changes the limit of an existing budget.
func (w *Wallet) UpdateBudget(category string, limit decimal.Decimal) error {
	category = strings.TrimSpace(category)
	b, ok := w.budgets[category]
	if !ok {
		return fmt.Errorf("%w: no budget for category %q", common.ErrNotFound, category)
	}
	return b.UpdateLimit(limit)
}

// RemoveBudget drops the budget for category if there is one.
func (w *Wallet) RemoveBudget(category string) {
	delete(w.budgets, strings.TrimSpace(category))
}

// AddCategory registers a category. Adding a known category is a no-op.
func (w *Wallet) AddCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("%w: category cannot be empty", common.ErrInvalidArgument)
	}
	w.categories[category] = struct{}{}
	return nil
}

// RemoveCategory forgets a category and its budget. Categories with
// transactions cannot be removed.
func (w *Wallet) RemoveCategory(category string) error {
	category = strings.TrimSpace(category)
	if w.HasTransactionsInCategory(category) {
		return fmt.Errorf("%w: category %q has transactions", common.ErrInvalidState, category)
	}
	delete(w.categories, category)
	delete(w.budgets, category)
	return nil
}

// ClearTransactions wipes every transaction, zeroes the balance and resets all budgets.
func (w *Wallet) ClearTransactions() {
	w.transactions = nil
	w.ids = make(map[string]struct{})
	w.balance = decimal.Zero
	for _, b := range w.budgets {
		b.Reset()
	}
}

// HasCategory reports whether category is known to the wallet.
func (w *Wallet) HasCategory(category string) bool {
	_, ok := w.categories[strings.TrimSpace(category)]
	return ok
}

// HasTransactionsInCategory reports whether any transaction uses category.
func (w *Wallet) HasTransactionsInCategory(category string) bool {
	for _, tx := range w.transactions {
		if tx.Category() == category {
			return true
		}
	}
	return false
}

// Transactions returns a copy of the transactions in insertion order.
func (w *Wallet) Transactions() []Transaction {
	out := make([]Transaction, len(w.transactions))
	copy(out, w.transactions)
	return out
}

// TransactionsByCategory returns the transactions in category, in insertion order.
func (w *Wallet) TransactionsByCategory(category string) []Transaction {
	var out []Transaction
	for _, tx := range w.transactions {
		if tx.Category() == category {
			out = append(out, tx)
		}
	}
	return out
}

// Budget returns a copy of the budget for category.
func (w *Wallet) Budget(category string) (Budget, bool) {
	b, ok := w.budgets[strings.TrimSpace(category)]
	if !ok {
		return Budget{}, false
	}
	return *b, true
}

// Budgets returns copies of all budgets sorted by category.
func (w *Wallet) Budgets() []Budget {
	out := make([]Budget, 0, len(w.budgets))
	for _, b := range w.budgets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category() < out[j].Category() })
	return out
}

// Categories returns the known categories sorted.
func (w *Wallet) Categories() []string {
	out := make([]string, 0, len(w.categories))
	for c := range w.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// TotalIncome sums all income.
func (w *Wallet) TotalIncome() decimal.Decimal {
	return w.sum(func(tx Transaction) bool { return tx.IsIncome() })
}

// TotalExpense sums all expenses.
func (w *Wallet) TotalExpense() decimal.Decimal {
	return w.sum(func(tx Transaction) bool { return tx.IsExpense() })
}

// IncomeByCategory sums income in one category.
func (w *Wallet) IncomeByCategory(category string) decimal.Decimal {
	return w.sum(func(tx Transaction) bool { return tx.IsIncome() && tx.Category() == category })
}

// ExpenseByCategory sums expenses in one category.
func (w *Wallet) ExpenseByCategory(category string) decimal.Decimal {
	return w.sum(func(tx Transaction) bool { return tx.IsExpense() && tx.Category() == category })
}

// ExpensesByCategories sums expenses for each requested category. Every
// requested category is present in the result, zero when nothing was spent.
func (w *Wallet) ExpensesByCategories(categories []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(categories))
	for _, c := range categories {
		out[strings.TrimSpace(c)] = decimal.Zero
	}
	for _, tx := range w.transactions {
		if !tx.IsExpense() {
			continue
		}
		if total, ok := out[tx.Category()]; ok {
			out[tx.Category()] = total.Add(tx.Amount())
		}
	}
	return out
}

// ExpensesByPeriod sums expenses per category for dates in [start, end].
func (w *Wallet) ExpensesByPeriod(start, end time.Time) map[string]decimal.Decimal {
	start, end = Day(start), Day(end)
	out := make(map[string]decimal.Decimal)
	for _, tx := range w.transactions {
		if !tx.IsExpense() || tx.Date().Before(start) || tx.Date().After(end) {
			continue
		}
		out[tx.Category()] = out[tx.Category()].Add(tx.Amount())
	}
	return out
}

func (w *Wallet) sum(match func(Transaction) bool) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range w.transactions {
		if match(tx) {
			total = total.Add(tx.Amount())
		}
	}
	return total
}
