package model

import (
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTx(t *testing.T, category, amount string, kind Kind, opts ...TransactionOption) Transaction {
	t.Helper()
	tx, err := NewTransaction(category, dec(amount), kind, "", opts...)
	require.NoError(t, err)
	return tx
}

func TestWallet_BalanceIsSignedSum(t *testing.T) {
	incomes := []string{"50000", "0.10", "0.20", "1234.56"}
	expenses := []string{"3000", "0.30", "99.99"}

	forward := NewWallet("alice")
	for _, a := range incomes {
		require.NoError(t, forward.AddTransaction(mustTx(t, "Salary", a, KindIncome)))
	}
	for _, a := range expenses {
		require.NoError(t, forward.AddTransaction(mustTx(t, "Food", a, KindExpense)))
	}

	backward := NewWallet("alice")
	for i := len(expenses) - 1; i >= 0; i-- {
		require.NoError(t, backward.AddTransaction(mustTx(t, "Food", expenses[i], KindExpense)))
	}
	for i := len(incomes) - 1; i >= 0; i-- {
		require.NoError(t, backward.AddTransaction(mustTx(t, "Salary", incomes[i], KindIncome)))
	}

	want := dec("48134.57")
	assert.True(t, forward.Balance().Equal(want), "got %s", forward.Balance())
	assert.True(t, backward.Balance().Equal(want), "got %s", backward.Balance())
	assert.True(t, forward.TotalIncome().Sub(forward.TotalExpense()).Equal(want))
}

func TestWallet_AddTransactionTracksCategoriesAndBudgets(t *testing.T) {
	w := NewWallet("alice")
	require.NoError(t, w.SetBudget("Food", dec("5000")))

	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "4000", KindExpense)))
	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "700", KindIncome)))
	require.NoError(t, w.AddTransaction(mustTx(t, "Taxi", "300", KindExpense)))

	b, ok := w.Budget("Food")
	require.True(t, ok)
	assert.True(t, b.Spent().Equal(dec("4000")), "income does not count against a budget")
	assert.True(t, b.NearLimit())
	assert.Equal(t, []string{"Food", "Taxi"}, w.Categories())
}

func TestWallet_AddTransactionRejectsDuplicateID(t *testing.T) {
	w := NewWallet("alice")
	tx := mustTx(t, "Food", "10", KindExpense, WithID("same"))
	require.NoError(t, w.AddTransaction(tx))
	require.ErrorIs(t, w.AddTransaction(tx), common.ErrAlreadyExists)
	assert.Equal(t, 1, w.Len())
	require.ErrorIs(t, w.AddTransaction(Transaction{}), common.ErrInvalidArgument)
}

func TestWallet_SetBudgetBackfillsExpensesOnly(t *testing.T) {
	w := NewWallet("alice")
	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "1200", KindExpense)))
	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "800", KindExpense)))
	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "5000", KindIncome)))

	require.NoError(t, w.SetBudget("Food", dec("2500")))
	b, _ := w.Budget("Food")
	assert.True(t, b.Spent().Equal(dec("2000")))

	require.ErrorIs(t, w.SetBudget("Food", dec("1")), common.ErrAlreadyExists)
	require.ErrorIs(t, w.SetBudget("Rent", dec("-1")), common.ErrInvalidArgument)
}

func TestWallet_UpdateAndRemoveBudget(t *testing.T) {
	w := NewWallet("alice")
	require.ErrorIs(t, w.UpdateBudget("Food", dec("10")), common.ErrNotFound)

	require.NoError(t, w.SetBudget("Food", dec("5000")))
	require.NoError(t, w.UpdateBudget("Food", dec("8000")))
	b, _ := w.Budget("Food")
	assert.True(t, b.Limit().Equal(dec("8000")))
	require.ErrorIs(t, w.UpdateBudget("Food", dec("-8")), common.ErrInvalidArgument)

	w.RemoveBudget("Food")
	w.RemoveBudget("Food")
	_, ok := w.Budget("Food")
	assert.False(t, ok)
	assert.True(t, w.HasCategory("Food"), "removing a budget keeps the category")
}

func TestWallet_RemoveCategory(t *testing.T) {
	w := NewWallet("alice")
	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "10", KindExpense)))
	require.NoError(t, w.AddCategory("Books"))
	require.NoError(t, w.SetBudget("Books", dec("100")))
	require.ErrorIs(t, w.AddCategory("  "), common.ErrInvalidArgument)

	require.ErrorIs(t, w.RemoveCategory("Food"), common.ErrInvalidState)
	assert.True(t, w.HasCategory("Food"))

	require.NoError(t, w.RemoveCategory("Books"))
	assert.False(t, w.HasCategory("Books"))
	_, ok := w.Budget("Books")
	assert.False(t, ok)
}

func TestWallet_ClearTransactions(t *testing.T) {
	w := NewWallet("alice")
	require.NoError(t, w.SetBudget("Food", dec("100")))
	require.NoError(t, w.AddTransaction(mustTx(t, "Food", "150", KindExpense)))
	require.NoError(t, w.AddTransaction(mustTx(t, "Salary", "1000", KindIncome)))

	w.ClearTransactions()

	assert.Zero(t, w.Len())
	assert.True(t, w.Balance().IsZero())
	b, _ := w.Budget("Food")
	assert.True(t, b.Spent().IsZero())
	assert.True(t, w.HasCategory("Salary"), "categories survive a clear")
}

func TestWallet_Aggregates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }
	w := NewWallet("alice")
	require.NoError(t, w.ImportTransactions([]Transaction{
		mustTx(t, "Salary", "50000", KindIncome, WithDate(day(1))),
		mustTx(t, "Food", "1000", KindExpense, WithDate(day(2))),
		mustTx(t, "Food", "500", KindExpense, WithDate(day(3))),
		mustTx(t, "Transport", "300", KindExpense, WithDate(day(3))),
		mustTx(t, "Transport", "200", KindExpense, WithDate(day(4))),
	}))

	assert.True(t, w.IncomeByCategory("Salary").Equal(dec("50000")))
	assert.True(t, w.ExpenseByCategory("Food").Equal(dec("1500")))
	assert.Len(t, w.TransactionsByCategory("Transport"), 2)

	selected := w.ExpensesByCategories([]string{"Food", "Salary"})
	assert.True(t, selected["Food"].Equal(dec("1500")))
	assert.True(t, selected["Salary"].IsZero())

	period := w.ExpensesByPeriod(day(3), day(3))
	assert.Len(t, period, 2)
	assert.True(t, period["Food"].Equal(dec("500")))
	assert.True(t, period["Transport"].Equal(dec("300")))

	all := w.ExpensesByPeriod(day(1), day(4))
	assert.True(t, all["Transport"].Equal(dec("500")))
}

func TestWallet_ImportIsAllOrNothing(t *testing.T) {
	w := NewWallet("alice")
	existing := mustTx(t, "Food", "10", KindExpense, WithID("dup"))
	require.NoError(t, w.AddTransaction(existing))

	err := w.ImportTransactions([]Transaction{
		mustTx(t, "Salary", "100", KindIncome),
		existing,
	})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.Equal(t, 1, w.Len())
	assert.True(t, w.Balance().Equal(dec("-10")))

	repeated := mustTx(t, "Salary", "5", KindIncome, WithID("twice"))
	require.ErrorIs(t, w.ImportTransactions([]Transaction{repeated, repeated}), common.ErrAlreadyExists)
}

func TestWallet_ImportReplaysBudgetSideEffects(t *testing.T) {
	w := NewWallet("alice")
	require.NoError(t, w.SetBudget("Food", dec("1000")))
	require.NoError(t, w.ImportTransactions([]Transaction{
		mustTx(t, "Food", "600", KindExpense),
		mustTx(t, "Food", "600", KindExpense),
	}))

	b, _ := w.Budget("Food")
	assert.True(t, b.Exceeded())
	assert.True(t, b.Spent().Equal(dec("1200")))
}

func TestRestoreWallet(t *testing.T) {
	txs := []Transaction{
		mustTx(t, "Salary", "1000", KindIncome),
		mustTx(t, "Food", "250", KindExpense),
	}
	budget, err := RestoreBudget("Food", dec("300"), dec("275"))
	require.NoError(t, err)

	w, err := RestoreWallet("alice", dec("750"), txs, []*Budget{budget}, []string{"Books"})
	require.NoError(t, err)

	b, _ := w.Budget("Food")
	assert.True(t, b.Spent().Equal(dec("275")), "stored spent is kept, not replayed")
	assert.Equal(t, []string{"Books", "Food", "Salary"}, w.Categories())
	assert.Equal(t, 2, w.Len())

	_, err = RestoreWallet("alice", decimal.NewFromInt(1), txs, nil, nil)
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestTransfer(t *testing.T) {
	alice := NewWallet("alice")
	bob := NewWallet("bob")
	require.NoError(t, alice.AddTransaction(mustTx(t, "Salary", "50000", KindIncome)))

	sent, received, err := Transfer(TransferRequest{
		From: alice, To: bob, FromLogin: "alice", ToLogin: "bob",
		Amount: dec("10000"), Description: "Gift",
	})
	require.NoError(t, err)

	assert.True(t, alice.Balance().Equal(dec("40000")))
	assert.True(t, bob.Balance().Equal(dec("10000")))
	assert.Equal(t, "Transfer to bob", sent.Category())
	assert.Equal(t, "Gift → bob", sent.Description())
	assert.Equal(t, "Transfer from alice", received.Category())
	assert.Equal(t, "Gift ← alice", received.Description())
	assert.True(t, bob.HasCategory("Transfer from alice"))
}

func TestTransfer_FailuresLeaveBalancesUnchanged(t *testing.T) {
	alice := NewWallet("alice")
	bob := NewWallet("bob")
	require.NoError(t, alice.AddTransaction(mustTx(t, "Salary", "100", KindIncome)))

	tests := []struct {
		wantErr error
		to      *Wallet
		name    string
		amount  string
	}{
		{name: "insufficient", to: bob, amount: "100.01", wantErr: common.ErrInsufficientFunds},
		{name: "zero", to: bob, amount: "0", wantErr: common.ErrInvalidArgument},
		{name: "negative", to: bob, amount: "-5", wantErr: common.ErrInvalidArgument},
		{name: "self", to: alice, amount: "5", wantErr: common.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Transfer(TransferRequest{
				From: alice, To: tt.to, FromLogin: "alice", ToLogin: "bob", Amount: dec(tt.amount),
			})
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, alice.Balance().Equal(dec("100")))
			assert.True(t, bob.Balance().IsZero())
			assert.Equal(t, 1, alice.Len())
			assert.Zero(t, bob.Len())
		})
	}
}
