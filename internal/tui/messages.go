package tui

import (
	"github.com/Veraticus/purse/internal/finance"
	"github.com/Veraticus/purse/internal/model"
)

// snapshot is everything the browser shows, read from the session in one go.
type snapshot struct {
	login        string
	summary      finance.Summary
	transactions []model.Transaction
	budgets      []finance.BudgetStatus
	alerts       []string
}

type ledgerLoadedMsg struct {
	err  error
	data snapshot
}
