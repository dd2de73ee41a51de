package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the browser.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.theme.Expense.Render("Error: "+m.err.Error()) + "\n"
	}
	if !m.ready {
		return m.theme.Subtle.Render("Loading ledger...") + "\n"
	}

	sections := []string{
		m.renderHeader(),
		m.renderTabs(),
		m.theme.Box.Render(m.renderActiveTable()),
	}
	if len(m.data.alerts) > 0 {
		sections = append(sections, m.renderAlerts())
	}
	sections = append(sections, m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	s := m.data.summary
	title := m.theme.Title.Render("purse · " + m.data.login)
	balance := fmt.Sprintf("balance %s", s.Balance.StringFixed(2))
	if s.Balance.IsNegative() {
		balance = m.theme.Expense.Render(balance)
	}
	stats := strings.Join([]string{
		m.theme.Income.Render("+" + s.TotalIncome.StringFixed(2)),
		m.theme.Expense.Render("-" + s.TotalExpense.StringFixed(2)),
		balance,
		m.theme.Subtle.Render(fmt.Sprintf("%d transactions", s.TransactionCount)),
	}, "  ")
	return lipgloss.JoinVertical(lipgloss.Left, title, stats)
}

func (m Model) renderTabs() string {
	tabs := make([]string, 0, tabCount)
	for t := Tab(0); t < tabCount; t++ {
		style := m.theme.InactiveTab
		if t == m.tab {
			style = m.theme.ActiveTab
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m Model) renderActiveTable() string {
	switch m.tab {
	case TabBudgets:
		if len(m.budgets.Rows()) == 0 {
			return m.theme.Subtle.Render("No budgets set.")
		}
		return m.budgets.View()
	default:
		if len(m.transactions.Rows()) == 0 {
			return m.theme.Subtle.Render("No transactions yet.")
		}
		return m.transactions.View()
	}
}

func (m Model) renderAlerts() string {
	lines := make([]string, 0, len(m.data.alerts))
	for _, alert := range m.data.alerts {
		lines = append(lines, m.theme.Alert.Render("! "+alert))
	}
	return strings.Join(lines, "\n")
}
