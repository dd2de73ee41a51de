package tui

import (
	"fmt"

	"github.com/Veraticus/purse/internal/finance"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab is one of the browser's views.
type Tab int

const (
	TabTransactions Tab = iota
	TabBudgets
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabTransactions:
		return "Transactions"
	case TabBudgets:
		return "Budgets"
	default:
		return fmt.Sprintf("Tab(%d)", int(t))
	}
}

// Rows taken by the header, tabs, table border and help line.
const chromeHeight = 9

// Model is a read-only browser over one logged-in session.
type Model struct {
	session      *finance.Session
	err          error
	theme        themes.Theme
	keymap       KeyMap
	help         help.Model
	transactions table.Model
	budgets      table.Model
	data         snapshot
	tab          Tab
	width        int
	height       int
	ready        bool
	quitting     bool
}

// New creates a browser for session.
func New(session *finance.Session, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	m := Model{
		session: session,
		theme:   cfg.Theme,
		keymap:  DefaultKeyMap(),
		help:    help.New(),
		transactions: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Kind", Width: 8},
			{Title: "Category", Width: 20},
			{Title: "Amount", Width: 12},
			{Title: "Description", Width: 30},
		}, cfg.Theme),
		budgets: newTable([]table.Column{
			{Title: "Category", Width: 20},
			{Title: "Limit", Width: 12},
			{Title: "Spent", Width: 12},
			{Title: "Remaining", Width: 12},
			{Title: "Used", Width: 8},
			{Title: "Status", Width: 10},
		}, cfg.Theme),
	}
	m.resize(cfg.Width, cfg.Height)
	m.focus()
	return m
}

func newTable(columns []table.Column, theme themes.Theme) table.Model {
	t := table.New(table.WithColumns(columns))
	styles := table.DefaultStyles()
	styles.Header = theme.Header
	styles.Selected = theme.Selected
	t.SetStyles(styles)
	return t
}

// Init loads the ledger.
func (m Model) Init() tea.Cmd {
	return m.load
}

func (m Model) load() tea.Msg {
	var data snapshot
	var err error

	data.login = m.session.CurrentLogin()
	if data.summary, err = m.session.Summary(); err != nil {
		return ledgerLoadedMsg{err: err}
	}
	if data.transactions, err = m.session.Transactions(); err != nil {
		return ledgerLoadedMsg{err: err}
	}
	if data.budgets, err = m.session.BudgetStatuses(); err != nil {
		return ledgerLoadedMsg{err: err}
	}
	data.alerts = m.session.Notifications()
	return ledgerLoadedMsg{data: data}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.NextTab):
			m.tab = (m.tab + 1) % tabCount
			m.focus()
			return m, nil
		case key.Matches(msg, m.keymap.PrevTab):
			m.tab = (m.tab + tabCount - 1) % tabCount
			m.focus()
			return m, nil
		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case ledgerLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.data = msg.data
		m.transactions.SetRows(transactionRows(msg.data.transactions))
		m.budgets.SetRows(budgetRows(msg.data.budgets))
		m.ready = true
		return m, nil
	}

	var cmd tea.Cmd
	switch m.tab {
	case TabBudgets:
		m.budgets, cmd = m.budgets.Update(msg)
	default:
		m.transactions, cmd = m.transactions.Update(msg)
	}
	return m, cmd
}

func (m *Model) focus() {
	if m.tab == TabBudgets {
		m.transactions.Blur()
		m.budgets.Focus()
		return
	}
	m.budgets.Blur()
	m.transactions.Focus()
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width

	h := height - chromeHeight
	if h < 3 {
		h = 3
	}
	m.transactions.SetHeight(h)
	m.budgets.SetHeight(h)
	m.transactions.SetWidth(width - 2)
	m.budgets.SetWidth(width - 2)
}

// ActiveTab returns the visible tab.
func (m Model) ActiveTab() Tab { return m.tab }

func transactionRows(txs []model.Transaction) []table.Row {
	rows := make([]table.Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, table.Row{
			tx.Date().Format(model.DateLayout),
			tx.Kind().String(),
			tx.Category(),
			tx.SignedAmount().StringFixed(2),
			tx.Description(),
		})
	}
	return rows
}

func budgetRows(statuses []finance.BudgetStatus) []table.Row {
	rows := make([]table.Row, 0, len(statuses))
	for _, st := range statuses {
		status := "ok"
		switch {
		case st.Exceeded:
			status = "exceeded"
		case st.NearLimit:
			status = "near limit"
		}
		rows = append(rows, table.Row{
			st.Category,
			st.Limit.StringFixed(2),
			st.Spent.StringFixed(2),
			st.Remaining.StringFixed(2),
			fmt.Sprintf("%.1f%%", st.UsagePercentage),
			status,
		})
	}
	return rows
}
