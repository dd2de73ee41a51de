package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/finance"
	"github.com/Veraticus/purse/internal/model"
	"github.com/shopspring/decimal"
)

// Printer renders ledger views to a terminal.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.out, s)
}

func (p *Printer) table(header string, rows []string) {
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, header)
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, row)
	}
	_ = w.Flush()
}

// Success prints a confirmation.
func (p *Printer) Success(msg string) { p.println(FormatSuccess(msg)) }

// Info prints a neutral message.
func (p *Printer) Info(msg string) { p.println(SubtleStyle.Render(msg)) }

// Error prints err, preferring a user-facing message when one is attached.
func (p *Printer) Error(err error) {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		p.println(FormatError(userErr.UserMessage))
		return
	}
	p.println(FormatError(err.Error()))
}

// UserLine prints the logged-in user and balance.
func (p *Printer) UserLine(login string, balance decimal.Decimal) {
	line := fmt.Sprintf("%s %s | balance %s", WalletIcon, login, money(balance))
	if balance.IsNegative() {
		p.println(ErrorStyle.Render(line))
		return
	}
	p.println(SubtleStyle.Render(line))
}

// Notifications prints pending alerts.
func (p *Printer) Notifications(msgs []string) {
	for _, msg := range msgs {
		p.println(FormatWarning(msg))
	}
}

// Summary prints overall totals.
func (p *Printer) Summary(s finance.Summary) {
	content := strings.Join([]string{
		fmt.Sprintf("Total income:  %s", SuccessStyle.Render(money(s.TotalIncome))),
		fmt.Sprintf("Total expense: %s", ErrorStyle.Render(money(s.TotalExpense))),
		fmt.Sprintf("Balance:       %s", money(s.Balance)),
		fmt.Sprintf("Transactions:  %d", s.TransactionCount),
	}, "\n")
	p.println(RenderBox("Summary", content))
}

// Budgets prints every budget with its usage.
func (p *Printer) Budgets(statuses []finance.BudgetStatus) {
	if len(statuses) == 0 {
		p.Info("No budgets set.")
		return
	}
	p.println(FormatTitle("Budgets"))
	rows := make([]string, 0, len(statuses))
	for _, st := range statuses {
		state := "ok"
		switch {
		case st.Exceeded:
			state = "EXCEEDED"
		case st.NearLimit:
			state = "near limit"
		}
		rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s\t%.1f%%\t%s",
			st.Category, money(st.Limit), money(st.Spent), money(st.Remaining), st.UsagePercentage, state))
	}
	p.table("CATEGORY\tLIMIT\tSPENT\tREMAINING\tUSED\tSTATUS", rows)
}

// Categories prints per-category income, expense and budget.
func (p *Printer) Categories(summaries []finance.CategorySummary) {
	if len(summaries) == 0 {
		p.Info("No category data.")
		return
	}
	p.println(FormatTitle("Categories"))
	rows := make([]string, 0, len(summaries))
	for _, cs := range summaries {
		budget := "-"
		if cs.Budget != nil {
			budget = fmt.Sprintf("%s / %s", money(cs.Budget.Spent()), money(cs.Budget.Limit()))
		}
		rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s",
			cs.Category, money(cs.TotalIncome), money(cs.TotalExpense), budget))
	}
	p.table("CATEGORY\tINCOME\tEXPENSE\tBUDGET", rows)
}

// Transactions prints the ledger in insertion order.
func (p *Printer) Transactions(txs []model.Transaction) {
	if len(txs) == 0 {
		p.Info("No transactions yet.")
		return
	}
	p.println(FormatTitle(fmt.Sprintf("Transactions (%d)", len(txs))))
	rows := make([]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, fmt.Sprintf("%s\t%s\t%s\t%s\t%s",
			tx.Date().Format(model.DateLayout), tx.Kind(), tx.Category(), money(tx.SignedAmount()), tx.Description()))
	}
	p.table("DATE\tKIND\tCATEGORY\tAMOUNT\tDESCRIPTION", rows)
}

// Amounts prints a titled list of category totals.
func (p *Printer) Amounts(title string, amounts []finance.CategoryAmount) {
	if len(amounts) == 0 {
		p.Info("No expenses found.")
		return
	}
	p.println(FormatTitle(title))
	rows := make([]string, 0, len(amounts)+1)
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Amount)
		rows = append(rows, fmt.Sprintf("%s\t%s", a.Category, money(a.Amount)))
	}
	rows = append(rows, fmt.Sprintf("TOTAL\t%s", money(total)))
	p.table("CATEGORY\tAMOUNT", rows)
}

// Help prints the commands available in the current state.
func (p *Printer) Help(authenticated bool) {
	p.println(FormatTitle("Commands"))
	rows := make([]string, 0, len(commands))
	for _, c := range commands {
		if !c.availableTo(authenticated) {
			continue
		}
		rows = append(rows, fmt.Sprintf("%s\t%s", c.usage(), c.description))
	}
	p.table("COMMAND\tDESCRIPTION", rows)
}
