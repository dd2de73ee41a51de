package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/export"
	"github.com/Veraticus/purse/internal/finance"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/ofx"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/validation"
	"github.com/shopspring/decimal"
)

// Shell is the interactive menu. It owns one session and saves the whole
// user set at checkpoints: register, transfer, logout and exit.
type Shell struct {
	service   *finance.Service
	store     service.UserStore
	session   *finance.Session
	in        *LineReader
	out       io.Writer
	printer   *Printer
	exportDir string
	running   bool
}

// ShellOption configures a Shell.
type ShellOption func(*Shell)

// WithExportDir sets where export-csv and export-json write files.
func WithExportDir(dir string) ShellOption {
	return func(s *Shell) {
		if dir != "" {
			s.exportDir = dir
		}
	}
}

// NewShell creates a shell over svc. A nil store disables persistence.
func NewShell(svc *finance.Service, store service.UserStore, in io.Reader, out io.Writer, opts ...ShellOption) *Shell {
	s := &Shell{
		service:   svc,
		store:     store,
		session:   svc.NewSession(),
		in:        NewLineReader(in),
		out:       out,
		printer:   NewPrinter(out),
		exportDir: "exports",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session exposes the shell's session.
func (s *Shell) Session() *finance.Session { return s.session }

// Run loads users and processes commands until exit, end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}

	s.printer.println(FormatTitle("purse: personal finance ledger"))
	s.printer.Info("Type 'help' for the list of commands.")

	s.running = true
	for s.running {
		s.showStatus()

		line, err := s.in.ReadLine(ctx)
		if err != nil {
			return s.stop(ctx, err)
		}
		if line == "" {
			continue
		}

		name, arg, _ := strings.Cut(line, " ")
		if err := s.dispatch(ctx, name, strings.TrimSpace(arg)); err != nil {
			if isInputEnd(err) {
				return s.stop(ctx, err)
			}
			s.printer.Error(err)
		}
	}
	return nil
}

func (s *Shell) load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		if errors.Is(err, common.ErrDatabaseCorrupted) {
			return fmt.Errorf("refusing to start over a corrupted store: %w", err)
		}
		s.printer.Error(fmt.Errorf("failed to load data: %w", err))
		s.printer.Info("Starting with an empty ledger.")
		return nil
	}
	s.service.InitializeUsers(users)
	s.printer.Success(fmt.Sprintf("Loaded %d users.", len(users)))
	return nil
}

func (s *Shell) showStatus() {
	if s.session.IsAuthenticated() {
		if balance, err := s.session.Balance(); err == nil {
			s.printer.UserLine(s.session.CurrentLogin(), balance)
		}
		s.printer.Notifications(s.session.Notifications())
		s.session.ClearNotifications()
	}
	_, _ = fmt.Fprint(s.out, PromptStyle.Render("> "))
}

func (s *Shell) dispatch(ctx context.Context, name, arg string) error {
	cmd, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("unknown command %q, type 'help' for the list", name)
	}
	if !cmd.availableTo(s.session.IsAuthenticated()) {
		if s.session.IsAuthenticated() {
			return fmt.Errorf("%q is not available while logged in", cmd.name)
		}
		return fmt.Errorf("%q requires login", cmd.name)
	}
	return cmd.run(s, ctx, arg)
}

func isInputEnd(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrInputCancelled)
}

// stop saves on end of input or interrupt. Other read errors are returned.
func (s *Shell) stop(ctx context.Context, err error) error {
	if !isInputEnd(err) {
		return fmt.Errorf("failed to read input: %w", err)
	}
	s.running = false
	s.save(context.WithoutCancel(ctx))
	return nil
}

func (s *Shell) save(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveUsers(ctx, s.service.Users()); err != nil {
		common.LogError(err, "Failed to save users", nil)
		s.printer.Error(fmt.Errorf("failed to save data: %w", err))
		return
	}
	s.printer.Info("Data saved.")
}

func (s *Shell) ask(ctx context.Context, label string) (string, error) {
	_, _ = fmt.Fprint(s.out, FormatPrompt(label))
	return s.in.ReadLine(ctx)
}

func (s *Shell) askArg(ctx context.Context, arg, label string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	return s.ask(ctx, label)
}

func (s *Shell) register(ctx context.Context, _ string) error {
	login, err := s.ask(ctx, "Login")
	if err != nil {
		return err
	}
	password, err := s.ask(ctx, "Password")
	if err != nil {
		return err
	}
	if err := validation.Login(login); err != nil {
		return err
	}
	if err := validation.Password(password); err != nil {
		return err
	}
	if _, err := s.service.Register(login, password); err != nil {
		return err
	}
	s.printer.Success("Registered. You can log in now.")
	s.save(ctx)
	return nil
}

func (s *Shell) login(ctx context.Context, _ string) error {
	login, err := s.ask(ctx, "Login")
	if err != nil {
		return err
	}
	password, err := s.ask(ctx, "Password")
	if err != nil {
		return err
	}
	if err := s.session.Login(login, password); err != nil {
		return err
	}
	s.printer.Success("Welcome, " + s.session.CurrentLogin() + "!")
	return nil
}

func (s *Shell) logout(ctx context.Context, _ string) error {
	s.save(ctx)
	s.session.Logout()
	s.printer.Success("Logged out.")
	return nil
}

type transactionInput struct {
	date        string
	category    string
	amount      string
	description string
}

func (s *Shell) askTransaction(ctx context.Context, kind model.Kind) (transactionInput, error) {
	var in transactionInput
	var err error
	if in.category, err = s.ask(ctx, kind.Label()+" category"); err != nil {
		return in, err
	}
	if in.amount, err = s.ask(ctx, "Amount"); err != nil {
		return in, err
	}
	if in.description, err = s.ask(ctx, "Description (optional)"); err != nil {
		return in, err
	}
	if in.date, err = s.ask(ctx, "Date (YYYY-MM-DD, empty for today)"); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Shell) addTransaction(ctx context.Context, kind model.Kind) error {
	in, err := s.askTransaction(ctx, kind)
	if err != nil {
		return err
	}
	if err := validation.Category(in.category); err != nil {
		return err
	}
	amount, err := validation.ParseAmount(in.amount)
	if err != nil {
		return err
	}
	date, err := validation.ParseDate(in.date)
	if err != nil {
		return err
	}

	if kind == model.KindIncome {
		_, err = s.session.AddIncome(in.category, amount, in.description, date)
	} else {
		_, err = s.session.AddExpense(in.category, amount, in.description, date)
	}
	if err != nil {
		return err
	}
	s.printer.Success(kind.Label() + " added.")
	return nil
}

func (s *Shell) income(ctx context.Context, _ string) error {
	return s.addTransaction(ctx, model.KindIncome)
}

func (s *Shell) expense(ctx context.Context, _ string) error {
	return s.addTransaction(ctx, model.KindExpense)
}

func (s *Shell) askCategoryAndLimit(ctx context.Context, limitLabel string) (string, decimal.Decimal, error) {
	category, err := s.ask(ctx, "Category")
	if err != nil {
		return "", decimal.Zero, err
	}
	raw, err := s.ask(ctx, limitLabel)
	if err != nil {
		return "", decimal.Zero, err
	}
	if err := validation.Category(category); err != nil {
		return "", decimal.Zero, err
	}
	limit, err := validation.ParseLimit(raw)
	if err != nil {
		return "", decimal.Zero, err
	}
	return category, limit, nil
}

func (s *Shell) setBudget(ctx context.Context, _ string) error {
	category, limit, err := s.askCategoryAndLimit(ctx, "Budget limit")
	if err != nil {
		return err
	}
	if err := s.session.SetBudget(category, limit); err != nil {
		return err
	}
	s.printer.Success("Budget set.")
	return nil
}

func (s *Shell) updateBudget(ctx context.Context, _ string) error {
	category, limit, err := s.askCategoryAndLimit(ctx, "New limit")
	if err != nil {
		return err
	}
	if err := s.session.UpdateBudget(category, limit); err != nil {
		return err
	}
	s.printer.Success("Budget updated.")
	return nil
}

func (s *Shell) removeBudget(ctx context.Context, _ string) error {
	category, err := s.ask(ctx, "Category")
	if err != nil {
		return err
	}
	if err := s.session.RemoveBudget(category); err != nil {
		return err
	}
	s.printer.Success("Budget removed.")
	return nil
}

func (s *Shell) addCategory(ctx context.Context, _ string) error {
	category, err := s.ask(ctx, "Category name")
	if err != nil {
		return err
	}
	if err := validation.Category(category); err != nil {
		return err
	}
	if err := s.session.AddCategory(category); err != nil {
		return err
	}
	s.printer.Success("Category added.")
	return nil
}

func (s *Shell) removeCategory(ctx context.Context, _ string) error {
	category, err := s.ask(ctx, "Category")
	if err != nil {
		return err
	}
	if err := s.session.RemoveCategory(category); err != nil {
		return err
	}
	s.printer.Success("Category removed.")
	return nil
}

func (s *Shell) summary(_ context.Context, _ string) error {
	sum, err := s.session.Summary()
	if err != nil {
		return err
	}
	s.printer.Summary(sum)
	return nil
}

func (s *Shell) budgets(_ context.Context, _ string) error {
	statuses, err := s.session.BudgetStatuses()
	if err != nil {
		return err
	}
	s.printer.Budgets(statuses)
	return nil
}

func (s *Shell) categories(_ context.Context, _ string) error {
	summaries, err := s.session.CategorySummaries()
	if err != nil {
		return err
	}
	s.printer.Categories(summaries)
	return nil
}

func (s *Shell) expenses(ctx context.Context, arg string) error {
	raw, err := s.askArg(ctx, arg, "Categories (comma separated)")
	if err != nil {
		return err
	}
	selected, err := validation.ParseCategoryList(raw)
	if err != nil {
		return err
	}
	amounts, err := s.session.ExpensesBySelectedCategories(selected)
	if err != nil {
		return err
	}
	s.printer.Amounts("Expenses by category", amounts)
	return nil
}

func (s *Shell) period(ctx context.Context, _ string) error {
	rawStart, err := s.ask(ctx, "Start date (YYYY-MM-DD)")
	if err != nil {
		return err
	}
	rawEnd, err := s.ask(ctx, "End date (YYYY-MM-DD)")
	if err != nil {
		return err
	}
	start, err := validation.ParseDate(rawStart)
	if err != nil {
		return err
	}
	end, err := validation.ParseDate(rawEnd)
	if err != nil {
		return err
	}
	if err := validation.DateRange(start, end); err != nil {
		return err
	}
	amounts, err := s.session.ExpensesByPeriod(start, end)
	if err != nil {
		return err
	}
	s.printer.Amounts(fmt.Sprintf("Expenses %s to %s", start.Format(model.DateLayout), end.Format(model.DateLayout)), amounts)
	return nil
}

func (s *Shell) transactions(_ context.Context, _ string) error {
	txs, err := s.session.Transactions()
	if err != nil {
		return err
	}
	s.printer.Transactions(txs)
	return nil
}

func (s *Shell) clear(_ context.Context, _ string) error {
	if err := s.session.ClearTransactions(); err != nil {
		return err
	}
	s.printer.Success("All transactions deleted.")
	return nil
}

func (s *Shell) exportWith(codec export.Codec, name string) error {
	txs, err := s.session.Transactions()
	if err != nil {
		return err
	}
	path, err := export.ExportFile(s.exportDir, name, s.session.CurrentLogin(), codec, txs)
	if err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("Exported %d transactions to %s", len(txs), path))
	return nil
}

func (s *Shell) exportCSV(_ context.Context, arg string) error {
	return s.exportWith(export.CSV{}, arg)
}

func (s *Shell) exportJSON(_ context.Context, arg string) error {
	return s.exportWith(export.JSON{}, arg)
}

func (s *Shell) importWith(ctx context.Context, codec export.Codec, arg, label string) error {
	path, err := s.askArg(ctx, arg, label)
	if err != nil {
		return err
	}
	txs, err := export.ImportFile(path, codec)
	if err != nil {
		return err
	}
	return s.importTransactions(txs)
}

func (s *Shell) importTransactions(txs []model.Transaction) error {
	if err := s.session.ImportTransactions(txs); err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("Imported %d transactions.", len(txs)))
	return nil
}

func (s *Shell) importCSV(ctx context.Context, arg string) error {
	return s.importWith(ctx, export.CSV{}, arg, "Path to CSV file")
}

func (s *Shell) importJSON(ctx context.Context, arg string) error {
	return s.importWith(ctx, export.JSON{}, arg, "Path to JSON file")
}

func (s *Shell) importOFX(ctx context.Context, arg string) error {
	path, err := s.askArg(ctx, arg, "Path to OFX/QFX file")
	if err != nil {
		return err
	}
	category, err := s.ask(ctx, "Category for uncategorized entries (empty for "+ofx.DefaultCategory+")")
	if err != nil {
		return err
	}
	if category != "" {
		if err := validation.Category(category); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: cannot open %s: %w", common.ErrNotFound, path, err)
	}
	defer func() { _ = f.Close() }()

	txs, err := ofx.NewParser(category).ParseFile(ctx, f)
	if err != nil {
		return err
	}
	return s.importTransactions(txs)
}

func (s *Shell) transfer(ctx context.Context, _ string) error {
	recipient, err := s.ask(ctx, "Recipient login")
	if err != nil {
		return err
	}
	rawAmount, err := s.ask(ctx, "Amount")
	if err != nil {
		return err
	}
	description, err := s.ask(ctx, "Description")
	if err != nil {
		return err
	}
	amount, err := validation.ParseAmount(rawAmount)
	if err != nil {
		return err
	}
	if err := s.session.Transfer(recipient, amount, description); err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("Sent %s to %s.", money(amount), model.NormalizeLogin(recipient)))
	s.save(ctx)
	return nil
}

func (s *Shell) help(_ context.Context, _ string) error {
	s.printer.Help(s.session.IsAuthenticated())
	return nil
}

func (s *Shell) exit(ctx context.Context, _ string) error {
	s.save(ctx)
	s.running = false
	s.printer.Success("Goodbye!")
	slog.Debug("Shell exited")
	return nil
}
