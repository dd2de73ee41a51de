package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/ofx"
	"github.com/Veraticus/purse/internal/validation"
	"github.com/spf13/cobra"
)

type ofxOptions struct {
	login    string
	password string
	category string
	files    []string
	dryRun   bool
}

type ofxResult struct {
	imported int
	skipped  int
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import bank and credit card statements in OFX or QFX (Quicken) format.

Debits become expenses and credits become income. Interest, fees, deposits,
cash withdrawals and checks get their own categories; everything else goes
to --category. Entries whose FITID is already in the wallet are skipped, so
overlapping statements can be imported safely.

Examples:
  # Import single file
  purse import-ofx --user alice ~/Downloads/chase_jan_2024.qfx

  # Import all QFX files in a directory under one category
  purse import-ofx --user alice --category Groceries ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			login, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			category, _ := cmd.Flags().GetString("category")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			_, err = runImportOFX(cmd.Context(), settings, ofxOptions{
				login:    login,
				password: password,
				category: category,
				files:    files,
				dryRun:   dryRun,
			}, cmd.OutOrStdout())
			return err
		},
	}

	addCredentialFlags(cmd)
	cmd.Flags().StringP("category", "c", ofx.DefaultCategory, "category for entries without a typed category")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImportOFX(ctx context.Context, settings *config.Settings, opts ofxOptions, w io.Writer) (ofxResult, error) {
	var result ofxResult
	if opts.category != "" {
		if err := validation.Category(opts.category); err != nil {
			return result, err
		}
	}

	a, err := openApp(ctx, settings)
	if err != nil {
		return result, err
	}
	defer a.close()

	session, err := a.login(ctx, opts.login, opts.password)
	if err != nil {
		return result, err
	}
	existing, err := session.Transactions()
	if err != nil {
		return result, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, tx := range existing {
		seen[tx.ID()] = struct{}{}
	}

	parser := ofx.NewParser(opts.category)
	var fresh []model.Transaction
	bar := newProgressBar(w, len(opts.files), "Parsing statements")
	for _, file := range opts.files {
		txs, err := parseStatement(ctx, parser, file)
		if err != nil {
			return result, err
		}
		for _, tx := range txs {
			if _, dup := seen[tx.ID()]; dup {
				result.skipped++
				continue
			}
			seen[tx.ID()] = struct{}{}
			fresh = append(fresh, tx)
		}
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
	result.imported = len(fresh)

	if opts.dryRun {
		_, _ = fmt.Fprintf(w, "Dry run: %d new transactions, %d already imported, nothing saved\n", result.imported, result.skipped)
		return result, nil
	}

	if err := session.ImportTransactions(fresh); err != nil {
		return ofxResult{}, err
	}
	a.autoCheckpoint(ctx, "import-ofx")
	if err := a.save(ctx); err != nil {
		return ofxResult{}, err
	}

	_, _ = fmt.Fprintf(w, "Imported %d transactions for %s (%d already present)\n",
		result.imported, session.CurrentLogin(), result.skipped)
	return result, nil
}

func parseStatement(ctx context.Context, parser *ofx.Parser, file string) ([]model.Transaction, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	accounts, err := parser.Accounts(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	txs, err := parser.ParseFile(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	slog.Info("Parsed statement", "file", file, "accounts", accounts, "transactions", len(txs))
	return txs, nil
}
