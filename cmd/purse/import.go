package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/export"
	"github.com/Veraticus/purse/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type importOptions struct {
	login    string
	password string
	format   string
	files    []string
	dryRun   bool
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from CSV or JSON files",
		Long: `Import transactions previously exported by purse (or written by hand)
into one user's wallet. All files are decoded first and imported together,
so a bad row or a duplicate id leaves the wallet unchanged.

Examples:
  purse import --user alice ~/Downloads/alice_2024-03-01.csv
  purse import --user alice --format json backups/*.dat`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			login, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			files, err := expandFiles(args)
			if err != nil {
				return err
			}
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			_, err = runImport(cmd.Context(), settings, importOptions{
				login:    login,
				password: password,
				format:   format,
				files:    files,
				dryRun:   dryRun,
			}, cmd.OutOrStdout())
			return err
		},
	}

	addCredentialFlags(cmd)
	cmd.Flags().StringP("format", "f", "", "csv or json (default: from each file's extension)")
	cmd.Flags().BoolP("dry-run", "d", false, "Decode and count without saving")

	return cmd
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func runImport(ctx context.Context, settings *config.Settings, opts importOptions, w io.Writer) (int, error) {
	var all []model.Transaction
	bar := newProgressBar(w, len(opts.files), "Reading files")
	for _, file := range opts.files {
		codec, err := importCodec(opts.format, file)
		if err != nil {
			return 0, err
		}
		txs, err := export.ImportFile(file, codec)
		if err != nil {
			return 0, err
		}
		slog.Debug("Decoded file", "file", file, "transactions", len(txs))
		all = append(all, txs...)
		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	if opts.dryRun {
		_, _ = fmt.Fprintf(w, "Dry run: %d transactions in %d files, nothing saved\n", len(all), len(opts.files))
		return len(all), nil
	}

	a, err := openApp(ctx, settings)
	if err != nil {
		return 0, err
	}
	defer a.close()

	session, err := a.login(ctx, opts.login, opts.password)
	if err != nil {
		return 0, err
	}
	if err := session.ImportTransactions(all); err != nil {
		return 0, err
	}
	a.autoCheckpoint(ctx, "import")
	if err := a.save(ctx); err != nil {
		return 0, err
	}

	_, _ = fmt.Fprintf(w, "Imported %d transactions for %s\n", len(all), session.CurrentLogin())
	return len(all), nil
}

func importCodec(format, file string) (export.Codec, error) {
	if format != "" {
		return export.ForFormat(format)
	}
	return export.ForPath(file)
}
