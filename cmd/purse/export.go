package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/export"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	login    string
	password string
	format   string
	out      string
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's transactions to CSV or JSON",
		Long: `Export every transaction of one user.

Examples:
  # CSV into the configured export directory, named <login>_<date>.csv
  purse export --user alice

  # JSON to an explicit path
  purse export --user alice --out ~/backup/alice.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			login, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), settings, exportOptions{
				login:    login,
				password: password,
				format:   format,
				out:      config.ExpandPath(out),
			}, cmd.OutOrStdout())
		},
	}

	addCredentialFlags(cmd)
	cmd.Flags().StringP("format", "f", "", "csv or json (default: from --out extension, else csv)")
	cmd.Flags().StringP("out", "o", "", "output file (default: <export.dir>/<login>_<date>.<ext>)")

	return cmd
}

func exportCodec(format, out string) (export.Codec, error) {
	switch {
	case format != "":
		return export.ForFormat(format)
	case out != "" && filepath.Ext(out) != "":
		return export.ForPath(out)
	default:
		return export.CSV{}, nil
	}
}

func runExport(ctx context.Context, settings *config.Settings, opts exportOptions, w io.Writer) error {
	codec, err := exportCodec(opts.format, opts.out)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, settings)
	if err != nil {
		return err
	}
	defer a.close()

	session, err := a.login(ctx, opts.login, opts.password)
	if err != nil {
		return err
	}
	txs, err := session.Transactions()
	if err != nil {
		return err
	}

	dir, name := settings.ExportDir, ""
	if opts.out != "" {
		dir, name = filepath.Dir(opts.out), filepath.Base(opts.out)
	}
	path, err := export.ExportFile(dir, name, session.CurrentLogin(), codec, txs)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Exported %d transactions to %s\n", len(txs), path)
	return nil
}
