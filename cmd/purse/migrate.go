package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the SQLite schema to the latest version.

With --status the current and expected schema versions are printed and
nothing is changed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), settings, status, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(ctx context.Context, settings *config.Settings, status bool, out io.Writer) error {
	if settings.Backend != config.BackendSQLite {
		_, _ = fmt.Fprintf(out, "The %s backend has no schema to migrate.\n", settings.Backend)
		return nil
	}

	store, err := storage.NewSQLiteStorage(settings.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if status {
		return printMigrationStatus(ctx, store, out)
	}

	slog.Info("Running database migrations", "database", settings.Database)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Database %s is at schema version %d.\n", settings.Database, storage.ExpectedSchemaVersion)
	return nil
}

func printMigrationStatus(ctx context.Context, store *storage.SQLiteStorage, out io.Writer) error {
	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Database:        %s\n", store.Path())
	_, _ = fmt.Fprintf(out, "Current version: %d\n", current)
	_, _ = fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)

	if current < storage.ExpectedSchemaVersion {
		_, _ = fmt.Fprintln(out, "Pending migrations: run 'purse migrate'.")
		return nil
	}

	savedAt, users, ok, err := store.LastSaved(ctx)
	if err != nil {
		return err
	}
	if ok {
		_, _ = fmt.Fprintf(out, "Last saved:      %s (%d users)\n", savedAt.Local().Format("2006-01-02 15:04:05"), users)
	} else {
		_, _ = fmt.Fprintln(out, "Last saved:      never")
	}
	return nil
}
