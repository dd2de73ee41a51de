package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/purse/internal/cli"
	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/storage"
	"github.com/spf13/cobra"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore, and delete database checkpoints.

Checkpoints are copies of the SQLite ledger kept next to it. Imports take an
automatic checkpoint before saving; the newest five automatic ones are kept.`,
		Example: `  # Create a checkpoint before a big import
  purse checkpoint create --tag pre-2024-import

  # List all checkpoints
  purse checkpoint list

  # Restore from a checkpoint
  purse checkpoint restore pre-2024-import`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())

	return cmd
}

func createCheckpointCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return runCheckpointCreate(cmd.Context(), settings, tag, description, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint name (generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")

	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return runCheckpointList(cmd.Context(), settings, cmd.OutOrStdout())
		},
	}
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Replace the database with a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return runCheckpointRestore(cmd.Context(), settings, args[0], force, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			return runCheckpointDelete(cmd.Context(), settings, args[0], force, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// withCheckpoints opens the SQLite store and hands its checkpoint manager to fn.
func withCheckpoints(ctx context.Context, settings *config.Settings, fn func(*storage.CheckpointManager) error) error {
	if settings.Backend != config.BackendSQLite {
		return fmt.Errorf("%w: checkpoints require the sqlite backend", common.ErrInvalidState)
	}
	store, err := storage.NewSQLiteStorage(settings.Database)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	manager, err := store.NewCheckpointManager()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return fn(manager)
}

func runCheckpointCreate(ctx context.Context, settings *config.Settings, tag, description string, out io.Writer) error {
	return withCheckpoints(ctx, settings, func(manager *storage.CheckpointManager) error {
		info, err := manager.Create(ctx, tag, description)
		if err != nil {
			return fmt.Errorf("failed to create checkpoint: %w", err)
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created checkpoint %s (%s)", info.ID, formatFileSize(info.FileSize))))
		if info.Description != "" {
			_, _ = fmt.Fprintf(out, "  Description: %s\n", info.Description)
		}
		return nil
	})
}

func runCheckpointList(ctx context.Context, settings *config.Settings, out io.Writer) error {
	return withCheckpoints(ctx, settings, func(manager *storage.CheckpointManager) error {
		checkpoints, err := manager.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}
		if len(checkpoints) == 0 {
			_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("No checkpoints found."))
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tCREATED\tSIZE\tUSERS\tTRANSACTIONS\tTYPE")
		for _, cp := range checkpoints {
			kind := "manual"
			if cp.IsAuto {
				kind = "auto"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				cp.ID, formatRelativeTime(cp.CreatedAt), formatFileSize(cp.FileSize), cp.Users, cp.Transactions, kind)
		}
		return w.Flush()
	})
}

func runCheckpointRestore(ctx context.Context, settings *config.Settings, id string, force bool, in io.Reader, out io.Writer) error {
	return withCheckpoints(ctx, settings, func(manager *storage.CheckpointManager) error {
		info, err := manager.Info(id)
		if err != nil {
			return err
		}
		if !force {
			_, _ = fmt.Fprintln(out, cli.FormatWarning("This will replace your current database with checkpoint "+id+"."))
			_, _ = fmt.Fprintf(out, "  Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
			ok, err := confirm(ctx, in, out)
			if err != nil || !ok {
				_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("Restore cancelled."))
				return nil
			}
		}
		if err := manager.Restore(ctx, id); err != nil {
			return fmt.Errorf("failed to restore checkpoint: %w", err)
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Restored from checkpoint "+id))
		return nil
	})
}

func runCheckpointDelete(ctx context.Context, settings *config.Settings, id string, force bool, in io.Reader, out io.Writer) error {
	return withCheckpoints(ctx, settings, func(manager *storage.CheckpointManager) error {
		info, err := manager.Info(id)
		if err != nil {
			return err
		}
		if !force {
			_, _ = fmt.Fprintln(out, cli.FormatWarning("This will permanently delete checkpoint "+id+"."))
			_, _ = fmt.Fprintf(out, "  Size: %s\n", formatFileSize(info.FileSize))
			ok, err := confirm(ctx, in, out)
			if err != nil || !ok {
				_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("Deletion cancelled."))
				return nil
			}
		}
		if err := manager.Delete(id); err != nil {
			return fmt.Errorf("failed to delete checkpoint: %w", err)
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Deleted checkpoint "+id))
		return nil
	})
}

func confirm(ctx context.Context, in io.Reader, out io.Writer) (bool, error) {
	_, _ = fmt.Fprint(out, "\nContinue? (y/N) ")
	answer, err := cli.NewLineReader(in).ReadLine(ctx)
	if err != nil {
		return false, err
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y"), nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
