package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/finance"
	"github.com/Veraticus/purse/internal/service"
	"github.com/Veraticus/purse/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// app bundles the store and the in-memory service for one command run.
type app struct {
	settings *config.Settings
	store    service.UserStore
	service  *finance.Service
}

// openStore opens the configured backend, migrating SQLite to the current schema.
func openStore(ctx context.Context, settings *config.Settings) (service.UserStore, error) {
	switch settings.Backend {
	case config.BackendJSON:
		store, err := storage.NewJSONFileStorage(settings.JSONPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := storage.NewSQLiteStorage(settings.Database)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	}
}

func openApp(ctx context.Context, settings *config.Settings) (*app, error) {
	store, err := openStore(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &app{
		settings: settings,
		store:    store,
		service:  finance.NewService(finance.WithPasswordCost(settings.BcryptCost)),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close store", "error", err)
	}
}

// login loads every user and opens a session for one of them.
func (a *app) login(ctx context.Context, login, password string) (*finance.Session, error) {
	users, err := a.store.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	a.service.InitializeUsers(users)

	session := a.service.NewSession()
	if err := session.Login(login, password); err != nil {
		return nil, err
	}
	return session, nil
}

func (a *app) save(ctx context.Context) error {
	if err := a.store.SaveUsers(ctx, a.service.Users()); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

// autoCheckpoint copies a SQLite ledger before a bulk change. Failures are
// logged and never block the change.
func (a *app) autoCheckpoint(ctx context.Context, reason string) {
	sqliteStore, ok := a.store.(*storage.SQLiteStorage)
	if !ok {
		return
	}
	manager, err := sqliteStore.NewCheckpointManager()
	if err == nil {
		err = manager.AutoCheckpoint(ctx, reason)
	}
	if err != nil {
		slog.Warn("Failed to create automatic checkpoint", "reason", reason, "error", err)
	}
}

// credentials reads --user and the password from --password or PURSE_PASSWORD.
func credentials(cmd *cobra.Command) (string, string, error) {
	login, _ := cmd.Flags().GetString("user")
	if login == "" {
		return "", "", fmt.Errorf("%w: --user is required", common.ErrMissingConfig)
	}
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = viper.GetString(config.KeyPassword)
	}
	if password == "" {
		return "", "", fmt.Errorf("%w: pass --password or set PURSE_PASSWORD", common.ErrMissingConfig)
	}
	return login, password, nil
}

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "login of the user to act as")
	cmd.Flags().String("password", "", "password (defaults to $PURSE_PASSWORD)")
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files found to import", common.ErrNotFound)
	}
	return files, nil
}
