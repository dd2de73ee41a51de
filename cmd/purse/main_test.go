package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/config"
	"github.com/Veraticus/purse/internal/export"
	"github.com/Veraticus/purse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testSettings(t *testing.T, backend string) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	return &config.Settings{
		Backend:    backend,
		Database:   filepath.Join(dir, "purse.db"),
		JSONPath:   filepath.Join(dir, "users.json"),
		ExportDir:  filepath.Join(dir, "exports"),
		BcryptCost: bcrypt.MinCost,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

func seed(t *testing.T, settings *config.Settings) {
	t.Helper()
	ctx := context.Background()
	store, err := openStore(ctx, settings)
	require.NoError(t, err)
	require.NoError(t, store.SaveUsers(ctx, testutil.SampleUsers(t)))
	require.NoError(t, store.Close())
}

func transactionCount(t *testing.T, settings *config.Settings, login, password string) int {
	t.Helper()
	ctx := context.Background()
	a, err := openApp(ctx, settings)
	require.NoError(t, err)
	defer a.close()

	session, err := a.login(ctx, login, password)
	require.NoError(t, err)
	txs, err := session.Transactions()
	require.NoError(t, err)
	return len(txs)
}

func TestCommandTree(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "export", "import", "import-ofx", "checkpoint", "browse", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}

	for _, flag := range []string{"config", "log-level", "log-format", "backend", "database"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}

	cmd := exportCmd()
	for _, flag := range []string{"user", "password", "format", "out"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	assert.Equal(t, "purse dev\n", out.String())
}

func TestRunExport(t *testing.T) {
	for _, backend := range []string{config.BackendSQLite, config.BackendJSON} {
		t.Run(backend, func(t *testing.T) {
			settings := testSettings(t, backend)
			seed(t, settings)
			ctx := context.Background()

			var out bytes.Buffer
			require.NoError(t, runExport(ctx, settings, exportOptions{login: "alice", password: "secret1"}, &out))
			defaultPath := filepath.Join(settings.ExportDir, export.DefaultName("alice", time.Now())+".csv")
			assert.Contains(t, out.String(), "Exported 3 transactions to "+defaultPath)
			_, err := os.Stat(defaultPath)
			require.NoError(t, err)

			explicit := filepath.Join(t.TempDir(), "alice.json")
			out.Reset()
			require.NoError(t, runExport(ctx, settings, exportOptions{login: "alice", password: "secret1", out: explicit}, &out))
			txs, err := export.ImportFile(explicit, export.JSON{})
			require.NoError(t, err)
			assert.Len(t, txs, 3)
		})
	}
}

func TestRunExport_Errors(t *testing.T) {
	settings := testSettings(t, config.BackendSQLite)
	seed(t, settings)
	ctx := context.Background()

	err := runExport(ctx, settings, exportOptions{login: "alice", password: "wrong"}, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrInvalidCredential)

	err = runExport(ctx, settings, exportOptions{login: "zoe", password: "secret1"}, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrNotFound)

	err = runExport(ctx, settings, exportOptions{login: "alice", password: "secret1", format: "xml"}, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRunImport(t *testing.T) {
	settings := testSettings(t, config.BackendSQLite)
	seed(t, settings)
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "alice.csv")
	require.NoError(t, runExport(ctx, settings, exportOptions{login: "alice", password: "secret1", out: file}, &bytes.Buffer{}))

	var out bytes.Buffer
	n, err := runImport(ctx, settings, importOptions{login: "bob", password: "hunter22", files: []string{file}, dryRun: true}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, out.String(), "nothing saved")
	assert.Equal(t, 1, transactionCount(t, settings, "bob", "hunter22"))

	out.Reset()
	n, err = runImport(ctx, settings, importOptions{login: "bob", password: "hunter22", files: []string{file}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, out.String(), "Imported 3 transactions for bob")
	assert.Equal(t, 4, transactionCount(t, settings, "bob", "hunter22"))

	out.Reset()
	require.NoError(t, runCheckpointList(ctx, settings, &out))
	assert.Contains(t, out.String(), "auto-import-")

	// Same ids again: rejected as a whole.
	_, err = runImport(ctx, settings, importOptions{login: "bob", password: "hunter22", files: []string{file}}, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.Equal(t, 4, transactionCount(t, settings, "bob", "hunter22"))
}

func TestRunImport_UnknownExtension(t *testing.T) {
	settings := testSettings(t, config.BackendSQLite)
	file := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := runImport(context.Background(), settings, importOptions{login: "bob", password: "hunter22", files: []string{file}}, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRunImportOFX(t *testing.T) {
	settings := testSettings(t, config.BackendSQLite)
	seed(t, settings)
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "statement.qfx")
	require.NoError(t, os.WriteFile(file, []byte(testutil.SampleOFX), 0o600))
	opts := ofxOptions{login: "alice", password: "secret1", category: "Groceries", files: []string{file}}

	var out bytes.Buffer
	res, err := runImportOFX(ctx, settings, opts, &out)
	require.NoError(t, err)
	assert.Equal(t, ofxResult{imported: 2}, res)
	assert.Equal(t, 5, transactionCount(t, settings, "alice", "secret1"))

	res, err = runImportOFX(ctx, settings, opts, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, ofxResult{skipped: 2}, res)
	assert.Equal(t, 5, transactionCount(t, settings, "alice", "secret1"))

	opts.category = "Food & Drink"
	_, err = runImportOFX(ctx, settings, opts, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRunMigrate(t *testing.T) {
	settings := testSettings(t, config.BackendSQLite)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runMigrate(ctx, settings, true, &out))
	assert.Contains(t, out.String(), "Current version: 0")
	assert.Contains(t, out.String(), "Pending migrations")

	out.Reset()
	require.NoError(t, runMigrate(ctx, settings, false, &out))
	assert.Contains(t, out.String(), "schema version 3")

	out.Reset()
	require.NoError(t, runMigrate(ctx, settings, true, &out))
	assert.Contains(t, out.String(), "Current version: 3")
	assert.Contains(t, out.String(), "Last saved:      never")

	seed(t, settings)
	out.Reset()
	require.NoError(t, runMigrate(ctx, settings, true, &out))
	assert.Contains(t, out.String(), "(2 users)")

	out.Reset()
	require.NoError(t, runMigrate(ctx, testSettings(t, config.BackendJSON), false, &out))
	assert.Contains(t, out.String(), "no schema")
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.csv", "c.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	files, err := expandFiles([]string{filepath.Join(dir, "*.csv"), filepath.Join(dir, "c.json")})
	require.NoError(t, err)
	assert.Len(t, files, 3)

	_, err = expandFiles([]string{filepath.Join(dir, "*.ofx")})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCheckpointCommands(t *testing.T) {
	settings := testSettings(t, config.BackendSQLite)
	seed(t, settings)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, runCheckpointList(ctx, settings, &out))
	assert.Contains(t, out.String(), "No checkpoints found.")

	out.Reset()
	require.NoError(t, runCheckpointCreate(ctx, settings, "safe", "before cleanup", &out))
	assert.Contains(t, out.String(), "Created checkpoint safe")
	assert.Contains(t, out.String(), "Description: before cleanup")

	// Lose bob's data, then decline and accept a restore.
	store, err := openStore(ctx, settings)
	require.NoError(t, err)
	require.NoError(t, store.SaveUsers(ctx, testutil.NewLedger(t).Service.Users()))
	require.NoError(t, store.Close())

	out.Reset()
	require.NoError(t, runCheckpointRestore(ctx, settings, "safe", false, strings.NewReader("n\n"), &out))
	assert.Contains(t, out.String(), "Restore cancelled.")

	out.Reset()
	require.NoError(t, runCheckpointRestore(ctx, settings, "safe", false, strings.NewReader("yes\n"), &out))
	assert.Contains(t, out.String(), "Restored from checkpoint safe")
	assert.Equal(t, 1, transactionCount(t, settings, "bob", "hunter22"))

	out.Reset()
	require.NoError(t, runCheckpointList(ctx, settings, &out))
	assert.Contains(t, out.String(), "safe")
	assert.Contains(t, out.String(), "manual")

	out.Reset()
	require.NoError(t, runCheckpointDelete(ctx, settings, "safe", true, nil, &out))
	assert.Contains(t, out.String(), "Deleted checkpoint safe")

	err = runCheckpointDelete(ctx, settings, "safe", true, nil, &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrNotFound)

	err = runCheckpointList(ctx, testSettings(t, config.BackendJSON), &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrInvalidState)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", formatRelativeTime(now))
	assert.Equal(t, "1 minute ago", formatRelativeTime(now.Add(-90*time.Second)))
	assert.Equal(t, "3 hours ago", formatRelativeTime(now.Add(-3*time.Hour-time.Minute)))
	assert.Equal(t, "yesterday", formatRelativeTime(now.Add(-30*time.Hour)))
	old := now.Add(-30 * 24 * time.Hour)
	assert.Equal(t, old.Format("2006-01-02 15:04"), formatRelativeTime(old))
}
