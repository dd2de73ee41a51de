package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
)

const (
	checkpointExt     = ".db"
	checkpointMetaExt = ".meta.json"
	checkpointTagTime = "2006-01-02-150405"

	// MaxAutoCheckpoints is how many automatic checkpoints are kept.
	MaxAutoCheckpoints = 5
)

// CheckpointManager keeps copies of the ledger database next to it.
type CheckpointManager struct {
	store *SQLiteStorage
	dir   string
}

// CheckpointMetadata is written beside each checkpoint file.
type CheckpointMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// CheckpointInfo summarizes a checkpoint for listing.
type CheckpointInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Users         int
	Transactions  int
	Budgets       int
	SchemaVersion int
	IsAuto        bool
}

// NewCheckpointManager returns a manager storing checkpoints in a
// "checkpoints" directory beside the database.
func (s *SQLiteStorage) NewCheckpointManager() (*CheckpointManager, error) {
	if s.dbPath == ":memory:" {
		return nil, fmt.Errorf("%w: in-memory databases cannot be checkpointed", common.ErrInvalidState)
	}
	dir := filepath.Join(filepath.Dir(s.dbPath), "checkpoints")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	return &CheckpointManager{store: s, dir: dir}, nil
}

// Dir returns the checkpoints directory.
func (cm *CheckpointManager) Dir() string { return cm.dir }

func validateTag(tag string) error {
	if strings.ContainsAny(tag, `/\'";`) || strings.Contains(tag, "..") {
		return fmt.Errorf("%w: checkpoint tag %q contains forbidden characters", common.ErrInvalidArgument, tag)
	}
	return nil
}

func (cm *CheckpointManager) paths(id string) (string, string) {
	return filepath.Join(cm.dir, id+checkpointExt), filepath.Join(cm.dir, id+checkpointMetaExt)
}

// Create copies the database into a new checkpoint. An empty tag is
// generated from the current time.
func (cm *CheckpointManager) Create(ctx context.Context, tag, description string) (*CheckpointInfo, error) {
	return cm.create(ctx, tag, description, false)
}

func (cm *CheckpointManager) create(ctx context.Context, tag, description string, auto bool) (*CheckpointInfo, error) {
	if tag == "" {
		tag = "checkpoint-" + time.Now().Format(checkpointTagTime)
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}

	dbFile, metaFile := cm.paths(tag)
	if _, err := os.Stat(dbFile); err == nil {
		return nil, fmt.Errorf("%w: checkpoint %s", common.ErrAlreadyExists, tag)
	}

	version, err := cm.store.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts := cm.rowCounts(ctx)

	if err := cm.backupDatabase(ctx, dbFile); err != nil {
		return nil, fmt.Errorf("failed to copy database: %w", err)
	}
	stat, err := os.Stat(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to stat checkpoint: %w", err)
	}

	meta := CheckpointMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
		IsAuto:        auto,
	}
	if err := saveMetadata(metaFile, meta); err != nil {
		if rmErr := os.Remove(dbFile); rmErr != nil {
			slog.Error("Failed to remove checkpoint after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save checkpoint metadata: %w", err)
	}

	slog.Info("Checkpoint created", "id", tag, "size", meta.FileSize, "auto", auto)
	return meta.info(), nil
}

// AutoCheckpoint creates an automatic checkpoint labeled with reason and
// prunes automatic checkpoints beyond MaxAutoCheckpoints.
func (cm *CheckpointManager) AutoCheckpoint(ctx context.Context, reason string) error {
	tag := fmt.Sprintf("auto-%s-%s", reason, time.Now().Format(checkpointTagTime))
	if _, err := cm.create(ctx, tag, "Automatic checkpoint before "+reason, true); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	if err := cm.pruneAuto(ctx); err != nil {
		slog.Warn("Failed to prune automatic checkpoints", "error", err)
	}
	return nil
}

func (cm *CheckpointManager) pruneAuto(ctx context.Context) error {
	checkpoints, err := cm.List(ctx)
	if err != nil {
		return err
	}
	kept := 0
	for _, cp := range checkpoints {
		if !cp.IsAuto {
			continue
		}
		kept++
		if kept <= MaxAutoCheckpoints {
			continue
		}
		if err := cm.Delete(cp.ID); err != nil {
			slog.Debug("Failed to delete old automatic checkpoint", "id", cp.ID, "error", err)
		}
	}
	return nil
}

// List returns every checkpoint, newest first. Unreadable metadata is skipped.
func (cm *CheckpointManager) List(_ context.Context) ([]CheckpointInfo, error) {
	entries, err := os.ReadDir(cm.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoints directory: %w", err)
	}

	checkpoints := make([]CheckpointInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), checkpointMetaExt) {
			continue
		}
		meta, err := loadMetadata(filepath.Join(cm.dir, entry.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable checkpoint metadata", "file", entry.Name(), "error", err)
			continue
		}
		checkpoints = append(checkpoints, *meta.info())
	}

	sort.Slice(checkpoints, func(i, j int) bool {
		return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
	})
	return checkpoints, nil
}

// Info returns one checkpoint's metadata.
func (cm *CheckpointManager) Info(id string) (*CheckpointInfo, error) {
	if err := validateTag(id); err != nil {
		return nil, err
	}
	_, metaFile := cm.paths(id)
	meta, err := loadMetadata(metaFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: checkpoint %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint metadata: %w", err)
	}
	return meta.info(), nil
}

// Restore replaces the database with a checkpoint. The storage the manager
// was created from is closed and must be reopened afterwards.
func (cm *CheckpointManager) Restore(_ context.Context, id string) error {
	if _, err := cm.Info(id); err != nil {
		return err
	}
	dbFile, _ := cm.paths(id)
	if _, err := os.Stat(dbFile); err != nil {
		return fmt.Errorf("%w: checkpoint %s has no database file", common.ErrNotFound, id)
	}
	if err := verifyIntegrity(dbFile); err != nil {
		return fmt.Errorf("%w: checkpoint %s: %v", common.ErrDatabaseCorrupted, id, err)
	}

	if err := cm.store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	target := cm.store.dbPath
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(target + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}

	backup := target + ".restore-backup"
	if err := copyFile(target, backup); err != nil {
		return fmt.Errorf("failed to back up current database: %w", err)
	}
	if err := copyFile(dbFile, target); err != nil {
		if restoreErr := copyFile(backup, target); restoreErr != nil {
			slog.Error("Failed to put the previous database back", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore checkpoint: %w", err)
	}
	if err := os.Remove(backup); err != nil {
		slog.Warn("Failed to remove restore backup", "path", backup, "error", err)
	}

	slog.Info("Checkpoint restored", "id", id, "database", target)
	return nil
}

// Delete removes a checkpoint and its metadata.
func (cm *CheckpointManager) Delete(id string) error {
	if err := validateTag(id); err != nil {
		return err
	}
	dbFile, metaFile := cm.paths(id)
	if err := os.Remove(dbFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: checkpoint %s", common.ErrNotFound, id)
		}
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	if err := os.Remove(metaFile); err != nil {
		slog.Debug("Failed to remove checkpoint metadata", "path", metaFile, "error", err)
	}
	return nil
}

func (cm *CheckpointManager) rowCounts(ctx context.Context) map[string]int {
	queries := map[string]string{
		"users":        "SELECT COUNT(*) FROM users",
		"transactions": "SELECT COUNT(*) FROM transactions",
		"budgets":      "SELECT COUNT(*) FROM budgets",
	}
	counts := make(map[string]int, len(queries))
	for table, query := range queries {
		var n int
		if err := cm.store.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			// Not migrated yet.
			n = 0
		}
		counts[table] = n
	}
	return counts
}

func (cm *CheckpointManager) backupDatabase(ctx context.Context, dest string) error {
	if _, err := cm.store.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	if !filepath.IsAbs(dest) || strings.ContainsAny(dest, `'";`) {
		return copyFile(cm.store.dbPath, dest)
	}
	// #nosec G201 - dest is absolute and free of quotes
	if _, err := cm.store.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		slog.Debug("VACUUM INTO failed, copying file instead", "error", err)
		return copyFile(cm.store.dbPath, dest)
	}
	return nil
}

func (m CheckpointMetadata) info() *CheckpointInfo {
	return &CheckpointInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		Users:         m.RowCounts["users"],
		Transactions:  m.RowCounts["transactions"],
		Budgets:       m.RowCounts["budgets"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

func saveMetadata(path string, meta CheckpointMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func loadMetadata(path string) (*CheckpointMetadata, error) {
	// #nosec G304 - path is built from a validated tag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta CheckpointMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	// #nosec G304 - src is the configured database or a checkpoint
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
