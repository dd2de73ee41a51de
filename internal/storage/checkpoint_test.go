package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStorage(t *testing.T) (*SQLiteStorage, *CheckpointManager, map[string]*model.User) {
	t.Helper()
	store, cleanup := createTestStorage(t)
	t.Cleanup(cleanup)
	users := testutil.SampleUsers(t)
	require.NoError(t, store.SaveUsers(context.Background(), users))

	cm, err := store.NewCheckpointManager()
	require.NoError(t, err)
	return store, cm, users
}

func TestCheckpointManager_Create(t *testing.T) {
	_, cm, _ := seededStorage(t)
	ctx := context.Background()

	info, err := cm.Create(ctx, "before-import", "Test checkpoint")
	require.NoError(t, err)
	assert.Equal(t, "before-import", info.ID)
	assert.Equal(t, "Test checkpoint", info.Description)
	assert.Equal(t, 2, info.Users)
	assert.Equal(t, 4, info.Transactions)
	assert.Equal(t, 2, info.Budgets)
	assert.Equal(t, ExpectedSchemaVersion, info.SchemaVersion)
	assert.Positive(t, info.FileSize)
	assert.False(t, info.IsAuto)

	assert.FileExists(t, filepath.Join(cm.Dir(), "before-import.db"))
	assert.FileExists(t, filepath.Join(cm.Dir(), "before-import.meta.json"))

	_, err = cm.Create(ctx, "before-import", "")
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	generated, err := cm.Create(ctx, "", "")
	require.NoError(t, err)
	assert.Contains(t, generated.ID, "checkpoint-")
}

func TestCheckpointManager_RejectsBadTags(t *testing.T) {
	_, cm, _ := seededStorage(t)

	for _, tag := range []string{"../escape", "a/b", `a\b`, "it's"} {
		_, err := cm.Create(context.Background(), tag, "")
		require.ErrorIs(t, err, common.ErrInvalidArgument, tag)
	}
	require.ErrorIs(t, cm.Delete("../x"), common.ErrInvalidArgument)
}

func TestCheckpointManager_ListNewestFirst(t *testing.T) {
	_, cm, _ := seededStorage(t)
	ctx := context.Background()

	for _, tag := range []string{"first", "second", "third"} {
		_, err := cm.Create(ctx, tag, "")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, os.WriteFile(filepath.Join(cm.Dir(), "broken.meta.json"), []byte("{"), 0600))

	checkpoints, err := cm.List(ctx)
	require.NoError(t, err)
	require.Len(t, checkpoints, 3)
	assert.Equal(t, "third", checkpoints[0].ID)
	assert.Equal(t, "first", checkpoints[2].ID)
}

func TestCheckpointManager_Restore(t *testing.T) {
	store, cm, seeded := seededStorage(t)
	ctx := context.Background()
	path := store.Path()

	_, err := cm.Create(ctx, "good", "")
	require.NoError(t, err)

	// Wipe everything, then bring it back.
	require.NoError(t, store.SaveUsers(ctx, testutil.NewLedger(t).Service.Users()))
	require.NoError(t, cm.Restore(ctx, "good"))

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	users, err := reopened.LoadUsers(ctx)
	require.NoError(t, err)
	assertSameUsers(t, seeded, users)
	assert.NoFileExists(t, path+".restore-backup")
}

func TestCheckpointManager_RestoreErrors(t *testing.T) {
	_, cm, _ := seededStorage(t)
	ctx := context.Background()

	require.ErrorIs(t, cm.Restore(ctx, "missing"), common.ErrNotFound)

	_, err := cm.Create(ctx, "damaged", "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cm.Dir(), "damaged.db"), []byte("not a database at all, just text"), 0600))
	require.ErrorIs(t, cm.Restore(ctx, "damaged"), common.ErrDatabaseCorrupted)
}

func TestCheckpointManager_Delete(t *testing.T) {
	_, cm, _ := seededStorage(t)
	ctx := context.Background()

	_, err := cm.Create(ctx, "old", "")
	require.NoError(t, err)
	require.NoError(t, cm.Delete("old"))

	_, err = cm.Info("old")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, cm.Delete("old"), common.ErrNotFound)
}

func TestCheckpointManager_AutoCheckpointPrunes(t *testing.T) {
	_, cm, _ := seededStorage(t)
	ctx := context.Background()

	// Seed older automatic checkpoints directly so their timestamps differ.
	for i := range MaxAutoCheckpoints + 2 {
		_, err := cm.create(ctx, fmt.Sprintf("auto-old-%d", i), "", true)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	_, err := cm.Create(ctx, "manual", "")
	require.NoError(t, err)

	require.NoError(t, cm.AutoCheckpoint(ctx, "import"))
	// A second call in the same second is a no-op.
	require.NoError(t, cm.AutoCheckpoint(ctx, "import"))

	checkpoints, err := cm.List(ctx)
	require.NoError(t, err)
	auto := 0
	for _, cp := range checkpoints {
		if cp.IsAuto {
			auto++
		}
	}
	assert.Equal(t, MaxAutoCheckpoints, auto)
	assert.Len(t, checkpoints, MaxAutoCheckpoints+1)

	_, err = cm.Info("auto-old-0")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCheckpointManager_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.NewCheckpointManager()
	require.ErrorIs(t, err, common.ErrInvalidState)
}
