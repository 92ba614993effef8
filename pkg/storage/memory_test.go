package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

func memoryItem(title string, updatedAt time.Time) types.VaultItem {
	return types.VaultItem{
		ID:            uuid.New(),
		Type:          types.ItemTypeNote,
		Title:         title,
		EncryptedData: []byte{1, 2, 3},
		Nonce:         make([]byte, types.NonceSize),
		SyncVersion:   1,
		CreatedAt:     updatedAt,
		UpdatedAt:     updatedAt,
	}
}

func TestMemoryListItemsOrdersByUpdatedAtDescending(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	oldest := memoryItem("oldest", base)
	middle := memoryItem("middle", base.Add(time.Minute))
	newest := memoryItem("newest", base.Add(2*time.Minute))
	for _, item := range []types.VaultItem{middle, oldest, newest} {
		require.NoError(t, repo.UpsertItem(ctx, &item))
	}

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "newest", items[0].Title)
	assert.Equal(t, "middle", items[1].Title)
	assert.Equal(t, "oldest", items[2].Title)
}

func TestMemoryGetDeleteMissingItem(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	_, err := repo.GetItem(ctx, uuid.New())
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteItem(ctx, uuid.New()), errdefs.ErrNotFound)
}

func TestMemoryUpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	item := memoryItem("first", time.Now().UTC())
	require.NoError(t, repo.UpsertItem(ctx, &item))

	item.Title = "second"
	item.SyncVersion = 2
	require.NoError(t, repo.UpsertItem(ctx, &item))

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", stored.Title)
	assert.Equal(t, uint64(2), stored.SyncVersion)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	item := memoryItem("original", time.Now().UTC())
	require.NoError(t, repo.UpsertItem(ctx, &item))

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	stored.EncryptedData[0] = 0xff

	again, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, byte(1), again.EncryptedData[0])
}

func TestMemoryAuthRecordRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	record, err := repo.GetAuthRecord(ctx)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, repo.SetAuthRecord(ctx, &types.AuthRecord{
		Salt:        "salt",
		Verifier:    "verifier",
		Argon2MCost: 65536,
		Argon2TCost: 3,
		Argon2PCost: 1,
	}))

	record, err = repo.GetAuthRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "salt", record.Salt)
}

func TestMemoryTombstoneLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	tombstone := types.SyncTombstone{ID: uuid.New(), DeletedAt: time.Now().UTC(), SyncVersion: 2}
	require.NoError(t, repo.UpsertTombstone(ctx, &tombstone))

	tombstones, err := repo.ListTombstones(ctx)
	require.NoError(t, err)
	require.Len(t, tombstones, 1)

	require.NoError(t, repo.DeleteTombstone(ctx, tombstone.ID))
	require.NoError(t, repo.DeleteTombstone(ctx, tombstone.ID))

	tombstones, err = repo.ListTombstones(ctx)
	require.NoError(t, err)
	assert.Empty(t, tombstones)
}
