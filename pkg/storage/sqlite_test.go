package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

func sqliteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chacrab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func sqliteItem(title string, updatedAt time.Time) types.VaultItem {
	username := "alice"
	return types.VaultItem{
		ID:            uuid.New(),
		Type:          types.ItemTypePassword,
		Title:         title,
		Username:      &username,
		EncryptedData: []byte{9, 8, 7, 6},
		Nonce:         []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		SyncVersion:   1,
		CreatedAt:     updatedAt,
		UpdatedAt:     updatedAt,
	}
}

func TestSQLiteItemRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := sqliteRepo(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 500*int(time.Millisecond), time.UTC)

	item := sqliteItem("Email", now)
	require.NoError(t, repo.UpsertItem(ctx, &item))

	stored, err := repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, stored.Title)
	assert.Equal(t, item.EncryptedData, stored.EncryptedData)
	assert.Equal(t, item.Nonce, stored.Nonce)
	assert.Equal(t, item.SyncVersion, stored.SyncVersion)
	assert.True(t, stored.CreatedAt.Equal(now))
	assert.True(t, stored.UpdatedAt.Equal(now))
	require.NotNil(t, stored.Username)
	assert.Equal(t, "alice", *stored.Username)
	assert.Nil(t, stored.URL)
}

func TestSQLiteListOrdersByUpdatedAtDescending(t *testing.T) {
	ctx := context.Background()
	repo := sqliteRepo(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := sqliteItem("first", base)
	second := sqliteItem("second", base.Add(time.Minute))
	require.NoError(t, repo.UpsertItem(ctx, &first))
	require.NoError(t, repo.UpsertItem(ctx, &second))

	items, err := repo.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Title)
}

func TestSQLiteGetMissingItem(t *testing.T) {
	repo := sqliteRepo(t)
	_, err := repo.GetItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestSQLiteDeleteMissingItem(t *testing.T) {
	repo := sqliteRepo(t)
	err := repo.DeleteItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
}

func TestSQLiteRejectsMalformedNonceOnRead(t *testing.T) {
	ctx := context.Background()
	repo := sqliteRepo(t)

	badID := uuid.New()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO vault_items (id, item_type, title, username, url, encrypted_data, nonce, sync_version, created_at, updated_at)
		 VALUES (?, ?, ?, NULL, NULL, ?, ?, 1, ?, ?)`,
		badID.String(), "password", "Bad Nonce",
		[]byte{1, 2, 3}, []byte{7, 8, 9, 10, 11},
		time.Now().UTC().Format(sqlTimeLayout), time.Now().UTC().Format(sqlTimeLayout),
	)
	require.NoError(t, err)

	_, err = repo.GetItem(ctx, badID)
	assert.ErrorIs(t, err, errdefs.ErrStorage)

	_, err = repo.ListItems(ctx)
	assert.ErrorIs(t, err, errdefs.ErrStorage)
}

func TestSQLiteAuthRecordRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := sqliteRepo(t)

	record, err := repo.GetAuthRecord(ctx)
	require.NoError(t, err)
	assert.Nil(t, record)

	auth := &types.AuthRecord{
		Salt:        "c2FsdHNhbHRzYWx0c2FsdA",
		Verifier:    "$argon2id$v=19$m=65536,t=3,p=1$abc$def",
		Argon2MCost: 65536,
		Argon2TCost: 3,
		Argon2PCost: 1,
	}
	require.NoError(t, repo.SetAuthRecord(ctx, auth))

	stored, err := repo.GetAuthRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, auth, stored)

	auth.Argon2TCost = 4
	require.NoError(t, repo.SetAuthRecord(ctx, auth))
	stored, err = repo.GetAuthRecord(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), stored.Argon2TCost)
}

func TestSQLiteTombstoneRoundtrip(t *testing.T) {
	ctx := context.Background()
	repo := sqliteRepo(t)

	tombstone := types.SyncTombstone{
		ID:          uuid.New(),
		DeletedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SyncVersion: 5,
	}
	require.NoError(t, repo.UpsertTombstone(ctx, &tombstone))

	tombstones, err := repo.ListTombstones(ctx)
	require.NoError(t, err)
	require.Len(t, tombstones, 1)
	assert.Equal(t, tombstone.ID, tombstones[0].ID)
	assert.Equal(t, uint64(5), tombstones[0].SyncVersion)
	assert.True(t, tombstones[0].DeletedAt.Equal(tombstone.DeletedAt))

	require.NoError(t, repo.DeleteTombstone(ctx, tombstone.ID))
	tombstones, err = repo.ListTombstones(ctx)
	require.NoError(t, err)
	assert.Empty(t, tombstones)
}

func TestSQLiteSchemaMetaWritten(t *testing.T) {
	ctx := context.Background()
	repo := sqliteRepo(t)

	var version int64
	require.NoError(t, repo.db.GetContext(ctx, &version,
		`SELECT schema_version FROM schema_meta WHERE id = 1`))
	assert.Equal(t, SchemaVersion, version)
}
