package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

// sqlTimeLayout is RFC 3339 with fixed millisecond precision; all SQL text
// timestamps are stored in UTC.
const sqlTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// SQLiteRepository persists vault data in a local SQLite database via the
// pure-Go modernc driver.
type SQLiteRepository struct {
	db *sqlx.DB
}

// OpenSQLite opens (and creates if missing) the database at databaseURL.
// Accepted forms: "sqlite://path.db", "sqlite::memory:", or a bare path.
func OpenSQLite(ctx context.Context, databaseURL string) (*SQLiteRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", normalizeSQLiteDSN(databaseURL))
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	// The driver serializes writes; a single connection avoids SQLITE_BUSY
	// between the item and tombstone statements of one logical operation.
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{db: db}, nil
}

func normalizeSQLiteDSN(databaseURL string) string {
	switch {
	case databaseURL == "sqlite::memory:" || databaseURL == ":memory:":
		return ":memory:"
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return databaseURL
	}
}

func (r *SQLiteRepository) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			salt TEXT NOT NULL,
			verifier TEXT NOT NULL,
			argon2_m_cost INTEGER NOT NULL,
			argon2_t_cost INTEGER NOT NULL,
			argon2_p_cost INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vault_items (
			id TEXT PRIMARY KEY,
			item_type TEXT NOT NULL,
			title TEXT NOT NULL,
			username TEXT,
			url TEXT,
			encrypted_data BLOB NOT NULL,
			nonce BLOB NOT NULL,
			sync_version INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vault_items_updated_at ON vault_items (updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sync_tombstones (
			id TEXT PRIMARY KEY,
			deleted_at TEXT NOT NULL,
			sync_version INTEGER NOT NULL DEFAULT 1
		)`,
	}
	for _, statement := range statements {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return errdefs.Storage(err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schema_meta (id, schema_version) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version`,
		SchemaVersion,
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type sqliteItemRow struct {
	ID            string  `db:"id"`
	ItemType      string  `db:"item_type"`
	Title         string  `db:"title"`
	Username      *string `db:"username"`
	URL           *string `db:"url"`
	EncryptedData []byte  `db:"encrypted_data"`
	Nonce         []byte  `db:"nonce"`
	SyncVersion   int64   `db:"sync_version"`
	CreatedAt     string  `db:"created_at"`
	UpdatedAt     string  `db:"updated_at"`
}

func (row *sqliteItemRow) toItem() (types.VaultItem, error) {
	if len(row.Nonce) != types.NonceSize {
		return types.VaultItem{}, errdefs.Storage(errMalformedNonce)
	}
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	itemType, ok := types.ParseItemType(row.ItemType)
	if !ok {
		return types.VaultItem{}, errdefs.Storage(errors.New("unknown item type"))
	}
	createdAt, err := time.Parse(sqlTimeLayout, row.CreatedAt)
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	updatedAt, err := time.Parse(sqlTimeLayout, row.UpdatedAt)
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	return types.VaultItem{
		ID:            id,
		Type:          itemType,
		Title:         row.Title,
		Username:      row.Username,
		URL:           row.URL,
		EncryptedData: row.EncryptedData,
		Nonce:         row.Nonce,
		SyncVersion:   uint64(row.SyncVersion),
		CreatedAt:     createdAt.UTC(),
		UpdatedAt:     updatedAt.UTC(),
	}, nil
}

func (r *SQLiteRepository) UpsertItem(ctx context.Context, item *types.VaultItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vault_items (id, item_type, title, username, url, encrypted_data, nonce, sync_version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   item_type=excluded.item_type,
		   title=excluded.title,
		   username=excluded.username,
		   url=excluded.url,
		   encrypted_data=excluded.encrypted_data,
		   nonce=excluded.nonce,
		   sync_version=excluded.sync_version,
		   created_at=excluded.created_at,
		   updated_at=excluded.updated_at`,
		item.ID.String(),
		string(item.Type),
		item.Title,
		item.Username,
		item.URL,
		item.EncryptedData,
		item.Nonce,
		int64(item.SyncVersion),
		item.CreatedAt.UTC().Format(sqlTimeLayout),
		item.UpdatedAt.UTC().Format(sqlTimeLayout),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *SQLiteRepository) ListItems(ctx context.Context) ([]types.VaultItem, error) {
	var rows []sqliteItemRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, item_type, title, username, url, encrypted_data, nonce, sync_version, created_at, updated_at
		 FROM vault_items ORDER BY updated_at DESC`)
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	items := make([]types.VaultItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *SQLiteRepository) GetItem(ctx context.Context, id uuid.UUID) (types.VaultItem, error) {
	var row sqliteItemRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, item_type, title, username, url, encrypted_data, nonce, sync_version, created_at, updated_at
		 FROM vault_items WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return types.VaultItem{}, errdefs.ErrNotFound
	}
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	return row.toItem()
}

func (r *SQLiteRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vault_items WHERE id = ?`, id.String())
	if err != nil {
		return errdefs.Storage(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errdefs.Storage(err)
	}
	if affected == 0 {
		return errdefs.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UpsertTombstone(ctx context.Context, tombstone *types.SyncTombstone) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_tombstones (id, deleted_at, sync_version) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   deleted_at=excluded.deleted_at,
		   sync_version=excluded.sync_version`,
		tombstone.ID.String(),
		tombstone.DeletedAt.UTC().Format(sqlTimeLayout),
		int64(tombstone.SyncVersion),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type sqliteTombstoneRow struct {
	ID          string `db:"id"`
	DeletedAt   string `db:"deleted_at"`
	SyncVersion int64  `db:"sync_version"`
}

func (r *SQLiteRepository) ListTombstones(ctx context.Context) ([]types.SyncTombstone, error) {
	var rows []sqliteTombstoneRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, deleted_at, sync_version FROM sync_tombstones ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	tombstones := make([]types.SyncTombstone, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, errdefs.Storage(err)
		}
		deletedAt, err := time.Parse(sqlTimeLayout, row.DeletedAt)
		if err != nil {
			return nil, errdefs.Storage(err)
		}
		tombstones = append(tombstones, types.SyncTombstone{
			ID:          id,
			DeletedAt:   deletedAt.UTC(),
			SyncVersion: uint64(row.SyncVersion),
		})
	}
	return tombstones, nil
}

func (r *SQLiteRepository) DeleteTombstone(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_tombstones WHERE id = ?`, id.String()); err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type authRow struct {
	Salt        string `db:"salt"`
	Verifier    string `db:"verifier"`
	Argon2MCost int64  `db:"argon2_m_cost"`
	Argon2TCost int64  `db:"argon2_t_cost"`
	Argon2PCost int64  `db:"argon2_p_cost"`
}

func (r *SQLiteRepository) GetAuthRecord(ctx context.Context) (*types.AuthRecord, error) {
	var row authRow
	err := r.db.GetContext(ctx, &row,
		`SELECT salt, verifier, argon2_m_cost, argon2_t_cost, argon2_p_cost FROM auth WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	return &types.AuthRecord{
		Salt:        row.Salt,
		Verifier:    row.Verifier,
		Argon2MCost: uint32(row.Argon2MCost),
		Argon2TCost: uint32(row.Argon2TCost),
		Argon2PCost: uint32(row.Argon2PCost),
	}, nil
}

func (r *SQLiteRepository) SetAuthRecord(ctx context.Context, auth *types.AuthRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth (id, salt, verifier, argon2_m_cost, argon2_t_cost, argon2_p_cost)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   salt=excluded.salt,
		   verifier=excluded.verifier,
		   argon2_m_cost=excluded.argon2_m_cost,
		   argon2_t_cost=excluded.argon2_t_cost,
		   argon2_p_cost=excluded.argon2_p_cost`,
		auth.Salt, auth.Verifier,
		int64(auth.Argon2MCost), int64(auth.Argon2TCost), int64(auth.Argon2PCost),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
