package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

// PostgresRepository persists vault data in PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// OpenPostgres connects to the database at databaseURL
// (postgres://... or postgresql://...).
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			salt TEXT NOT NULL,
			verifier TEXT NOT NULL,
			argon2_m_cost BIGINT NOT NULL,
			argon2_t_cost BIGINT NOT NULL,
			argon2_p_cost BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vault_items (
			id UUID PRIMARY KEY,
			item_type TEXT NOT NULL,
			title TEXT NOT NULL,
			username TEXT,
			url TEXT,
			encrypted_data BYTEA NOT NULL,
			nonce BYTEA NOT NULL,
			sync_version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vault_items_updated_at ON vault_items (updated_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sync_tombstones (
			id UUID PRIMARY KEY,
			deleted_at TIMESTAMPTZ NOT NULL,
			sync_version BIGINT NOT NULL DEFAULT 1
		)`,
	}
	for _, statement := range statements {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return errdefs.Storage(err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schema_meta (id, schema_version) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET schema_version = EXCLUDED.schema_version`,
		SchemaVersion,
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type postgresItemRow struct {
	ID            uuid.UUID `db:"id"`
	ItemType      string    `db:"item_type"`
	Title         string    `db:"title"`
	Username      *string   `db:"username"`
	URL           *string   `db:"url"`
	EncryptedData []byte    `db:"encrypted_data"`
	Nonce         []byte    `db:"nonce"`
	SyncVersion   int64     `db:"sync_version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (row *postgresItemRow) toItem() (types.VaultItem, error) {
	if len(row.Nonce) != types.NonceSize {
		return types.VaultItem{}, errdefs.Storage(errMalformedNonce)
	}
	itemType, ok := types.ParseItemType(row.ItemType)
	if !ok {
		return types.VaultItem{}, errdefs.Storage(errors.New("unknown item type"))
	}
	return types.VaultItem{
		ID:            row.ID,
		Type:          itemType,
		Title:         row.Title,
		Username:      row.Username,
		URL:           row.URL,
		EncryptedData: row.EncryptedData,
		Nonce:         row.Nonce,
		SyncVersion:   uint64(row.SyncVersion),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}, nil
}

func (r *PostgresRepository) UpsertItem(ctx context.Context, item *types.VaultItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vault_items (id, item_type, title, username, url, encrypted_data, nonce, sync_version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   item_type=EXCLUDED.item_type,
		   title=EXCLUDED.title,
		   username=EXCLUDED.username,
		   url=EXCLUDED.url,
		   encrypted_data=EXCLUDED.encrypted_data,
		   nonce=EXCLUDED.nonce,
		   sync_version=EXCLUDED.sync_version,
		   created_at=EXCLUDED.created_at,
		   updated_at=EXCLUDED.updated_at`,
		item.ID,
		string(item.Type),
		item.Title,
		item.Username,
		item.URL,
		item.EncryptedData,
		item.Nonce,
		int64(item.SyncVersion),
		item.CreatedAt.UTC(),
		item.UpdatedAt.UTC(),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *PostgresRepository) ListItems(ctx context.Context) ([]types.VaultItem, error) {
	var rows []postgresItemRow
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

func (r *PostgresRepository) GetItem(ctx context.Context, id uuid.UUID) (types.VaultItem, error) {
	var row postgresItemRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, item_type, title, username, url, encrypted_data, nonce, sync_version, created_at, updated_at
		 FROM vault_items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return types.VaultItem{}, errdefs.ErrNotFound
	}
	if err != nil {
		return types.VaultItem{}, errdefs.Storage(err)
	}
	return row.toItem()
}

func (r *PostgresRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vault_items WHERE id = $1`, id)
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

func (r *PostgresRepository) UpsertTombstone(ctx context.Context, tombstone *types.SyncTombstone) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_tombstones (id, deleted_at, sync_version) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		   deleted_at=EXCLUDED.deleted_at,
		   sync_version=EXCLUDED.sync_version`,
		tombstone.ID, tombstone.DeletedAt.UTC(), int64(tombstone.SyncVersion),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

type postgresTombstoneRow struct {
	ID          uuid.UUID `db:"id"`
	DeletedAt   time.Time `db:"deleted_at"`
	SyncVersion int64     `db:"sync_version"`
}

func (r *PostgresRepository) ListTombstones(ctx context.Context) ([]types.SyncTombstone, error) {
	var rows []postgresTombstoneRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, deleted_at, sync_version FROM sync_tombstones ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, errdefs.Storage(err)
	}
	tombstones := make([]types.SyncTombstone, 0, len(rows))
	for _, row := range rows {
		tombstones = append(tombstones, types.SyncTombstone{
			ID:          row.ID,
			DeletedAt:   row.DeletedAt.UTC(),
			SyncVersion: uint64(row.SyncVersion),
		})
	}
	return tombstones, nil
}

func (r *PostgresRepository) DeleteTombstone(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sync_tombstones WHERE id = $1`, id); err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *PostgresRepository) GetAuthRecord(ctx context.Context) (*types.AuthRecord, error) {
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

func (r *PostgresRepository) SetAuthRecord(ctx context.Context, auth *types.AuthRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth (id, salt, verifier, argon2_m_cost, argon2_t_cost, argon2_p_cost)
		 VALUES (1, $1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   salt=EXCLUDED.salt,
		   verifier=EXCLUDED.verifier,
		   argon2_m_cost=EXCLUDED.argon2_m_cost,
		   argon2_t_cost=EXCLUDED.argon2_t_cost,
		   argon2_p_cost=EXCLUDED.argon2_p_cost`,
		auth.Salt, auth.Verifier,
		int64(auth.Argon2MCost), int64(auth.Argon2TCost), int64(auth.Argon2PCost),
	)
	if err != nil {
		return errdefs.Storage(err)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
