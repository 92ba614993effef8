package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

// Backend identifiers accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// SchemaVersion is written into every backend's schema_meta record on Init.
const SchemaVersion int64 = 1

var errMalformedNonce = errors.New("malformed nonce length")

// Repository is the persistence surface consumed by the vault service and
// the sync engine. Implementations must be safe for concurrent use; each
// individual call is atomic within its backend.
type Repository interface {
	// Init creates schema and indices if absent and records SchemaVersion.
	Init(ctx context.Context) error

	// Items. ListItems orders by updated_at descending. GetItem and
	// DeleteItem fail with errdefs.ErrNotFound when the id is absent.
	UpsertItem(ctx context.Context, item *types.VaultItem) error
	ListItems(ctx context.Context) ([]types.VaultItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (types.VaultItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error

	// Tombstones, symmetric to items. DeleteTombstone on an absent id is not
	// an error.
	UpsertTombstone(ctx context.Context, tombstone *types.SyncTombstone) error
	ListTombstones(ctx context.Context) ([]types.SyncTombstone, error)
	DeleteTombstone(ctx context.Context, id uuid.UUID) error

	// Single-row authentication material. GetAuthRecord returns nil when the
	// vault has not been initialized; SetAuthRecord overwrites.
	GetAuthRecord(ctx context.Context) (*types.AuthRecord, error)
	SetAuthRecord(ctx context.Context, auth *types.AuthRecord) error

	// Close releases backend resources.
	Close() error
}

// Open connects the backend named by identifier. Unknown identifiers fail
// with errdefs.ErrUnsupportedBackend.
func Open(ctx context.Context, backend, databaseURL string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite:
		return OpenSQLite(ctx, databaseURL)
	case BackendPostgres:
		return OpenPostgres(ctx, databaseURL)
	case BackendMongo:
		return OpenMongo(ctx, databaseURL)
	default:
		return nil, errdefs.Unsupported(backend)
	}
}
