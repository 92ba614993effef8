package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

// MemoryRepository is an in-memory Repository. It backs unit tests and is
// handy as a scratch replica when exercising the sync engine.
type MemoryRepository struct {
	mu         sync.RWMutex
	items      map[uuid.UUID]types.VaultItem
	tombstones map[uuid.UUID]types.SyncTombstone
	auth       *types.AuthRecord
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		items:      make(map[uuid.UUID]types.VaultItem),
		tombstones: make(map[uuid.UUID]types.SyncTombstone),
	}
}

func (m *MemoryRepository) Init(ctx context.Context) error {
	return nil
}

func (m *MemoryRepository) UpsertItem(ctx context.Context, item *types.VaultItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = cloneItem(item)
	return nil
}

func (m *MemoryRepository) ListItems(ctx context.Context) ([]types.VaultItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.VaultItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, cloneItem(&item))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) GetItem(ctx context.Context, id uuid.UUID) (types.VaultItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return types.VaultItem{}, errdefs.ErrNotFound
	}
	return cloneItem(&item), nil
}

func (m *MemoryRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errdefs.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryRepository) UpsertTombstone(ctx context.Context, tombstone *types.SyncTombstone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tombstones[tombstone.ID] = *tombstone
	return nil
}

func (m *MemoryRepository) ListTombstones(ctx context.Context) ([]types.SyncTombstone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.SyncTombstone, 0, len(m.tombstones))
	for _, tombstone := range m.tombstones {
		out = append(out, tombstone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeletedAt.After(out[j].DeletedAt)
	})
	return out, nil
}

func (m *MemoryRepository) DeleteTombstone(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tombstones, id)
	return nil
}

func (m *MemoryRepository) GetAuthRecord(ctx context.Context) (*types.AuthRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.auth == nil {
		return nil, nil
	}
	record := *m.auth
	return &record, nil
}

func (m *MemoryRepository) SetAuthRecord(ctx context.Context, auth *types.AuthRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := *auth
	m.auth = &record
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

func cloneItem(item *types.VaultItem) types.VaultItem {
	out := *item
	out.EncryptedData = append([]byte(nil), item.EncryptedData...)
	out.Nonce = append([]byte(nil), item.Nonce...)
	if item.Username != nil {
		username := *item.Username
		out.Username = &username
	}
	if item.URL != nil {
		url := *item.URL
		out.URL = &url
	}
	return out
}
