package vault

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/storage"
	"github.com/chacrab/chacrab/pkg/types"
)

// Service layers the vault business operations over a storage.Repository.
type Service struct {
	repo storage.Repository
}

// New returns a Service over the given repository.
func New(repo storage.Repository) *Service {
	return &Service{repo: repo}
}

// Repository exposes the underlying repository for callers that need direct
// access (sync, backup import).
func (s *Service) Repository() storage.Repository {
	return s.repo
}

// AddPasswordParams carries the inputs of AddPassword.
type AddPasswordParams struct {
	Title    string
	Username *string
	URL      *string
	Password string
	Notes    *string
}

// AddPassword encrypts a new credential payload and persists it as a fresh
// item at sync_version 1.
func (s *Service) AddPassword(ctx context.Context, params AddPasswordParams, key []byte) (types.VaultItem, error) {
	payload := types.PayloadForPassword(params.Password, params.Notes)
	return s.addItem(ctx, types.ItemTypePassword, params.Title, params.Username, params.URL, payload, key)
}

// AddNote encrypts a new secure note and persists it at sync_version 1.
func (s *Service) AddNote(ctx context.Context, title, notes string, key []byte) (types.VaultItem, error) {
	payload := types.PayloadForNote(notes)
	return s.addItem(ctx, types.ItemTypeNote, title, nil, nil, payload, key)
}

func (s *Service) addItem(ctx context.Context, itemType types.ItemType, title string, username, url *string, payload types.EncryptedPayload, key []byte) (types.VaultItem, error) {
	box, err := sealPayload(&payload, key)
	if err != nil {
		return types.VaultItem{}, err
	}

	now := nowUTC()
	item := types.VaultItem{
		ID:            uuid.New(),
		Type:          itemType,
		Title:         title,
		Username:      username,
		URL:           url,
		EncryptedData: box.Ciphertext,
		Nonce:         box.Nonce,
		SyncVersion:   1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.UpsertItem(ctx, &item); err != nil {
		return types.VaultItem{}, err
	}
	return item, nil
}

// List returns all items, most recently updated first.
func (s *Service) List(ctx context.Context) ([]types.VaultItem, error) {
	return s.repo.ListItems(ctx)
}

// ShowDecrypted fetches an item and returns it with its decoded payload.
func (s *Service) ShowDecrypted(ctx context.Context, id uuid.UUID, key []byte) (types.VaultItem, map[string]any, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return types.VaultItem{}, nil, err
	}

	plaintext, err := crypto.Decrypt(key, item.Nonce, item.EncryptedData)
	if err != nil {
		return types.VaultItem{}, nil, err
	}
	defer crypto.Wipe(plaintext)

	var payload map[string]any
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return types.VaultItem{}, nil, errdefs.ErrSerialization
	}
	return item, payload, nil
}

// UpdatePasswordParams carries the optional new values of an UpdatePassword.
// Nil fields keep the stored value. Notes supports clearing: set NotesSet
// with a nil Notes to remove stored notes.
type UpdatePasswordParams struct {
	Title    *string
	Username *string
	URL      *string
	Password *string
	Notes    *string
	NotesSet bool
}

// UpdatePassword applies partial updates to a password item, appends an
// audit event, re-encrypts with a fresh nonce, and bumps sync_version.
func (s *Service) UpdatePassword(ctx context.Context, id uuid.UUID, params UpdatePasswordParams, key []byte) (types.VaultItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return types.VaultItem{}, err
	}
	if item.Type != types.ItemTypePassword {
		return types.VaultItem{}, errdefs.Config("item type mismatch for update")
	}

	payload, err := s.decryptPayload(&item, key)
	if err != nil {
		return types.VaultItem{}, err
	}

	if params.Title != nil {
		item.Title = *params.Title
	}
	if params.Username != nil {
		item.Username = params.Username
	}
	if params.URL != nil {
		item.URL = params.URL
	}
	if params.Password != nil {
		payload.Password = params.Password
	}
	if params.NotesSet {
		payload.Notes = params.Notes
	}

	appendAuditEvent(&payload, "update_password")
	return s.persistUpdate(ctx, item, payload, key)
}

// UpdateNoteParams carries the optional new values of an UpdateNote.
type UpdateNoteParams struct {
	Title *string
	Notes *string
}

// UpdateNote applies partial updates to a note item.
func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, params UpdateNoteParams, key []byte) (types.VaultItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return types.VaultItem{}, err
	}
	if item.Type != types.ItemTypeNote {
		return types.VaultItem{}, errdefs.Config("item type mismatch for update")
	}

	payload, err := s.decryptPayload(&item, key)
	if err != nil {
		return types.VaultItem{}, err
	}

	if params.Title != nil {
		item.Title = *params.Title
	}
	if params.Notes != nil {
		payload.Notes = params.Notes
	}

	appendAuditEvent(&payload, "update_note")
	return s.persistUpdate(ctx, item, payload, key)
}

// Delete removes an item and writes its deletion receipt. The tombstone
// version continues the item's version sequence so replicas reconcile the
// deletion; deleting an id with no prior trace still records a tombstone.
// The tombstone is written before the item is removed, so an interrupted
// delete leaves both records, which the sync engine folds to the tombstone.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	nextVersion := uint64(1)
	itemExisted := false

	if item, err := s.repo.GetItem(ctx, id); err == nil {
		nextVersion = saturatingInc(item.SyncVersion)
		itemExisted = true
	} else {
		tombstones, listErr := s.repo.ListTombstones(ctx)
		if listErr != nil {
			return listErr
		}
		for _, tombstone := range tombstones {
			if tombstone.ID == id {
				nextVersion = saturatingInc(tombstone.SyncVersion)
				break
			}
		}
	}

	if err := s.repo.UpsertTombstone(ctx, &types.SyncTombstone{
		ID:          id,
		DeletedAt:   nowUTC(),
		SyncVersion: nextVersion,
	}); err != nil {
		return err
	}
	if itemExisted {
		return s.repo.DeleteItem(ctx, id)
	}
	return nil
}

func (s *Service) decryptPayload(item *types.VaultItem, key []byte) (types.EncryptedPayload, error) {
	plaintext, err := crypto.Decrypt(key, item.Nonce, item.EncryptedData)
	if err != nil {
		return types.EncryptedPayload{}, err
	}
	defer crypto.Wipe(plaintext)

	var payload types.EncryptedPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return types.EncryptedPayload{}, errdefs.ErrSerialization
	}
	if payload.CustomFields == nil {
		payload.CustomFields = map[string]any{}
	}
	return payload, nil
}

func (s *Service) persistUpdate(ctx context.Context, item types.VaultItem, payload types.EncryptedPayload, key []byte) (types.VaultItem, error) {
	box, err := sealPayload(&payload, key)
	if err != nil {
		return types.VaultItem{}, err
	}

	item.EncryptedData = box.Ciphertext
	item.Nonce = box.Nonce
	item.SyncVersion = saturatingInc(item.SyncVersion)
	item.UpdatedAt = nowUTC()

	if err := s.repo.UpsertItem(ctx, &item); err != nil {
		return types.VaultItem{}, err
	}
	return item, nil
}

func sealPayload(payload *types.EncryptedPayload, key []byte) (crypto.SealedBox, error) {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return crypto.SealedBox{}, errdefs.ErrSerialization
	}
	box, err := crypto.Encrypt(key, serialized)
	crypto.Wipe(serialized)
	if err != nil {
		return crypto.SealedBox{}, err
	}
	return box, nil
}

// appendAuditEvent records {action, at} under the reserved _audit custom
// field, keeping at most types.MaxAuditEvents entries (oldest drop first).
func appendAuditEvent(payload *types.EncryptedPayload, action string) {
	event := map[string]any{
		"action": action,
		"at":     nowUTC().Format(time.RFC3339),
	}

	events, _ := payload.CustomFields[types.AuditFieldKey].([]any)
	events = append(events, event)
	if overflow := len(events) - types.MaxAuditEvents; overflow > 0 {
		events = events[overflow:]
	}
	payload.CustomFields[types.AuditFieldKey] = events
}

func saturatingInc(version uint64) uint64 {
	if version == math.MaxUint64 {
		return version
	}
	return version + 1
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
