package types

import (
	"bytes"
	"time"

	"github.com/google/uuid"
)

// NonceSize is the AEAD nonce length in bytes. Every stored nonce must be
// exactly this long; the database backends reject anything else on read.
const NonceSize = 12

// ItemType discriminates what kind of secret a vault item holds.
type ItemType string

const (
	ItemTypePassword ItemType = "password"
	ItemTypeNote     ItemType = "note"
)

// ParseItemType converts a stored string into an ItemType.
func ParseItemType(value string) (ItemType, bool) {
	switch ItemType(value) {
	case ItemTypePassword, ItemTypeNote:
		return ItemType(value), true
	}
	return "", false
}

// VaultItem is a single unit of stored information. Title, username, and URL
// are plaintext metadata; everything secret lives in EncryptedData, sealed
// under the session key.
type VaultItem struct {
	ID            uuid.UUID `json:"id"`
	Type          ItemType  `json:"type"`
	Title         string    `json:"title"`
	Username      *string   `json:"username,omitempty"`
	URL           *string   `json:"url,omitempty"`
	EncryptedData []byte    `json:"encrypted_data"`
	Nonce         []byte    `json:"nonce"`
	SyncVersion   uint64    `json:"sync_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Valid reports whether the item satisfies the at-rest invariants:
// a non-empty ciphertext and a 12-byte nonce.
func (v *VaultItem) Valid() bool {
	return len(v.EncryptedData) > 0 && len(v.Nonce) == NonceSize
}

// Equal reports field-by-field equivalence, with timestamps compared by
// instant rather than representation.
func (v *VaultItem) Equal(other *VaultItem) bool {
	if v == nil || other == nil {
		return v == other
	}
	return v.ID == other.ID &&
		v.Type == other.Type &&
		v.Title == other.Title &&
		equalOptional(v.Username, other.Username) &&
		equalOptional(v.URL, other.URL) &&
		bytes.Equal(v.EncryptedData, other.EncryptedData) &&
		bytes.Equal(v.Nonce, other.Nonce) &&
		v.SyncVersion == other.SyncVersion &&
		v.CreatedAt.Equal(other.CreatedAt) &&
		v.UpdatedAt.Equal(other.UpdatedAt)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SyncTombstone records that an item id was deleted, and at which
// sync_version, so replicas can reconcile deletions against live copies.
type SyncTombstone struct {
	ID          uuid.UUID `json:"id"`
	DeletedAt   time.Time `json:"deleted_at"`
	SyncVersion uint64    `json:"sync_version"`
}

// Equal reports tombstone equivalence.
func (t *SyncTombstone) Equal(other *SyncTombstone) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID &&
		t.SyncVersion == other.SyncVersion &&
		t.DeletedAt.Equal(other.DeletedAt)
}

// AuthRecord is the single-row authentication material for a vault. The
// Argon2 parameters are persisted so future releases can raise the defaults
// without invalidating existing vaults.
type AuthRecord struct {
	Salt        string `json:"salt"`
	Verifier    string `json:"verifier"`
	Argon2MCost uint32 `json:"argon2_m_cost"`
	Argon2TCost uint32 `json:"argon2_t_cost"`
	Argon2PCost uint32 `json:"argon2_p_cost"`
}

// AuditFieldKey is the reserved custom-fields key holding the bounded audit
// trail of an item.
const AuditFieldKey = "_audit"

// MaxAuditEvents bounds the audit trail; older events drop first.
const MaxAuditEvents = 20

// EncryptedPayload is the decrypted body of a vault item.
type EncryptedPayload struct {
	Password     *string        `json:"password"`
	Notes        *string        `json:"notes"`
	CustomFields map[string]any `json:"custom_fields"`
}

// PayloadForPassword builds the payload of a password item.
func PayloadForPassword(password string, notes *string) EncryptedPayload {
	return EncryptedPayload{
		Password:     &password,
		Notes:        notes,
		CustomFields: map[string]any{},
	}
}

// PayloadForNote builds the payload of a note item.
func PayloadForNote(notes string) EncryptedPayload {
	return EncryptedPayload{
		Notes:        &notes,
		CustomFields: map[string]any{},
	}
}
