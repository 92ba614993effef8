package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseItemType(t *testing.T) {
	tests := []struct {
		value string
		want  ItemType
		ok    bool
	}{
		{value: "password", want: ItemTypePassword, ok: true},
		{value: "note", want: ItemTypeNote, ok: true},
		{value: "token", ok: false},
		{value: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseItemType(tt.value)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVaultItemValid(t *testing.T) {
	item := VaultItem{
		EncryptedData: []byte{1},
		Nonce:         make([]byte, NonceSize),
	}
	assert.True(t, item.Valid())

	item.Nonce = make([]byte, 5)
	assert.False(t, item.Valid())

	item.Nonce = make([]byte, NonceSize)
	item.EncryptedData = nil
	assert.False(t, item.Valid())
}

func TestVaultItemEqualComparesInstants(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	username := "alice"
	a := VaultItem{
		ID:            uuid.New(),
		Type:          ItemTypePassword,
		Title:         "Email",
		Username:      &username,
		EncryptedData: []byte{1, 2},
		Nonce:         make([]byte, NonceSize),
		SyncVersion:   2,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	b := a
	otherUsername := "alice"
	b.Username = &otherUsername
	b.CreatedAt = now.In(time.FixedZone("plus1", 3600))
	assert.True(t, a.Equal(&b))

	b.SyncVersion = 3
	assert.False(t, a.Equal(&b))
}

func TestTombstoneEqual(t *testing.T) {
	now := time.Now().UTC()
	a := SyncTombstone{ID: uuid.New(), DeletedAt: now, SyncVersion: 2}
	b := a
	assert.True(t, a.Equal(&b))

	b.SyncVersion = 3
	assert.False(t, a.Equal(&b))
	assert.False(t, a.Equal(nil))
}
