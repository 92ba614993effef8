package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
)

func TestMemoryStoreKeyRoundtrip(t *testing.T) {
	store := NewMemory()
	key := make([]byte, crypto.KeySize)
	for i := range key {
		key[i] = byte(i)
	}

	require.NoError(t, store.StoreKey(key))
	loaded, err := store.LoadKey()
	require.NoError(t, err)
	assert.Equal(t, key, loaded)

	require.NoError(t, store.ClearKey())
	_, err = store.LoadKey()
	assert.ErrorIs(t, err, errdefs.ErrNoActiveSession)
}

func TestLoadKeyWithoutSession(t *testing.T) {
	store := NewMemory()
	_, err := store.LoadKey()
	assert.ErrorIs(t, err, errdefs.ErrNoActiveSession)
}

func TestEnforceTimeoutBoundary(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	timeout := 100 * time.Second

	tests := []struct {
		name    string
		age     time.Duration
		expired bool
	}{
		{name: "well within timeout", age: 10 * time.Second, expired: false},
		{name: "exactly at timeout", age: 100 * time.Second, expired: false},
		{name: "one past timeout", age: 101 * time.Second, expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemory()
			require.NoError(t, store.StoreKey(make([]byte, crypto.KeySize)))
			require.NoError(t, store.TouchActivity(base))

			err := EnforceTimeout(store, timeout, base.Add(tt.age))
			if tt.expired {
				assert.ErrorIs(t, err, errdefs.ErrSessionExpired)
				_, loadErr := store.LoadKey()
				assert.ErrorIs(t, loadErr, errdefs.ErrNoActiveSession)
				_, ok, metaErr := store.LastActivity()
				require.NoError(t, metaErr)
				assert.False(t, ok)
			} else {
				require.NoError(t, err)
				last, ok, metaErr := store.LastActivity()
				require.NoError(t, metaErr)
				require.True(t, ok)
				assert.Equal(t, base.Add(tt.age), last)
			}
		})
	}
}

func TestEnforceTimeoutWithoutActivityRecordStartsClock(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.StoreKey(make([]byte, crypto.KeySize)))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, EnforceTimeout(store, time.Minute, now))

	last, ok, err := store.LastActivity()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now, last)
}

func TestEnforceTimeoutRequiresSessionKey(t *testing.T) {
	store := NewMemory()
	err := EnforceTimeout(store, time.Minute, time.Now())
	assert.ErrorIs(t, err, errdefs.ErrNoActiveSession)
}

// corruptActivityStore simulates a last-activity record that exists in the
// backing store but no longer parses.
type corruptActivityStore struct {
	*MemoryStore
}

func (s *corruptActivityStore) LastActivity() (time.Time, bool, error) {
	return time.Time{}, false, errCorruptActivity
}

func TestEnforceTimeoutCorruptActivityRecordExpiresSession(t *testing.T) {
	store := &corruptActivityStore{MemoryStore: NewMemory()}
	require.NoError(t, store.StoreKey(make([]byte, crypto.KeySize)))

	err := EnforceTimeout(store, time.Minute, time.Now().UTC())
	assert.ErrorIs(t, err, errdefs.ErrSessionExpired)

	_, loadErr := store.LoadKey()
	assert.ErrorIs(t, loadErr, errdefs.ErrNoActiveSession)
	_, ok, metaErr := store.MemoryStore.LastActivity()
	require.NoError(t, metaErr)
	assert.False(t, ok)
}
