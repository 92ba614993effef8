package session

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	keyring "github.com/zalando/go-keyring"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
)

const (
	keyringService  = "chacrab"
	keyringKeyUser  = "session-master-key"
	keyringMetaUser = "session-last-activity"
)

// errCorruptActivity marks a last-activity record that exists but does not
// parse. EnforceTimeout treats it as an expired session, unlike an absent
// record which just restarts the clock.
var errCorruptActivity = errors.New("corrupt session activity record")

// Store custodies the derived session key and the last-activity timestamp.
// The production implementation sits on the OS keyring; tests inject the
// in-memory implementation.
type Store interface {
	// StoreKey saves the 32-byte session key.
	StoreKey(key []byte) error
	// LoadKey returns a copy of the session key. The caller must wipe it.
	// Fails with errdefs.ErrNoActiveSession when no key is stored.
	LoadKey() ([]byte, error)
	// ClearKey removes the session key. Idempotent.
	ClearKey() error

	// TouchActivity records now as the last session activity.
	TouchActivity(now time.Time) error
	// LastActivity returns the recorded activity time. ok=false with a nil
	// error means no record exists; a record that exists but cannot be
	// parsed is reported as an error.
	LastActivity() (last time.Time, ok bool, err error)
	// ClearActivity removes the activity record. Idempotent.
	ClearActivity() error
}

// KeyringStore is the OS-keyring-backed Store. Key bytes round-trip through
// padded standard base64 because keyring entries are string-typed.
type KeyringStore struct{}

// NewKeyring returns the platform keyring store.
func NewKeyring() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) StoreKey(key []byte) error {
	if err := keyring.Set(keyringService, keyringKeyUser, base64.StdEncoding.EncodeToString(key)); err != nil {
		return mapKeyringError(err)
	}
	return nil
}

func (s *KeyringStore) LoadKey() ([]byte, error) {
	encoded, err := keyring.Get(keyringService, keyringKeyUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, errdefs.ErrNoActiveSession
		}
		return nil, mapKeyringError(err)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) != crypto.KeySize {
		crypto.Wipe(decoded)
		// A corrupt entry is indistinguishable from no session.
		return nil, errdefs.ErrNoActiveSession
	}
	return decoded, nil
}

func (s *KeyringStore) ClearKey() error {
	err := keyring.Delete(keyringService, keyringKeyUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return mapKeyringError(err)
	}
	return nil
}

func (s *KeyringStore) TouchActivity(now time.Time) error {
	err := keyring.Set(keyringService, keyringMetaUser, strconv.FormatInt(now.Unix(), 10))
	if err != nil {
		return mapKeyringError(err)
	}
	return nil
}

func (s *KeyringStore) LastActivity() (time.Time, bool, error) {
	stored, err := keyring.Get(keyringService, keyringMetaUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, mapKeyringError(err)
	}
	unix, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return time.Time{}, false, errCorruptActivity
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

func (s *KeyringStore) ClearActivity() error {
	err := keyring.Delete(keyringService, keyringMetaUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return mapKeyringError(err)
	}
	return nil
}

func mapKeyringError(err error) error {
	switch {
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return errdefs.ErrKeyringUnavailable
	case errors.Is(err, keyring.ErrSetDataTooBig):
		return errdefs.ErrKeyringUnavailable
	default:
		// D-Bus "prompt dismissed" style failures mean the collection is
		// reachable but locked; anything else is a platform failure. The
		// distinction is not machine-readable across platforms, so classify
		// by message.
		if containsLocked(err.Error()) {
			return errdefs.ErrKeyringLocked
		}
		return errdefs.ErrKeyringUnavailable
	}
}

func containsLocked(message string) bool {
	lowered := strings.ToLower(message)
	for _, marker := range []string{"locked", "dismissed", "denied"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
