package errdefs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the vault core. Callers classify failures with
// errors.Is; user-facing text lives in the presentation layer only.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionExpired     = errors.New("session expired")
	ErrKeyringLocked      = errors.New("keyring locked")
	ErrKeyringUnavailable = errors.New("keyring unavailable")
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrConfig             = errors.New("configuration error")

	// ErrCrypto covers every AEAD and verifier failure. It never carries
	// ciphertext, plaintext, or the identity of the failing sub-step.
	ErrCrypto = errors.New("crypto operation failed")

	ErrSerialization = errors.New("serialization failed")

	// ErrStorage wraps repository failures. Raw driver messages stay out of
	// user-visible text; wrap them here so logs can still unwrap the cause.
	ErrStorage = errors.New("storage operation failed")
)

// Config returns a configuration error carrying a free-text reason.
func Config(reason string) error {
	return fmt.Errorf("%w: %s", ErrConfig, reason)
}

// Unsupported reports an unknown backend identifier.
func Unsupported(backend string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedBackend, backend)
}

// Storage wraps a driver error into ErrStorage. A nil cause returns the bare
// sentinel.
func Storage(cause error) error {
	if cause == nil {
		return ErrStorage
	}
	return fmt.Errorf("%w: %w", ErrStorage, cause)
}
