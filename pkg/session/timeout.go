package session

import (
	"errors"
	"time"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

// EnforceTimeout is called before every operation that consumes the session
// key. It verifies a key exists, expires the session when the idle age
// strictly exceeds timeout, and refreshes the activity timestamp otherwise.
// An age exactly equal to the timeout is still valid. A corrupt activity
// record ends the session rather than resetting the clock.
func EnforceTimeout(store Store, timeout time.Duration, now time.Time) error {
	key, err := store.LoadKey()
	if err != nil {
		return err
	}
	for i := range key {
		key[i] = 0
	}

	last, ok, err := store.LastActivity()
	if err != nil {
		if errors.Is(err, errCorruptActivity) {
			_ = store.ClearKey()
			_ = store.ClearActivity()
			return errdefs.ErrSessionExpired
		}
		return err
	}
	if !ok {
		// No record yet (first operation after login); start the clock now.
		return store.TouchActivity(now)
	}

	if expired(now, last, timeout) {
		_ = store.ClearKey()
		_ = store.ClearActivity()
		return errdefs.ErrSessionExpired
	}
	return store.TouchActivity(now)
}

func expired(now, last time.Time, timeout time.Duration) bool {
	return now.Sub(last) > timeout
}
