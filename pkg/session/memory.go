package session

import (
	"sync"
	"time"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

// MemoryStore is an in-process Store used by tests and non-keyring
// environments.
type MemoryStore struct {
	mu   sync.Mutex
	key  []byte
	last *time.Time
}

// NewMemory returns an empty in-memory session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) StoreKey(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = append([]byte(nil), key...)
	return nil
}

func (s *MemoryStore) LoadKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, errdefs.ErrNoActiveSession
	}
	return append([]byte(nil), s.key...), nil
}

func (s *MemoryStore) ClearKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	return nil
}

func (s *MemoryStore) TouchActivity(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := now
	s.last = &touched
	return nil
}

func (s *MemoryStore) LastActivity() (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return time.Time{}, false, nil
	}
	return *s.last, true, nil
}

func (s *MemoryStore) ClearActivity() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
	return nil
}
