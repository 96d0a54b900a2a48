// Package store persists session credentials between runs, the counterpart
// of the platform secure storage the backend contract assumes.
package store

import "sync"

const (
	// KeyUser holds the JSON blob of models.StoredUser.
	KeyUser = "user"

	// KeyRefreshToken holds the long-lived renewal credential. It is stored
	// under its own key because it rotates on every refresh.
	KeyRefreshToken = "refreshToken"
)

type Store interface {
	// Get returns the stored value, or "" when the key is absent.
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
