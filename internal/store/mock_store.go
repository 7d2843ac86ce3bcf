package store

import (
	"context"
	"sync"

	"github.com/ajitpratap0/wardtrace/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu       sync.RWMutex
	snapshot *models.Snapshot
	saves    int
	pingErr  error
}

// NewMockStore creates a new mock store. A nil seed starts empty and Load
// returns ErrNotFound until the first Save.
func NewMockStore(seed *models.Snapshot) *MockStore {
	m := &MockStore{}
	if seed != nil {
		m.snapshot = cloneSnapshot(seed)
	}
	return m
}

// Load returns a copy of the stored snapshot.
func (m *MockStore) Load(_ context.Context) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, ErrNotFound
	}
	return cloneSnapshot(m.snapshot), nil
}

// Save stores a copy of s.
func (m *MockStore) Save(_ context.Context, s *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = cloneSnapshot(s)
	m.saves++
	return nil
}

// Saves reports how many times Save has been called.
func (m *MockStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// SetPingErr makes Ping fail with err. A nil err restores it.
func (m *MockStore) SetPingErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// Ping returns the error set by SetPingErr.
func (m *MockStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingErr
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
