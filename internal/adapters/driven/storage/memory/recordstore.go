package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Values are copied on the way in and out so callers cannot alias them.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	revs    map[string]int64
	saves   int
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string][]byte),
		revs:    make(map[string]int64),
	}
}

// Load retrieves the record stored under key.
func (s *RecordStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save replaces the record stored under key.
func (s *RecordStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = append([]byte(nil), data...)
	s.revs[key]++
	s.saves++
	return nil
}

// Revision returns how many times key has been saved.
func (s *RecordStore) Revision(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.records[key]; !ok {
		return 0, domain.ErrNotFound
	}
	return s.revs[key], nil
}

// Delete removes the record stored under key.
func (s *RecordStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Saves returns how many times Save has been called.
func (s *RecordStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// Close is a no-op for the memory store.
func (s *RecordStore) Close() error {
	return nil
}
