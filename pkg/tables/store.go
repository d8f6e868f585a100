package tables

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/agentstation/mastermap/pkg/errors"
)

// Store is the tabular read/write round trip the engine consumes.
// Implementations must preserve column identity across Write and Read.
type Store interface {
	// List returns handles for every dataset under the store's namespace.
	List(ctx context.Context) ([]Handle, error)

	// Read materializes a dataset.
	Read(ctx context.Context, h Handle) (*Table, error)

	// Write persists a dataset at its handle's key.
	Write(ctx context.Context, t *Table) error
}

// MemoryStore is a Store held in memory, used by tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*Table
	writes map[string]int
}

// NewMemoryStore creates a MemoryStore seeded with copies of tables.
func NewMemoryStore(tables ...*Table) *MemoryStore {
	s := &MemoryStore{
		tables: make(map[string]*Table),
		writes: make(map[string]int),
	}
	for _, t := range tables {
		s.tables[t.Key] = t.Copy()
	}
	return s
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context) ([]Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]Handle, 0, len(s.tables))
	for _, t := range s.tables {
		handles = append(handles, t.Handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Key < handles[j].Key })
	return handles, nil
}

// Read implements Store and returns a copy.
func (s *MemoryStore) Read(_ context.Context, h Handle) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[h.Key]
	if !ok {
		return nil, errors.NewNotFoundError("dataset", h.Key)
	}
	return t.Copy(), nil
}

// Write implements Store and stores a copy.
func (s *MemoryStore) Write(_ context.Context, t *Table) error {
	if t == nil {
		return errors.NewValidationError("table", nil, "cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[t.Key] = t.Copy()
	s.writes[t.Key]++
	return nil
}

// Writes returns how many times the dataset at key was written.
func (s *MemoryStore) Writes(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes[key]
}

// Snapshot returns a copy of the dataset at key, or nil.
func (s *MemoryStore) Snapshot(key string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tables[key]; ok {
		return t.Copy()
	}
	return nil
}

// Keys returns the stored keys in order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.tables))
	for k := range s.tables {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
