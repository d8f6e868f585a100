// Package blob defines the object-store interface the engine uses for its
// run artifacts and datasets, with an in-memory implementation.
package blob

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/agentstation/mastermap/pkg/errors"
)

// Store is a flat key/value object store. Keys use "/" separators.
type Store interface {
	// Get returns the object at key or an error matching errors.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes the object at key, replacing any previous content.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the object at key. Deleting a missing key returns an
	// error matching errors.ErrNotFound.
	Delete(ctx context.Context, key string) error

	// List returns every key starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Exists reports whether key is present.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Join joins key segments with "/" and strips any leading slash.
func Join(elem ...string) string {
	return strings.TrimPrefix(path.Join(elem...), "/")
}

// NormalizePrefix returns prefix without a leading slash and with a trailing
// one. The empty prefix stays empty.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(strings.TrimSpace(prefix), "/")
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// Memory is a Store held in memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.NewNotFoundError("object", key)
	}
	return slices.Clone(data), nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return errors.NewValidationError("key", key, "cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = slices.Clone(data)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.NewNotFoundError("object", key)
	}
	delete(m.objects, key)
	return nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
