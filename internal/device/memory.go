package device

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is a Repository that keeps endpoints in process memory.
// It is used when the node runs without a database.
type MemoryRepository struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{endpoints: make(map[string]Endpoint)}
}

// List returns every endpoint ordered by key.
func (m *MemoryRepository) List(_ context.Context) ([]Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Endpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		out = append(out, e)
	}
	sortByKey(out)
	return out, nil
}

// Get returns the endpoint with the given key.
func (m *MemoryRepository) Get(_ context.Context, key string) (Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.endpoints[key]
	if !ok {
		return Endpoint{}, ErrEndpointNotFound
	}
	return e, nil
}

// Upsert stores e under its key, replacing any previous value.
func (m *MemoryRepository) Upsert(_ context.Context, e Endpoint) error {
	m.mu.Lock()
	m.endpoints[e.Key()] = e
	m.mu.Unlock()
	return nil
}

// Delete removes the endpoint with the given key.
func (m *MemoryRepository) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.endpoints[key]; !ok {
		return ErrEndpointNotFound
	}
	delete(m.endpoints, key)
	return nil
}

// DeleteAll removes every endpoint.
func (m *MemoryRepository) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	m.endpoints = make(map[string]Endpoint)
	m.mu.Unlock()
	return nil
}

func sortByKey(endpoints []Endpoint) {
	sort.Slice(endpoints, func(i, j int) bool {
		return endpoints[i].Key() < endpoints[j].Key()
	})
}
