package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
	// For testing error paths
	upsertErr error
	deleteErr error
	clearErr  error
	listErr   error
	upserts   int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{endpoints: make(map[string]Endpoint)}
}

func (m *MockRepository) List(_ context.Context) ([]Endpoint, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Endpoint, 0, len(m.endpoints))
	for _, e := range m.endpoints {
		out = append(out, e)
	}
	return out, nil
}

func (m *MockRepository) Get(_ context.Context, key string) (Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.endpoints[key]; ok {
		return e, nil
	}
	return Endpoint{}, ErrEndpointNotFound
}

func (m *MockRepository) Upsert(_ context.Context, e Endpoint) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints[e.Key()] = e
	m.upserts++
	return nil
}

func (m *MockRepository) Delete(_ context.Context, key string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.endpoints[key]; !ok {
		return ErrEndpointNotFound
	}
	delete(m.endpoints, key)
	return nil
}

func (m *MockRepository) DeleteAll(_ context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endpoints = make(map[string]Endpoint)
	return nil
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRegistry_UpsertOverwrites(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	first := NewRegistration("192.168.1.50", 7000, testTime)
	if err := reg.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := first
	second.Battery = 0.5
	second.RegisteredAt = testTime.Add(time.Minute)
	if err := reg.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	all, err := reg.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("GetAll() len = %d, want 1", len(all))
	}
	if all[0] != second {
		t.Errorf("GetAll()[0] = %+v, want %+v", all[0], second)
	}
}

func TestRegistry_DistinctPortsAreDistinctEndpoints(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	for _, port := range []uint16{7000, 7001} {
		if err := reg.Upsert(ctx, NewRegistration("10.0.0.2", port, testTime)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	if reg.Count() != 2 {
		t.Errorf("Count() = %d, want 2", reg.Count())
	}

	all, _ := reg.GetAll(ctx) //nolint:errcheck // cache read cannot fail
	if all[0].Key() != "10.0.0.2:7000" || all[1].Key() != "10.0.0.2:7001" {
		t.Errorf("GetAll() keys = %s, %s; want sorted by key", all[0].Key(), all[1].Key())
	}
}

func TestRegistry_UpsertInvalid(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)

	err := reg.Upsert(context.Background(), Endpoint{Address: "not-an-ip", Port: 7000})
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("Upsert() error = %v, want ErrInvalidEndpoint", err)
	}
	if repo.upserts != 0 {
		t.Error("invalid endpoint should not reach the repository")
	}
}

func TestRegistry_UpsertRepositoryError(t *testing.T) {
	repo := NewMockRepository()
	repo.upsertErr = errors.New("disk full")
	reg := NewRegistry(repo)

	if err := reg.Upsert(context.Background(), NewRegistration("10.0.0.2", 7000, testTime)); err == nil {
		t.Fatal("Upsert() expected repository error")
	}
	if reg.Count() != 0 {
		t.Error("cache should not change when the repository write fails")
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()
	e := NewRegistration("10.0.0.3", 7000, testTime)

	if err := reg.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := reg.Delete(ctx, e.Key()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := reg.Get(ctx, e.Key()); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrEndpointNotFound", err)
	}
	if err := reg.Delete(ctx, e.Key()); !errors.Is(err, ErrEndpointNotFound) {
		t.Errorf("second Delete() error = %v, want ErrEndpointNotFound", err)
	}
}

func TestRegistry_Clear(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	for i := uint16(1); i <= 3; i++ {
		if err := reg.Upsert(ctx, NewRegistration("10.0.0.4", 7000+i, testTime)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	if err := reg.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", reg.Count())
	}
}

func TestRegistry_ClearError(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	if err := reg.Upsert(ctx, NewRegistration("10.0.0.4", 7000, testTime)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	repo.clearErr = errors.New("locked")
	if err := reg.Clear(ctx); err == nil {
		t.Fatal("Clear() expected error")
	}
	if reg.Count() != 1 {
		t.Error("cache should be untouched when the repository clear fails")
	}
}

func TestRegistry_RefreshCache(t *testing.T) {
	repo := NewMockRepository()
	ctx := context.Background()
	repo.endpoints["10.0.0.5:7000"] = NewRegistration("10.0.0.5", 7000, testTime)

	reg := NewRegistry(repo)
	if reg.Count() != 0 {
		t.Fatal("new registry should start empty")
	}
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}

	repo.listErr = errors.New("boom")
	if err := reg.RefreshCache(ctx); err == nil {
		t.Error("RefreshCache() expected error")
	}
}

func TestRegistry_GetAllReturnsCopy(t *testing.T) {
	reg := NewRegistry(NewMockRepository())
	ctx := context.Background()

	if err := reg.Upsert(ctx, NewRegistration("10.0.0.6", 7000, testTime)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	all, _ := reg.GetAll(ctx) //nolint:errcheck // cache read cannot fail
	all[0].Active = false

	again, _ := reg.GetAll(ctx) //nolint:errcheck // cache read cannot fail
	if !again[0].Active {
		t.Error("mutating a GetAll snapshot changed the registry")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(NewMemoryRepository())
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = reg.Upsert(ctx, NewRegistration("10.0.1.1", uint16(1000+w*100+i), testTime)) //nolint:errcheck // stress
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = reg.GetAll(ctx) //nolint:errcheck // stress
			}
		}()
	}
	wg.Wait()

	if reg.Count() != 200 {
		t.Errorf("Count() = %d, want 200", reg.Count())
	}
}
