package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the set of endpoints that receive frames. It wraps a
// Repository with an in-memory cache so the streamer's once-per-window
// refresh never touches the database.
//
// The registration listener writes (Clear, Upsert) while the streamer and
// the API read (GetAll). All public methods are thread-safe; writes go to
// the repository first and only update the cache on success.
type Registry struct {
	repo    Repository
	cache   map[string]Endpoint
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new endpoint registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]Endpoint),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all endpoints from the repository into the cache.
// Call it on startup so endpoints persisted by a previous run are visible.
func (r *Registry) RefreshCache(ctx context.Context) error {
	endpoints, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading endpoints: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]Endpoint, len(endpoints))
	for _, e := range endpoints {
		r.cache[e.Key()] = e
	}
	r.cacheMu.Unlock()

	r.logger.Info("endpoint cache refreshed", "count", len(endpoints))
	return nil
}

// GetAll returns a snapshot of every registered endpoint ordered by key.
// The caller owns the returned slice.
func (r *Registry) GetAll(_ context.Context) ([]Endpoint, error) {
	r.cacheMu.RLock()
	out := make([]Endpoint, 0, len(r.cache))
	for _, e := range r.cache {
		out = append(out, e)
	}
	r.cacheMu.RUnlock()

	sortByKey(out)
	return out, nil
}

// Get returns the endpoint stored under key.
func (r *Registry) Get(_ context.Context, key string) (Endpoint, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	e, ok := r.cache[key]
	if !ok {
		return Endpoint{}, ErrEndpointNotFound
	}
	return e, nil
}

// Upsert validates e and stores it under e.Key(), overwriting any
// existing endpoint with the same key.
func (r *Registry) Upsert(ctx context.Context, e Endpoint) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := r.repo.Upsert(ctx, e); err != nil {
		return err
	}

	r.cacheMu.Lock()
	_, existed := r.cache[e.Key()]
	r.cache[e.Key()] = e
	r.cacheMu.Unlock()

	r.logger.Debug("endpoint upserted", "key", e.Key(), "replaced", existed)
	return nil
}

// Delete removes the endpoint stored under key.
// Returns ErrEndpointNotFound if no such endpoint exists.
func (r *Registry) Delete(ctx context.Context, key string) error {
	if err := r.repo.Delete(ctx, key); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, key)
	r.cacheMu.Unlock()

	r.logger.Debug("endpoint deleted", "key", key)
	return nil
}

// Clear removes every endpoint.
func (r *Registry) Clear(ctx context.Context) error {
	if err := r.repo.DeleteAll(ctx); err != nil {
		return err
	}

	r.cacheMu.Lock()
	n := len(r.cache)
	r.cache = make(map[string]Endpoint)
	r.cacheMu.Unlock()

	r.logger.Info("endpoint registry cleared", "removed", n)
	return nil
}

// Count returns the number of registered endpoints.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
