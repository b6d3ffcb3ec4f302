package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations for registered endpoints.
// Upsert overwrites any existing endpoint with the same key.
type Repository interface {
	// List returns every stored endpoint ordered by key.
	List(ctx context.Context) ([]Endpoint, error)

	// Get returns the endpoint with the given key, or ErrEndpointNotFound.
	Get(ctx context.Context, key string) (Endpoint, error)

	// Upsert inserts or replaces the endpoint under its key.
	Upsert(ctx context.Context, e Endpoint) error

	// Delete removes the endpoint with the given key, or returns ErrEndpointNotFound.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every endpoint.
	DeleteAll(ctx context.Context) error
}

// SQLiteRepository implements Repository on the device_endpoints table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectEndpoints = `
	SELECT address, device_port, battery, active, registered_at
	FROM device_endpoints`

// List returns every stored endpoint ordered by key.
func (r *SQLiteRepository) List(ctx context.Context) ([]Endpoint, error) {
	rows, err := r.db.QueryContext(ctx, selectEndpoints+" ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("querying endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoints: %w", err)
	}
	return endpoints, nil
}

// Get returns the endpoint with the given key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) (Endpoint, error) {
	row := r.db.QueryRowContext(ctx, selectEndpoints+" WHERE key = ?", key)
	e, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Endpoint{}, ErrEndpointNotFound
	}
	return e, err
}

// Upsert inserts the endpoint or overwrites every column of the existing row.
func (r *SQLiteRepository) Upsert(ctx context.Context, e Endpoint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_endpoints (key, address, device_port, battery, active, registered_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			address = excluded.address,
			device_port = excluded.device_port,
			battery = excluded.battery,
			active = excluded.active,
			registered_at = excluded.registered_at`,
		e.Key(), e.Address, int(e.Port), e.Battery, boolToInt(e.Active),
		e.RegisteredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting endpoint %s: %w", e.Key(), err)
	}
	return nil
}

// Delete removes the endpoint with the given key.
func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM device_endpoints WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting endpoint %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEndpointNotFound
	}
	return nil
}

// DeleteAll removes every endpoint.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM device_endpoints"); err != nil {
		return fmt.Errorf("clearing endpoints: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(s rowScanner) (Endpoint, error) {
	var (
		e            Endpoint
		port         int
		active       int
		registeredAt string
	)
	if err := s.Scan(&e.Address, &port, &e.Battery, &active, &registeredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Endpoint{}, err
		}
		return Endpoint{}, fmt.Errorf("scanning endpoint: %w", err)
	}
	e.Port = uint16(port) //nolint:gosec // CHECK constraint keeps device_port in range
	e.Active = active != 0
	e.RegisteredAt, _ = time.Parse(time.RFC3339Nano, registeredAt) //nolint:errcheck // Written by Upsert
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
