package metadata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Supported connection drivers.
const (
	DriverOracle   = "oracle"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

var (
	// ErrUnknownConnection is returned for a connection id with no
	// configuration.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrNoStats is returned when a provider cannot supply statistics.
	ErrNoStats = errors.New("provider has no column statistics")
)

// Connection configures one metadata source.
type Connection struct {
	ID     string
	Driver string
	URL    string
	Schema string
	// Path is the snapshot file for the file driver.
	Path string
}

// Opener creates the provider for a connection.
type Opener func(ctx context.Context, c Connection) (Provider, error)

// OpenConnection opens the provider for c according to its driver.
func OpenConnection(ctx context.Context, c Connection) (Provider, error) {
	switch c.Driver {
	case DriverOracle, "":
		return OpenOracle(ctx, c.URL)
	case DriverPostgres, "postgresql":
		return OpenPostgres(ctx, c.URL)
	case DriverFile:
		return LoadFile(c.Path)
	default:
		return nil, fmt.Errorf("connection %s: unsupported driver %q", c.ID, c.Driver)
	}
}

// Registry resolves connection ids to providers, opening each one on first
// use and reusing it afterwards. It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	conns     map[string]Connection
	providers map[string]Provider
	open      Opener
}

// NewRegistry returns a registry over conns. A nil open uses OpenConnection.
func NewRegistry(conns []Connection, open Opener) *Registry {
	if open == nil {
		open = OpenConnection
	}
	r := &Registry{
		conns:     make(map[string]Connection, len(conns)),
		providers: make(map[string]Provider),
		open:      open,
	}
	for _, c := range conns {
		r.conns[c.ID] = c
	}
	return r
}

// IDs returns the configured connection ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is configured.
func (r *Registry) Has(id string) bool {
	_, ok := r.conns[id]
	return ok
}

// provider returns the open provider for id and its connection settings.
func (r *Registry) provider(ctx context.Context, id string) (Provider, Connection, error) {
	c, ok := r.conns[id]
	if !ok {
		return nil, Connection{}, fmt.Errorf("%w: %s", ErrUnknownConnection, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[id]; ok {
		return p, c, nil
	}
	p, err := r.open(ctx, c)
	if err != nil {
		return nil, c, fmt.Errorf("open connection %s: %w", id, err)
	}
	slog.Debug("metadata connection opened", "connection", id, "driver", c.Driver)
	r.providers[id] = p
	return p, c, nil
}

// IndexesForTables delegates to the provider of connectionID. An empty
// schema falls back to the connection's configured schema.
func (r *Registry) IndexesForTables(ctx context.Context, connectionID, schema string, tables []string) (IndexMap, error) {
	p, c, err := r.provider(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = c.Schema
	}
	return p.IndexesForTables(ctx, connectionID, schema, tables)
}

// ColumnStatsForTables delegates to the provider of connectionID when it
// supports statistics.
func (r *Registry) ColumnStatsForTables(ctx context.Context, connectionID, schema string, tables []string) (StatsMap, error) {
	p, c, err := r.provider(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	sp, ok := p.(StatsProvider)
	if !ok {
		return nil, ErrNoStats
	}
	if schema == "" {
		schema = c.Schema
	}
	return sp.ColumnStatsForTables(ctx, connectionID, schema, tables)
}

// Close closes every opened provider.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for id, p := range r.providers {
		switch c := p.(type) {
		case interface{ Close() error }:
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", id, err))
			}
		case interface{ Close() }:
			c.Close()
		}
		delete(r.providers, id)
	}
	return errors.Join(errs...)
}
