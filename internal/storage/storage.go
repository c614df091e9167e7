// Package storage defines the destination side of a migration: the
// Destination contract, a registry of backend factories keyed by kind, and a
// database/sql implementation shared by every SQL backend.
//
// Backends live in subpackages and register themselves in init. Importing
// sqlite2mysql/internal/storage/all makes every built-in kind available.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sqlite2mysql/internal/schema"
)

// Config carries the destination connection parameters. It is passed
// explicitly to Open; backends never read ambient configuration.
type Config struct {
	// Kind selects the backend ("mysql", "postgres", "mssql", "sqlite").
	Kind string

	// DSN, when set, is handed to the driver verbatim and the discrete
	// fields below are ignored.
	DSN string

	Host     string
	Port     int // zero selects the backend default
	User     string
	Password string
	Database string

	// Params are extra driver parameters appended to the built DSN.
	Params map[string]string

	// ConnectTimeout bounds dialing and the initial ping. Zero means
	// DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// DefaultConnectTimeout applies when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// Timeout returns the effective connect timeout.
func (c Config) Timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

// Destination is an open connection to the store tables are copied into.
type Destination interface {
	// Kind reports the registered backend kind.
	Kind() string

	// RecreateTable drops the table if it exists and creates it with the
	// mapped column types, in source order.
	RecreateTable(ctx context.Context, t schema.Table) error

	// BeginTable starts the single transaction rows of t are inserted in.
	BeginTable(ctx context.Context, t schema.Table) (TableWriter, error)

	Close() error
}

// TableWriter inserts rows of one table inside one transaction.
//
// A failed Insert leaves the transaction usable: later rows may still be
// inserted and Commit still persists them.
type TableWriter interface {
	Insert(ctx context.Context, row []any) error
	Commit() error
	Rollback() error
}

// Factory opens a Destination for cfg.
type Factory func(ctx context.Context, cfg Config) (Destination, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open looks up the factory for cfg.Kind and opens the destination.
func Open(ctx context.Context, cfg Config) (Destination, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Kind))
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}
