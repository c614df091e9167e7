// Package sqlite registers the "sqlite" destination: a local SQLite file,
// useful for dry runs of a migration. storage.Config.Database is the path
// (or ":memory:").
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sqlite2mysql/internal/ddl"
	"sqlite2mysql/internal/storage"

	_ "modernc.org/sqlite"
)

// Dialect renders the shared buckets with SQLite affinities. SQLite rolls
// back only the failing statement.
var Dialect = storage.Dialect{
	Name: "sqlite",
	Types: ddl.TypeNames{
		Integer: "INTEGER",
		String:  "VARCHAR(255)",
		Float:   "REAL",
		Text:    "TEXT",
	},
	Placeholder: ddl.QuestionMark,
}

func init() {
	storage.Register("sqlite", Open)
}

// Open opens (creating if needed) the destination database.
func Open(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = strings.TrimSpace(cfg.Database)
	}
	if dsn == "" {
		return nil, fmt.Errorf("storage: sqlite: database path must not be empty")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: sqlite: open: %w", err)
	}
	// One writer; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	dst, err := storage.OpenDB(ctx, db, Dialect, cfg)
	if err != nil {
		return nil, err
	}
	return dst, nil
}
