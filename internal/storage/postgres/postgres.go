// Package postgres registers the "postgres" destination. Connections go
// through pgx v5 exposed as a database/sql driver.
package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"sqlite2mysql/internal/ddl"
	"sqlite2mysql/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// DefaultPort is used when storage.Config.Port is zero.
const DefaultPort = 5432

// Dialect renders the shared buckets for Postgres. A failed statement aborts
// a Postgres transaction, so every row insert runs in its own savepoint.
var Dialect = storage.Dialect{
	Name: "postgres",
	Types: ddl.TypeNames{
		Integer: "INTEGER",
		String:  "VARCHAR(255)",
		Float:   "REAL",
		Text:    "TEXT",
	},
	Placeholder: ddl.DollarN,
	RowSavepoints: &storage.Savepoints{
		Save:     "SAVEPOINT row_insert",
		Rollback: "ROLLBACK TO SAVEPOINT row_insert",
		Release:  "RELEASE SAVEPOINT row_insert",
	},
}

func init() {
	storage.Register("postgres", Open)
}

// Open connects to Postgres and pings it.
func Open(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
	cc, err := ConnConfig(cfg)
	if err != nil {
		return nil, err
	}
	dst, err := storage.OpenDB(ctx, stdlib.OpenDB(*cc), Dialect, cfg)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// ConnConfig builds and parses the pgx connection config for cfg.
func ConnConfig(cfg storage.Config) (*pgx.ConnConfig, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		var err error
		if dsn, err = BuildURL(cfg); err != nil {
			return nil, err
		}
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres: parse config: %w", err)
	}
	if cfg.ConnectTimeout > 0 || cc.ConnectTimeout == 0 {
		cc.ConnectTimeout = cfg.Timeout()
	}
	return cc, nil
}

// BuildURL renders a postgres:// URL from the discrete fields of cfg.
func BuildURL(cfg storage.Config) (string, error) {
	if strings.TrimSpace(cfg.Database) == "" {
		return "", fmt.Errorf("storage: postgres: database must not be empty")
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if len(cfg.Params) > 0 {
		keys := make([]string, 0, len(cfg.Params))
		for k := range cfg.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		q := url.Values{}
		for _, k := range keys {
			q.Set(k, cfg.Params[k])
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
