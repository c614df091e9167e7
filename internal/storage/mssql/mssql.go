// Package mssql registers the "mssql" destination, backed by
// github.com/microsoft/go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sqlite2mysql/internal/ddl"
	"sqlite2mysql/internal/storage"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// DefaultPort is used when storage.Config.Port is zero.
const DefaultPort = 1433

// Dialect renders the shared buckets for SQL Server. Some insert errors
// (conversion failures) abort the batch, so rows run inside a named save
// point. SQL Server has no RELEASE. Errors that doom the transaction
// (XACT_STATE() = -1) cannot be undone by a savepoint; the table then fails
// as a whole.
var Dialect = storage.Dialect{
	Name: "mssql",
	Types: ddl.TypeNames{
		Integer: "INT",
		String:  "NVARCHAR(255)",
		Float:   "FLOAT",
		Text:    "NVARCHAR(MAX)",
	},
	Placeholder: ddl.AtPN,
	RowSavepoints: &storage.Savepoints{
		Save:     "SAVE TRANSACTION row_insert",
		Rollback: "ROLLBACK TRANSACTION row_insert",
		State:    "SELECT XACT_STATE()",
	},
}

func init() {
	storage.Register("mssql", Open)
}

// Open validates the DSN, connects and pings.
func Open(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := mssql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: mssql: connector: %w", err)
	}
	dst, err := storage.OpenDB(ctx, sql.OpenDB(conn), Dialect, cfg)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// DSN returns cfg.DSN or a sqlserver:// URL built from the discrete fields,
// validated with msdsn.Parse so mistakes fail before dialing.
func DSN(cfg storage.Config) (string, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		if strings.TrimSpace(cfg.Database) == "" {
			return "", fmt.Errorf("storage: mssql: database must not be empty")
		}
		host := cfg.Host
		if host == "" {
			host = "localhost"
		}
		port := cfg.Port
		if port == 0 {
			port = DefaultPort
		}

		q := url.Values{}
		q.Set("database", cfg.Database)
		q.Set("dial timeout", strconv.Itoa(dialTimeoutSeconds(cfg.Timeout())))
		for k, v := range cfg.Params {
			q.Set(k, v)
		}
		u := url.URL{
			Scheme:   "sqlserver",
			Host:     net.JoinHostPort(host, strconv.Itoa(port)),
			RawQuery: q.Encode(),
		}
		if cfg.User != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		}
		dsn = u.String()
	}

	if _, err := msdsn.Parse(dsn); err != nil {
		return "", fmt.Errorf("storage: mssql: dsn: %w", err)
	}
	return dsn, nil
}

// dialTimeoutSeconds rounds d up to whole seconds. go-mssqldb reads 0 as no
// timeout, so any positive duration yields at least 1.
func dialTimeoutSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
