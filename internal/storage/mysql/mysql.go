// Package mysql registers the "mysql" destination, backed by
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"

	"sqlite2mysql/internal/ddl"
	"sqlite2mysql/internal/storage"

	"github.com/go-sql-driver/mysql"
)

// DefaultPort is used when storage.Config.Port is zero.
const DefaultPort = 3306

// Dialect is the MySQL rendering of the shared type buckets. MySQL rolls back
// only the failing statement, so no per-row savepoints are needed.
var Dialect = storage.Dialect{
	Name:        "mysql",
	Types:       ddl.MySQLTypes,
	Placeholder: ddl.QuestionMark,
}

func init() {
	storage.Register("mysql", Open)
}

// Open connects to MySQL and pings it.
func Open(ctx context.Context, cfg storage.Config) (storage.Destination, error) {
	mc, err := DriverConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("storage: mysql: connector: %w", err)
	}
	dst, err := storage.OpenDB(ctx, sql.OpenDB(conn), Dialect, cfg)
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// DriverConfig translates cfg into a go-sql-driver config. An explicit DSN is
// parsed as-is, taking cfg's connect timeout only when the DSN sets none;
// otherwise the discrete fields are used.
func DriverConfig(cfg storage.Config) (*mysql.Config, error) {
	if dsn := strings.TrimSpace(cfg.DSN); dsn != "" {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("storage: mysql: parse dsn: %w", err)
		}
		if mc.Timeout == 0 {
			mc.Timeout = cfg.Timeout()
		}
		return mc, nil
	}

	if strings.TrimSpace(cfg.Database) == "" {
		return nil, fmt.Errorf("storage: mysql: database must not be empty")
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.Timeout = cfg.Timeout()
	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc, nil
}
