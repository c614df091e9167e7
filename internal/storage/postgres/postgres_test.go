package postgres

import (
	"strings"
	"testing"
	"time"

	"sqlite2mysql/internal/ddl"
	"sqlite2mysql/internal/schema"
	"sqlite2mysql/internal/storage"
)

func TestBuildURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     storage.Config
		want    string
		wantErr bool
	}{
		{
			name: "defaults",
			cfg:  storage.Config{Database: "app"},
			want: "postgres://localhost:5432/app",
		},
		{
			name: "credentials and params",
			cfg: storage.Config{
				Host: "pg", Port: 6432, User: "etl", Password: "p@ss word", Database: "dw",
				Params: map[string]string{"sslmode": "disable", "application_name": "sqlite2mysql"},
			},
			want: "postgres://etl:p%40ss%20word@pg:6432/dw?application_name=sqlite2mysql&sslmode=disable",
		},
		{
			name:    "missing database",
			cfg:     storage.Config{Host: "pg"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildURL(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildURL: %v", err)
			}
			if got != tt.want {
				t.Fatalf("BuildURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnConfig(t *testing.T) {
	t.Parallel()

	cc, err := ConnConfig(storage.Config{
		Host: "pg", User: "etl", Password: "pw", Database: "dw",
		ConnectTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("ConnConfig: %v", err)
	}
	if cc.Host != "pg" || cc.Port != 5432 || cc.User != "etl" || cc.Password != "pw" || cc.Database != "dw" {
		t.Fatalf("parsed = host=%s port=%d user=%s db=%s", cc.Host, cc.Port, cc.User, cc.Database)
	}
	if cc.ConnectTimeout != 2*time.Second {
		t.Fatalf("connect timeout = %s", cc.ConnectTimeout)
	}

	if _, err := ConnConfig(storage.Config{DSN: "postgres://%zz"}); err == nil {
		t.Fatalf("expected parse error for malformed DSN")
	}
}

// TestDialectRendering checks the DDL and insert statement Postgres receives
// for the users table.
func TestDialectRendering(t *testing.T) {
	t.Parallel()

	tbl := schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", DeclaredType: "INTEGER"},
		{Name: "name", DeclaredType: "TEXT"},
		{Name: "score", DeclaredType: "FLOAT"},
		{Name: "avatar", DeclaredType: "BLOB"},
	}}

	create, err := ddl.BuildCreateTableSQL(ddl.FromTable(tbl, Dialect.Types))
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS users (id INTEGER, name VARCHAR(255), score REAL, avatar TEXT)"
	if create != want {
		t.Fatalf("create = %q, want %q", create, want)
	}

	insert, err := ddl.BuildInsertSQL(tbl.Name, len(tbl.Columns), Dialect.Placeholder)
	if err != nil {
		t.Fatalf("BuildInsertSQL: %v", err)
	}
	if !strings.HasSuffix(insert, "VALUES ($1, $2, $3, $4)") {
		t.Fatalf("insert = %q", insert)
	}
	if Dialect.RowSavepoints == nil {
		t.Fatalf("postgres must isolate row inserts in savepoints")
	}
}
