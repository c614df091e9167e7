package mysql

import (
	"testing"
	"time"

	"sqlite2mysql/internal/storage"
)

func TestDriverConfigFromFields(t *testing.T) {
	t.Parallel()

	mc, err := DriverConfig(storage.Config{
		Host:           "db.internal",
		User:           "u530864919_app",
		Password:       "s3cret",
		Database:       "u530864919_main",
		Params:         map[string]string{"charset": "utf8mb4"},
		ConnectTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("DriverConfig: %v", err)
	}

	if mc.Net != "tcp" || mc.Addr != "db.internal:3306" {
		t.Fatalf("net/addr = %s/%s", mc.Net, mc.Addr)
	}
	if mc.User != "u530864919_app" || mc.Passwd != "s3cret" || mc.DBName != "u530864919_main" {
		t.Fatalf("credentials = %+v", mc)
	}
	if mc.Timeout != 3*time.Second {
		t.Fatalf("timeout = %s", mc.Timeout)
	}
	if mc.Params["charset"] != "utf8mb4" {
		t.Fatalf("params = %v", mc.Params)
	}
}

func TestDriverConfigDefaults(t *testing.T) {
	t.Parallel()

	mc, err := DriverConfig(storage.Config{Database: "app", Port: 3307})
	if err != nil {
		t.Fatalf("DriverConfig: %v", err)
	}
	if mc.Addr != "localhost:3307" {
		t.Fatalf("addr = %q", mc.Addr)
	}
	if mc.Timeout != storage.DefaultConnectTimeout {
		t.Fatalf("timeout = %s", mc.Timeout)
	}
}

func TestDriverConfigDSN(t *testing.T) {
	t.Parallel()

	mc, err := DriverConfig(storage.Config{DSN: "root:pw@tcp(10.0.0.1:3306)/shop", Database: "ignored"})
	if err != nil {
		t.Fatalf("DriverConfig: %v", err)
	}
	if mc.Addr != "10.0.0.1:3306" || mc.DBName != "shop" || mc.User != "root" {
		t.Fatalf("parsed = %+v", mc)
	}

	if _, err := DriverConfig(storage.Config{DSN: "not a dsn"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDriverConfigDSNTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dsn  string
		want time.Duration
	}{
		{name: "dsn without timeout", dsn: "root:pw@tcp(db:3306)/shop", want: 3 * time.Second},
		{name: "dsn timeout wins", dsn: "root:pw@tcp(db:3306)/shop?timeout=7s", want: 7 * time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mc, err := DriverConfig(storage.Config{DSN: tt.dsn, ConnectTimeout: 3 * time.Second})
			if err != nil {
				t.Fatalf("DriverConfig: %v", err)
			}
			if mc.Timeout != tt.want {
				t.Fatalf("timeout = %s, want %s", mc.Timeout, tt.want)
			}
		})
	}
}

func TestDriverConfigRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := DriverConfig(storage.Config{Host: "h"}); err == nil {
		t.Fatalf("expected error without database")
	}
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	found := false
	for _, k := range storage.Kinds() {
		if k == "mysql" {
			found = true
		}
	}
	if !found {
		t.Fatalf("mysql not registered: %v", storage.Kinds())
	}
}
