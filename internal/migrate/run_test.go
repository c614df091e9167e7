package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"sqlite2mysql/internal/datasource/sqlite"
	"sqlite2mysql/internal/schema"
	"sqlite2mysql/internal/storage"
)

// withHooks swaps the connection hooks for one test. Tests using it must not
// run in parallel.
func withHooks(t *testing.T, src func(context.Context, sqlite.Config) (source, error), dst func(context.Context, storage.Config) (storage.Destination, error)) {
	t.Helper()

	origSrc, origDst := openSource, openDestination
	t.Cleanup(func() { openSource, openDestination = origSrc, origDst })
	if src != nil {
		openSource = src
	}
	if dst != nil {
		openDestination = dst
	}
}

// TestRunDestinationUnreachable checks that nothing is listed or created
// when the destination cannot be opened, and that the source is released.
func TestRunDestinationUnreachable(t *testing.T) {
	fake := &fakeSource{tables: []schema.Table{{Name: "users", Columns: []schema.Column{{Name: "id", DeclaredType: "INTEGER"}}}}}
	refused := errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
	withHooks(t,
		func(context.Context, sqlite.Config) (source, error) { return fake, nil },
		func(context.Context, storage.Config) (storage.Destination, error) { return nil, refused },
	)

	sum, err := Run(context.Background(), RunConfig{
		Destination: storage.Config{Kind: "mysql", Host: "127.0.0.1", Database: "app"},
		Options:     Options{Logger: quietLogger()},
	})

	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.Role != "destination" || !errors.Is(err, refused) {
		t.Fatalf("err = %v, want destination ConnectionError", err)
	}
	if sum != nil {
		t.Fatalf("summary = %+v, want nil", sum)
	}
	if fake.listed != 0 {
		t.Fatalf("source listed %d times before the destination was connected", fake.listed)
	}
	if !fake.closed {
		t.Fatalf("source not closed")
	}
}

func TestRunSourceUnreadable(t *testing.T) {
	dialed := false
	withHooks(t, nil, func(context.Context, storage.Config) (storage.Destination, error) {
		dialed = true
		return nil, errors.New("unexpected")
	})

	_, err := Run(context.Background(), RunConfig{
		Source:  sqlite.Config{Path: filepath.Join(t.TempDir(), "missing.sqlite")},
		Options: Options{Logger: quietLogger()},
	})
	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.Role != "source" {
		t.Fatalf("err = %v, want source ConnectionError", err)
	}
	if dialed {
		t.Fatalf("destination dialed after the source failed")
	}
}

func TestRunClosesBothStores(t *testing.T) {
	srcPath := writeSource(t, endToEndSource...)
	var dst *strictDest
	withHooks(t, nil, func(context.Context, storage.Config) (storage.Destination, error) {
		dst = newStrictDest(mysqlShapedDest(t, ""))
		return dst, nil
	})

	sum, err := Run(context.Background(), RunConfig{
		Source:      sqlite.Config{Path: srcPath},
		Destination: storage.Config{Kind: "mysql"},
		Options:     Options{Job: "nightly", Logger: quietLogger()},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.Completed || sum.Source != srcPath || sum.Job != "nightly" || sum.Destination != "mysql" {
		t.Fatalf("summary = %+v", sum)
	}
	if got := len(dst.created); got != 2 {
		t.Fatalf("created %d tables, want 2", got)
	}
	if !dst.closed {
		t.Fatalf("destination not closed")
	}
}

func TestRunListFailureStillCloses(t *testing.T) {
	fake := &fakeSource{listErr: errors.New("malformed schema")}
	var dst *strictDest
	withHooks(t,
		func(context.Context, sqlite.Config) (source, error) { return fake, nil },
		func(context.Context, storage.Config) (storage.Destination, error) {
			dst = newStrictDest(mysqlShapedDest(t, ""))
			return dst, nil
		},
	)

	sum, err := Run(context.Background(), RunConfig{Options: Options{Logger: quietLogger()}})
	if err == nil {
		t.Fatalf("expected list error")
	}
	var ce *ConnectionError
	if errors.As(err, &ce) {
		t.Fatalf("list failure reported as connection error")
	}
	if sum == nil || sum.Completed {
		t.Fatalf("summary = %+v", sum)
	}
	if !fake.closed || !dst.closed {
		t.Fatalf("closed: source=%v destination=%v", fake.closed, dst.closed)
	}
}
