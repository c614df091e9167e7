package migrate

import (
	"context"
	"log/slog"
	"time"

	"sqlite2mysql/internal/datasource/sqlite"
	"sqlite2mysql/internal/metrics"
	"sqlite2mysql/internal/storage"
)

// RunConfig is everything one run needs. Connection parameters are passed
// in explicitly; nothing is read from the environment here.
type RunConfig struct {
	Source      sqlite.Config
	Destination storage.Config
	Options
}

// Test hooks.
var (
	openSource = func(ctx context.Context, cfg sqlite.Config) (source, error) {
		return sqlite.Open(ctx, cfg)
	}
	openDestination = storage.Open
)

// source is a Source that also owns a connection.
type source interface {
	Source
	Close() error
}

// Run connects to both stores, migrates every selected table and closes both
// stores again. The state sequence is source connected -> destination
// connected -> tables, one at a time -> closed.
//
// A *ConnectionError is returned, with a nil Summary, when either store
// cannot be opened; in that case no destination table has been touched and
// the source catalog has not been listed. Otherwise the Summary is returned,
// along with an error only if the catalog could not be listed.
func Run(ctx context.Context, cfg RunConfig) (*Summary, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
		cfg.Logger = log
	}
	if cfg.Job == "" {
		cfg.Job = "sqlite2mysql"
	}

	start := time.Now()
	src, err := openSource(ctx, cfg.Source)
	metrics.RecordStep(cfg.Job, "connect_source", err, time.Since(start))
	if err != nil {
		log.Error("connection failed", "store", "source", "path", cfg.Source.Path, "err", err)
		return nil, &ConnectionError{Role: "source", Err: err}
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("close source", "err", err)
		}
	}()

	start = time.Now()
	dst, err := openDestination(ctx, cfg.Destination)
	metrics.RecordStep(cfg.Job, "connect_destination", err, time.Since(start))
	if err != nil {
		log.Error("connection failed", "store", "destination", "kind", cfg.Destination.Kind, "err", err)
		return nil, &ConnectionError{Role: "destination", Err: err}
	}
	defer func() {
		if err := dst.Close(); err != nil {
			log.Warn("close destination", "err", err)
		}
	}()
	log.Info("connected", "source", cfg.Source.Path, "destination", dst.Kind())

	sum, err := New(src, dst, cfg.Options).Migrate(ctx)
	sum.Source = cfg.Source.Path
	return sum, err
}
