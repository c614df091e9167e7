package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"sqlite2mysql/internal/config"
	"sqlite2mysql/internal/datasource/sqlite"
	"sqlite2mysql/internal/migrate"
	"sqlite2mysql/internal/storage"

	// every destination kind is compiled in; config picks one.
	_ "sqlite2mysql/internal/storage/all"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// errInvalidConfig is returned after validation issues have been printed.
var errInvalidConfig = errors.New("invalid configuration")

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"job":             "job",
	"report":          "report",
	"source":          "source.path",
	"include":         "source.include",
	"exclude":         "source.exclude",
	"kind":            "destination.kind",
	"dsn":             "destination.dsn",
	"host":            "destination.host",
	"port":            "destination.port",
	"user":            "destination.user",
	"password":        "destination.password",
	"database":        "destination.database",
	"connect-timeout": "destination.connect_timeout",
	"log-level":       "log.level",
	"log-format":      "log.format",
	"metrics-backend": "metrics.backend",
	"pushgateway-url": "metrics.pushgateway_url",
	"datadog-addr":    "metrics.datadog_addr",
}

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New("")}

	root := &cobra.Command{
		Use:   "sqlite2mysql",
		Short: "Copy a SQLite database into MySQL",
		Long: `Copies every table of a SQLite database into a MySQL database.

Each destination table is dropped and recreated with a coarse type mapping
(INT, VARCHAR(255), FLOAT, TEXT) and then filled row by row. Failed tables and
rows are logged and skipped; the run continues.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("job", "sqlite2mysql", "job name for logs, metrics and the report")
	pf.String("report", "", "write a JSON run report to this path")
	pf.String("source", "database.sqlite", "SQLite database file to read")
	pf.StringSlice("include", nil, "only copy tables matching these glob patterns")
	pf.StringSlice("exclude", nil, "skip tables matching these glob patterns")
	pf.String("kind", "mysql", "destination kind ("+strings.Join(storage.Kinds(), ", ")+")")
	pf.String("dsn", "", "destination DSN (overrides host, port, user, password and database)")
	pf.String("host", "localhost", "destination host")
	pf.Int("port", 0, "destination port (0 uses the driver default)")
	pf.String("user", "", "destination user")
	pf.String("password", "", "destination password")
	pf.String("database", "", "destination database")
	pf.Duration("connect-timeout", storage.DefaultConnectTimeout, "destination connect timeout")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("metrics-backend", "none", "metrics backend (none, pushgateway, datadog)")
	pf.String("pushgateway-url", "http://localhost:9091", "Prometheus Pushgateway URL")
	pf.String("datadog-addr", "127.0.0.1:8125", "DogStatsD address")

	for name, key := range flagKeys {
		if err := a.v.BindPFlag(key, pf.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Migrate all tables from SQLite into the destination",
			Args:  cobra.NoArgs,
			RunE:  a.runMigrate,
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration and both connections without migrating",
			Args:  cobra.NoArgs,
			RunE:  a.runValidate,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "sqlite2mysql", version)
			},
		},
	)
	return root
}

// load resolves the configuration, validates it and installs the logger.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	a.log = log
	slog.SetDefault(log)

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errInvalidConfig
	}
	return nil
}

func (a *app) runMigrate(cmd *cobra.Command, _ []string) error {
	flush := setupMetrics(a.cfg, a.log)
	defer flush()

	rc := a.cfg.RunConfig()
	rc.Logger = a.log

	start := time.Now()
	sum, err := migrate.Run(context.Background(), rc)
	if sum != nil && a.cfg.Report != "" {
		if werr := sum.WriteReport(a.cfg.Report); werr != nil {
			a.log.Warn("write report failed", "path", a.cfg.Report, "err", werr)
		} else {
			a.log.Info("report written", "path", a.cfg.Report)
		}
	}
	if err != nil {
		return err
	}
	a.log.Debug("done", "elapsed", time.Since(start).Truncate(time.Millisecond))
	return nil
}

func (a *app) runValidate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	src, err := sqlite.Open(ctx, sqlite.Config{Path: a.cfg.Source.Path})
	if err != nil {
		return &migrate.ConnectionError{Role: "source", Err: err}
	}
	defer src.Close()

	tables, err := src.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list source tables: %w", err)
	}

	dst, err := storage.Open(ctx, a.cfg.StorageConfig())
	if err != nil {
		return &migrate.ConnectionError{Role: "destination", Err: err}
	}
	defer dst.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: source %s (%d tables), destination %s\n",
		a.cfg.Source.Path, len(tables), dst.Kind())
	return nil
}

func newLogger(w io.Writer, c config.Log) (*slog.Logger, error) {
	var level slog.Level
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", c.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", c.Format)
	}
}
