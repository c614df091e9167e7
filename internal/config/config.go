// Package config defines the run configuration and loads it through viper.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// config file (YAML, JSON or TOML), environment variables prefixed with
// SQLITE2MYSQL_ (dots become underscores, so destination.password is
// SQLITE2MYSQL_DESTINATION_PASSWORD), and finally command-line flags bound by
// the CLI.
//
// Example (YAML):
//
//	job: nightly
//	source:
//	  path: database.sqlite
//	  exclude: ["sqlite_*"]
//	destination:
//	  kind: mysql
//	  host: localhost
//	  user: app
//	  database: app
//	report: migration-report.json
package config

import (
	"fmt"
	"strings"
	"time"

	"sqlite2mysql/internal/datasource/sqlite"
	"sqlite2mysql/internal/migrate"
	"sqlite2mysql/internal/storage"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "SQLITE2MYSQL"

// Config is the complete, typed configuration of a run.
type Config struct {
	// Job names the run in logs, metrics and the report.
	Job string `mapstructure:"job"`

	// Report, when set, is the path the JSON run summary is written to.
	Report string `mapstructure:"report"`

	Source      Source      `mapstructure:"source"`
	Destination Destination `mapstructure:"destination"`
	Log         Log         `mapstructure:"log"`
	Metrics     Metrics     `mapstructure:"metrics"`
}

// Source configures the SQLite database being read.
type Source struct {
	Path    string   `mapstructure:"path"`
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
}

// Destination configures the store tables are copied into.
type Destination struct {
	Kind           string            `mapstructure:"kind"`
	DSN            string            `mapstructure:"dsn"`
	Host           string            `mapstructure:"host"`
	Port           int               `mapstructure:"port"`
	User           string            `mapstructure:"user"`
	Password       string            `mapstructure:"password"`
	Database       string            `mapstructure:"database"`
	Params         map[string]string `mapstructure:"params"`
	ConnectTimeout time.Duration     `mapstructure:"connect_timeout"`
}

// Log configures the slog handler installed by the CLI.
type Log struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	Backend        string   `mapstructure:"backend"` // none, pushgateway, datadog
	PushgatewayURL string   `mapstructure:"pushgateway_url"`
	DatadogAddr    string   `mapstructure:"datadog_addr"`
	Namespace      string   `mapstructure:"namespace"`
	Tags           []string `mapstructure:"tags"`
}

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("job", "sqlite2mysql")
	v.SetDefault("report", "")
	v.SetDefault("source.path", "database.sqlite")
	v.SetDefault("source.include", []string{})
	v.SetDefault("source.exclude", []string{})
	v.SetDefault("destination.kind", "mysql")
	v.SetDefault("destination.dsn", "")
	v.SetDefault("destination.host", "localhost")
	v.SetDefault("destination.port", 0)
	v.SetDefault("destination.user", "")
	v.SetDefault("destination.password", "")
	v.SetDefault("destination.database", "")
	v.SetDefault("destination.params", map[string]string{})
	v.SetDefault("destination.connect_timeout", storage.DefaultConnectTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "http://localhost:9091")
	v.SetDefault("metrics.datadog_addr", "127.0.0.1:8125")
	v.SetDefault("metrics.namespace", "sqlite2mysql.")
	v.SetDefault("metrics.tags", []string{})
}

// New returns a viper instance with defaults and environment binding set up.
// file, when non-empty, is read by Load.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
	}
	return v
}

// Load reads the config file (if one was set on v) and decodes everything
// into a Config.
func Load(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}

// StorageConfig returns the destination connection parameters.
func (c Config) StorageConfig() storage.Config {
	d := c.Destination
	return storage.Config{
		Kind:           d.Kind,
		DSN:            d.DSN,
		Host:           d.Host,
		Port:           d.Port,
		User:           d.User,
		Password:       d.Password,
		Database:       d.Database,
		Params:         d.Params,
		ConnectTimeout: d.ConnectTimeout,
	}
}

// RunConfig assembles the migrate.RunConfig for this configuration. The
// logger is left for the caller to set.
func (c Config) RunConfig() migrate.RunConfig {
	return migrate.RunConfig{
		Source:      sqlite.Config{Path: c.Source.Path},
		Destination: c.StorageConfig(),
		Options: migrate.Options{
			Job:     c.Job,
			Include: c.Source.Include,
			Exclude: c.Source.Exclude,
		},
	}
}
