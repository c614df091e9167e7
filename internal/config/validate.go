package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"sqlite2mysql/internal/storage"
	_ "sqlite2mysql/internal/storage/all"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block the run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// config (e.g. "destination.database").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over c. It does not touch the network or
// the filesystem; connection problems surface when the stores are opened.
func Validate(c Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; runs will be labelled \"sqlite2mysql\"",
		})
	}
	issues = append(issues, validateSource(c.Source)...)
	issues = append(issues, validateDestination(c.Destination)...)
	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue
	if strings.TrimSpace(s.Path) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.path",
			Message:  "source path must not be empty",
		})
	}
	issues = append(issues, validatePatterns("source.include", s.Include)...)
	issues = append(issues, validatePatterns("source.exclude", s.Exclude)...)
	return issues
}

func validatePatterns(p string, patterns []string) []Issue {
	var issues []Issue
	for i, pat := range patterns {
		if _, err := path.Match(pat, ""); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s[%d]", p, i),
				Message:  fmt.Sprintf("invalid pattern %q: %v", pat, err),
			})
		}
	}
	return issues
}

func validateDestination(d Destination) []Issue {
	var issues []Issue

	kind := strings.ToLower(strings.TrimSpace(d.Kind))
	if kind == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "destination.kind",
			Message:  "destination kind must not be empty",
		})
	}
	if !knownKind(kind) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "destination.kind",
			Message:  fmt.Sprintf("unknown destination kind %q (registered: %s)", d.Kind, strings.Join(storage.Kinds(), ", ")),
		})
	}

	if d.DSN == "" && strings.TrimSpace(d.Database) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "destination.database",
			Message:  "database is required when no dsn is given",
		})
	}
	if d.DSN != "" && ((d.Host != "" && d.Host != "localhost") || d.User != "" || d.Database != "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "destination.dsn",
			Message:  "dsn is set; host, user and database fields are ignored",
		})
	}
	if d.Port < 0 || d.Port > 65535 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "destination.port",
			Message:  fmt.Sprintf("port %d out of range", d.Port),
		})
	}
	if d.ConnectTimeout < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "destination.connect_timeout",
			Message:  "connect_timeout must not be negative",
		})
	}
	if kind != "sqlite" && d.DSN == "" && d.User == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "destination.user",
			Message:  "user is empty; the server default account will be used",
		})
	}
	return issues
}

func knownKind(kind string) bool {
	for _, k := range storage.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func validateLog(l Log) []Issue {
	var issues []Issue
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.level",
			Message:  fmt.Sprintf("unsupported level %q (want debug, info, warn or error)", l.Level),
		})
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.format",
			Message:  fmt.Sprintf("unsupported format %q (want text or json)", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch strings.ToLower(m.Backend) {
	case "", "none":
	case "pushgateway", "prom", "prometheus":
		if u, err := url.Parse(m.PushgatewayURL); err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  fmt.Sprintf("invalid pushgateway url %q", m.PushgatewayURL),
			})
		}
	case "datadog", "dogstatsd":
		if strings.TrimSpace(m.DatadogAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.datadog_addr",
				Message:  "datadog_addr must not be empty",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unsupported metrics backend %q (want none, pushgateway or datadog)", m.Backend),
		})
	}
	return issues
}
