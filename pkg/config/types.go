// Package config provides configuration loading and validation for sanreport.
package config

import (
	"regexp"
	"time"

	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	// CodebaseMarker is the path substring that identifies frames from the
	// codebase under test. The first such frame keys a stack trace.
	CodebaseMarker string `yaml:"codebase_marker" toml:"codebase_marker"`

	// LogBase is a colcon-style log directory with one subdirectory per package.
	LogBase string `yaml:"log_base,omitempty" toml:"log_base"`

	// LogFileName is the per-package log file under LogBase.
	LogFileName string `yaml:"log_file_name,omitempty" toml:"log_file_name"`

	// Jobs lists packages and their log files explicitly.
	Jobs []JobConfig `yaml:"jobs,omitempty" toml:"jobs"`

	// StripPatterns are removed from every line before parsing.
	StripPatterns []string `yaml:"strip_patterns,omitempty" toml:"strip_patterns"`

	// StripANSI removes terminal escape sequences before parsing.
	StripANSI bool `yaml:"strip_ansi,omitempty" toml:"strip_ansi"`

	// RelevantTraces adds or replaces begin patterns per error name.
	RelevantTraces map[string][]string `yaml:"relevant_traces,omitempty" toml:"relevant_traces"`

	// UnterminatedSections is "drop" (default) or "finalize".
	UnterminatedSections sanitizer.FlushPolicy `yaml:"unterminated_sections,omitempty" toml:"unterminated_sections"`

	Report   ReportConfig    `yaml:"report,omitempty" toml:"report"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty" toml:"webhooks"`
	Logging  LoggingConfig   `yaml:"logging,omitempty" toml:"logging"`

	compiledStripPatterns []*regexp.Regexp
	traceTable            *sanitizer.TraceTable
}

// CompiledStripPatterns returns the compiled strip patterns (populated during validation).
func (c *Config) CompiledStripPatterns() []*regexp.Regexp {
	return c.compiledStripPatterns
}

// TraceTable returns the default table extended with RelevantTraces
// (populated during validation).
func (c *Config) TraceTable() *sanitizer.TraceTable {
	return c.traceTable
}

// JobConfig is one package and the log files its tests wrote.
type JobConfig struct {
	Package    string   `yaml:"package" toml:"package"`
	LogSources []string `yaml:"log_sources" toml:"log_sources"`
}

// ReportFormat is the output format of the report.
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
)

// ReportConfig controls where and how the report is written.
type ReportConfig struct {
	// Format is the stdout format. Defaults to text.
	Format ReportFormat `yaml:"format,omitempty" toml:"format"`

	// Path, if set, also writes the CSV report to this file.
	Path string `yaml:"path,omitempty" toml:"path"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error, off.
	Level string `yaml:"level,omitempty" toml:"level"`

	// JSON writes log lines as JSON objects.
	JSON bool `yaml:"json,omitempty" toml:"json"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFindings fires only when the report has rows (default).
	WebhookTriggerOnFindings WebhookTrigger = "on_findings"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty" toml:"name"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" toml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty" toml:"token"`

	// Trigger defaults to "on_findings".
	Trigger WebhookTrigger `yaml:"trigger,omitempty" toml:"trigger"`

	// Format is the request body format, json (default) or csv.
	Format ReportFormat `yaml:"format,omitempty" toml:"format"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout"`

	// Retries is how many times a failed or 5xx request is retried.
	Retries int `yaml:"retries,omitempty" toml:"retries"`
}
