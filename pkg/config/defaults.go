package config

import (
	"os"
	"time"

	"github.com/ccollicutt/sanreport/pkg/parser"
	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// Default values for configuration.
const (
	DefaultCodebaseMarker = sanitizer.DefaultCodebaseMarker
	DefaultLogFileName    = parser.DefaultLogFileName
	DefaultReportFileName = "sanitizer_report.csv"
	DefaultLogLevel       = "info"
	DefaultWebhookTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvCodebaseMarker = "SANREPORT_CODEBASE_MARKER"
	EnvLogBase        = "SANREPORT_LOG_BASE"
	EnvLogLevel       = "SANREPORT_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CodebaseMarker:       DefaultCodebaseMarker,
		LogFileName:          DefaultLogFileName,
		UnterminatedSections: sanitizer.FlushDrop,
		Report: ReportConfig{
			Format: ReportFormatText,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ApplyEnvironmentOverrides applies environment variable overrides to the config.
// Load calls it; callers building a Config by hand can too.
func (c *Config) ApplyEnvironmentOverrides() {
	if marker := os.Getenv(EnvCodebaseMarker); marker != "" {
		c.CodebaseMarker = marker
	}
	if base := os.Getenv(EnvLogBase); base != "" {
		c.LogBase = base
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}
