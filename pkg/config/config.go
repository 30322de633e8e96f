package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// Load reads and validates a configuration file. Files ending in .toml are
// parsed as TOML, everything else as YAML.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.ApplyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors, fills in defaults and compiles
// regex patterns.
func Validate(cfg *Config) error {
	if cfg.CodebaseMarker == "" {
		return errors.New("codebase_marker is required")
	}

	if cfg.LogBase == "" && len(cfg.Jobs) == 0 {
		return errors.New("log_base or jobs: at least one input is required")
	}
	if cfg.LogFileName == "" {
		cfg.LogFileName = DefaultLogFileName
	}

	for i := range cfg.Jobs {
		if err := validateJob(&cfg.Jobs[i]); err != nil {
			return fmt.Errorf("jobs[%d] (%s): %w", i, cfg.Jobs[i].Package, err)
		}
	}

	cfg.compiledStripPatterns = make([]*regexp.Regexp, 0, len(cfg.StripPatterns))
	for i, p := range cfg.StripPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("strip_patterns[%d]: invalid pattern: %w", i, err)
		}
		cfg.compiledStripPatterns = append(cfg.compiledStripPatterns, re)
	}

	table, err := buildTraceTable(cfg.RelevantTraces)
	if err != nil {
		return fmt.Errorf("relevant_traces: %w", err)
	}
	cfg.traceTable = table

	switch cfg.UnterminatedSections {
	case "":
		cfg.UnterminatedSections = sanitizer.FlushDrop
	case sanitizer.FlushDrop, sanitizer.FlushFinalize:
	default:
		return fmt.Errorf("unterminated_sections: invalid policy %q (must be drop or finalize)", cfg.UnterminatedSections)
	}

	if err := validateReport(&cfg.Report); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if hclog.LevelFromString(cfg.Logging.Level) == hclog.NoLevel {
		return fmt.Errorf("logging.level: invalid level %q", cfg.Logging.Level)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func validateJob(job *JobConfig) error {
	if job.Package == "" {
		return errors.New("package is required")
	}
	if len(job.LogSources) == 0 {
		return errors.New("log_sources: at least one log source is required")
	}
	return nil
}

// buildTraceTable extends the default table. Entries are applied in name order
// so error messages are stable.
func buildTraceTable(traces map[string][]string) (*sanitizer.TraceTable, error) {
	table := sanitizer.DefaultTraceTable()

	names := make([]string, 0, len(traces))
	for name := range traces {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if name == "" {
			return nil, errors.New("error name must not be empty")
		}
		if err := table.Set(name, traces[name]...); err != nil {
			return nil, err
		}
	}

	return table, nil
}

func validateReport(r *ReportConfig) error {
	if r.Format == "" {
		r.Format = ReportFormatText
	}
	switch r.Format {
	case ReportFormatText, ReportFormatJSON, ReportFormatCSV:
		return nil
	default:
		return fmt.Errorf("invalid format %q (must be text, json, or csv)", r.Format)
	}
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnFindings
	case WebhookTriggerOnFindings, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_findings, always, or never)", wh.Trigger)
	}

	switch wh.Format {
	case "":
		wh.Format = ReportFormatJSON
	case ReportFormatJSON, ReportFormatCSV:
	default:
		return fmt.Errorf("invalid format %q (must be json or csv)", wh.Format)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	if wh.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", wh.Retries)
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}
	return s
}
