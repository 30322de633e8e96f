package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/sanreport/internal/logging"
	"github.com/ccollicutt/sanreport/pkg/analyzer"
	"github.com/ccollicutt/sanreport/pkg/config"
	"github.com/ccollicutt/sanreport/pkg/output"
	"github.com/ccollicutt/sanreport/pkg/sanitizer"
	"github.com/ccollicutt/sanreport/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	Output        string
	LogBase       string
	Package       string
	Logs          []string
	Marker        string
	ReportFile    string
	Flush         string
	PackageFilter []string
	LogLevel      string
	LogJSON       bool
	Verbose       bool
	Quiet         bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
	WebhookFormat  string
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [config-file]",
		Short: "Count sanitizer findings in test logs",
		Long: `Analyze sanitizer output in test logs and count findings per package,
error name and stack trace key.

Logs come from a colcon-style log directory (--log-base or log_base), where
each package subdirectory holds a stdout_stderr.log, and from explicit jobs
(--package with --log, or jobs in the configuration file). Flags override
the configuration file. Without a configuration file the CSV report is also
written to sanitizer_report.csv.

Exit codes:
  0 - No sanitizer findings
  1 - Sanitizer findings reported
  2 - Configuration or runtime error

Example:
  sanreport analyze --log-base log/latest_test
  sanreport analyze --package rcutils --log build/rcutils/test.log -o csv
  sanreport analyze sanreport.yaml --package-filter rclcpp,rcl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	// Flags
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output format (text|json|csv), overrides report.format")
	cmd.Flags().StringVar(&opts.LogBase, "log-base", "", "Log directory with one subdirectory per package")
	cmd.Flags().StringVar(&opts.Package, "package", "", "Package name for the files given with --log")
	cmd.Flags().StringSliceVar(&opts.Logs, "log", nil, "Log file or glob for --package (can be repeated, - for stdin)")
	cmd.Flags().StringVar(&opts.Marker, "marker", "", "Path substring identifying frames of the codebase under test")
	cmd.Flags().StringVar(&opts.ReportFile, "report-file", "", "Also write the CSV report to this file")
	cmd.Flags().StringVar(&opts.Flush, "flush", "", "Unterminated sections at end of a log (drop|finalize)")
	cmd.Flags().StringSliceVar(&opts.PackageFilter, "package-filter", nil, "Analyze these packages only (can be repeated)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Diagnostic log level (trace|debug|info|warn|error|off)")
	cmd.Flags().BoolVar(&opts.LogJSON, "log-json", false, "Write diagnostic logs as JSON lines")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show full stack trace keys and processing statistics")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_findings", "When to fire webhook (on_findings|always|never)")
	cmd.Flags().StringVar(&opts.WebhookFormat, "webhook-format", "json", "Webhook body format (json|csv)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var configPath string
	if len(args) == 1 {
		configPath = args[0]
	}

	cfg, err := loadAnalyzeConfig(ctx, configPath, opts, cmd.Flags().Changed("report-file"))
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		JSON:   cfg.Logging.JSON,
		Output: cmd.ErrOrStderr(),
	})

	jobs, err := analyzer.JobsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("collecting job logs: %w", err)
	}
	if len(jobs) == 0 {
		logger.Warn("no job logs found", "log_base", cfg.LogBase, "file_name", cfg.LogFileName)
	}

	a, err := analyzer.NewAnalyzer(cfg,
		analyzer.WithPackageFilter(opts.PackageFilter),
		analyzer.WithFlushPolicy(sanitizer.FlushPolicy(opts.Flush)),
		analyzer.WithLogger(logger.Named("analyzer")),
		analyzer.WithConfigFile(configPath),
	)
	if err != nil {
		return fmt.Errorf("creating analyzer: %w", err)
	}

	result, err := a.Analyze(ctx, jobs)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	report := output.NewReport(result, configPath)

	formatter, err := createFormatter(string(cfg.Report.Format), opts)
	if err != nil {
		return err
	}

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if cfg.Report.Path != "" {
		if err := output.WriteFile(ctx, output.NewCSVFormatter(output.FormatOptions{}), report, cfg.Report.Path); err != nil {
			return err
		}
		logger.Info("wrote report", "path", cfg.Report.Path, "rows", len(report.Rows))
	}

	// Send webhooks (errors logged but don't fail analysis)
	sendWebhooks(ctx, cfg, report, logger.Named("webhook"), cmd.ErrOrStderr())

	if report.HasFindings() {
		ExitCode = 1
	}

	return nil
}

// loadAnalyzeConfig loads the configuration file, if any, and applies flags
// on top of it.
func loadAnalyzeConfig(ctx context.Context, configPath string, opts *AnalyzeOptions, reportFileSet bool) (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(ctx, configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
		cfg.ApplyEnvironmentOverrides()
		cfg.Report.Path = config.DefaultReportFileName
	}

	if (opts.Package == "") != (len(opts.Logs) == 0) {
		return nil, errors.New("--package and --log must be used together")
	}
	if opts.Package != "" {
		cfg.Jobs = append(cfg.Jobs, config.JobConfig{
			Package:    opts.Package,
			LogSources: opts.Logs,
		})
	}

	if opts.LogBase != "" {
		cfg.LogBase = opts.LogBase
	}
	if opts.Marker != "" {
		cfg.CodebaseMarker = opts.Marker
	}
	if opts.Output != "" {
		cfg.Report.Format = config.ReportFormat(opts.Output)
	}
	if reportFileSet {
		cfg.Report.Path = opts.ReportFile
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogJSON {
		cfg.Logging.JSON = true
	}
	cfg.Webhooks = collectWebhooks(cfg, opts)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func createFormatter(format string, opts *AnalyzeOptions) (output.Formatter, error) {
	return output.NewFormatter(format, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are reported on stderr but don't fail the analysis.
func sendWebhooks(ctx context.Context, cfg *config.Config, report *output.Report, logger hclog.Logger, stderr io.Writer) {
	for _, wh := range cfg.Webhooks {
		// Check trigger condition
		if !shouldFireWebhook(wh.Trigger, report.HasFindings()) {
			continue
		}

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		client := webhook.NewClient(
			webhook.WithRetries(wh.Retries),
			webhook.WithLogger(logger.With("webhook", name)),
		)
		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
			Format:  string(wh.Format),
		})

		if resp.Success() {
			_, _ = fmt.Fprintf(stderr, "Webhook %s: sent (%d, %s)\n", name, resp.StatusCode, resp.Duration)
		} else {
			_, _ = fmt.Fprintf(stderr, "Webhook %s: failed (%v)\n", name, resp.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with the CLI webhook. The result
// goes through config.Validate like any configured webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)

	// Add config file webhooks
	webhooks = append(webhooks, cfg.Webhooks...)

	// Add CLI webhook if specified
	if opts.WebhookURL != "" {
		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
			Format:  config.ReportFormat(opts.WebhookFormat),
		})
	}

	return webhooks
}

// shouldFireWebhook determines if a webhook should fire based on trigger and findings.
func shouldFireWebhook(trigger config.WebhookTrigger, hasFindings bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	case config.WebhookTriggerOnFindings:
		return hasFindings
	default:
		// Default to on_findings
		return hasFindings
	}
}
