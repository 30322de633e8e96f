package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/sanreport/pkg/config"
	"github.com/ccollicutt/sanreport/pkg/detector"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	WriteConfig string
	Config      string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Inspect a log file and suggest configuration",
		Long: `Sample a test log and report the sanitizer output found in it.

Reports:
  - Sanitizers and error names that reported
  - Text the logging system put in front of section headers
  - Error names counted by first stack trace only (no relevant trace patterns)
  - Codebase marker candidates from stack frame paths
  - CI timestamps and escape sequences that must be stripped

Prints a ready-to-use YAML configuration snippet. Optionally generates a
starter config file with --write-config.

Example:
  sanreport detect log/latest_test/rcutils/stdout_stderr.log
  sanreport detect --sample 50000 ci-job.log
  sanreport detect -w sanreport.yaml ci-job.log
  sanreport detect --config sanreport.yaml ci-job.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "Existing config whose relevant_traces are taken into account")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	// Check file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	detectorOpts := []detector.Option{detector.WithSampleSize(opts.SampleSize)}
	if opts.Config != "" {
		cfg, err := config.Load(ctx, opts.Config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		detectorOpts = append(detectorOpts, detector.WithTraceTable(cfg.TraceTable()))
	}

	d := detector.New(detectorOpts...)

	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, logFile, opts.WriteConfig, out); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(result, logFile, out)
	case "text":
		return outputDetectText(result, logFile, out)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputDetectText(result *detector.DetectionResult, logFile string, w io.Writer) error {
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("=== Sanitizer Log Detection ===\n\n")
	p("File: %s\n", logFile)
	p("Lines sampled: %d\n", result.SampledLines)
	p("Section headers: %d\n", result.Headers)
	p("SUMMARY lines: %d\n\n", result.Summaries)

	if !result.HasSections() {
		p("No sanitizer sections found.\n\n")
		p("Tip: Sections start with a line like\n")
		p("  ==1234==ERROR: AddressSanitizer: ...\n")
		p("or\n")
		p("  WARNING: ThreadSanitizer: ...\n")
		p("Check that the tests were built with a sanitizer enabled.\n")
	} else {
		printCounts(w, "Sanitizers", result.Tools)
		printCounts(w, "Error names", result.ErrorNames)
		if len(result.UntabledErrorNames) > 0 {
			p("Counted by first stack trace only (add relevant_traces to refine):\n")
			for _, name := range result.UntabledErrorNames {
				p("  - %s\n", name)
			}
			p("\n")
		}
		printCounts(w, "Line prefixes", quoteValues(result.Prefixes))
		if n := result.Unterminated(); n > 0 {
			p("WARNING: %d section(s) without a SUMMARY line in the sample.\n", n)
			p("Consider unterminated_sections: finalize if the test process crashed.\n\n")
		}
	}

	printCounts(w, "Codebase marker candidates", result.MarkerCandidates)

	if result.TimestampedLines > 0 {
		p("CI timestamps: %d lines\n", result.TimestampedLines)
	}
	if result.ANSILines > 0 {
		p("Escape sequences: %d lines\n", result.ANSILines)
	}

	p("\n--- Configuration snippet (copy to your config file) ---\n\n")
	p("%s\n", configSnippet(result))

	return nil
}

func printCounts(w io.Writer, title string, counts []detector.Count) {
	if len(counts) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%s:\n", title)
	for _, c := range counts {
		_, _ = fmt.Fprintf(w, "  %5dx %s\n", c.Count, c.Value)
	}
	_, _ = fmt.Fprintln(w)
}

func quoteValues(counts []detector.Count) []detector.Count {
	quoted := make([]detector.Count, len(counts))
	for i, c := range counts {
		quoted[i] = detector.Count{Value: fmt.Sprintf("%q", c.Value), Count: c.Count}
	}
	return quoted
}

// configSnippet renders the settings the sample calls for.
func configSnippet(result *detector.DetectionResult) string {
	var b strings.Builder

	marker := result.SuggestedMarker()
	if marker == "" {
		marker = config.DefaultCodebaseMarker
	}
	fmt.Fprintf(&b, "codebase_marker: %s\n", marker)

	if result.StripANSI() {
		b.WriteString("strip_ansi: true\n")
	}
	if patterns := result.StripPatterns(); len(patterns) > 0 {
		b.WriteString("strip_patterns:\n")
		for _, p := range patterns {
			fmt.Fprintf(&b, "  - '%s'\n", p)
		}
	}
	if result.Unterminated() > 0 {
		b.WriteString("unterminated_sections: finalize\n")
	}

	return b.String()
}

// JSONCount is a counted value in JSON output.
type JSONCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File               string      `json:"file"`
	SampledLines       int         `json:"sampled_lines"`
	Headers            int         `json:"headers"`
	Summaries          int         `json:"summaries"`
	Tools              []JSONCount `json:"tools"`
	ErrorNames         []JSONCount `json:"error_names"`
	Prefixes           []JSONCount `json:"prefixes"`
	MarkerCandidates   []JSONCount `json:"marker_candidates"`
	UntabledErrorNames []string    `json:"untabled_error_names,omitempty"`
	SuggestedMarker    string      `json:"suggested_marker,omitempty"`
	StripPatterns      []string    `json:"strip_patterns,omitempty"`
	StripANSI          bool        `json:"strip_ansi"`
}

func toJSONCounts(counts []detector.Count) []JSONCount {
	out := make([]JSONCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, JSONCount{Value: c.Value, Count: c.Count})
	}
	return out
}

func outputDetectJSON(result *detector.DetectionResult, logFile string, w io.Writer) error {
	out := JSONOutput{
		File:               logFile,
		SampledLines:       result.SampledLines,
		Headers:            result.Headers,
		Summaries:          result.Summaries,
		Tools:              toJSONCounts(result.Tools),
		ErrorNames:         toJSONCounts(result.ErrorNames),
		Prefixes:           toJSONCounts(result.Prefixes),
		MarkerCandidates:   toJSONCounts(result.MarkerCandidates),
		UntabledErrorNames: result.UntabledErrorNames,
		SuggestedMarker:    result.SuggestedMarker(),
		StripPatterns:      result.StripPatterns(),
		StripANSI:          result.StripANSI(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file from the detection result.
func writeStarterConfig(result *detector.DetectionResult, logFile, configPath string, w io.Writer) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	content := generateStarterConfig(logFile, result)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template. The package name is
// taken from the log's directory, as in a colcon log layout.
func generateStarterConfig(logFile string, result *detector.DetectionResult) string {
	// Get absolute path for log file if possible
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}
	pkg := filepath.Base(filepath.Dir(absLogFile))

	return fmt.Sprintf(`# sanreport configuration
# Generated by: sanreport detect
# Sections found: %d (%d sampled lines)

%s
# A colcon log directory with one subdirectory per package:
# log_base: log/latest_test

jobs:
  - package: %s
    log_sources:
      - %s
      # Add more log files or use globs:
      # - build/%s/test_results/*.log

# Begin patterns of the stack traces that matter, per error name.
# Error names without an entry are keyed by their first stack trace.
# relevant_traces:
#   heap-use-after-free on address:
#     - '^(?:READ|WRITE) of size \d+'

report:
  format: text
  path: %s
`, result.Headers, result.SampledLines,
		configSnippet(result),
		pkg,
		absLogFile,
		pkg,
		config.DefaultReportFileName)
}
