package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ccollicutt/sanreport/pkg/config"
	"github.com/ccollicutt/sanreport/pkg/parser"
	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// Analyzer feeds job logs through a sanitizer aggregator.
type Analyzer struct {
	cfg     *config.Config
	cleaner *parser.LineCleaner

	// Options
	packageFilter map[string]bool // nil means all packages
	flushPolicy   sanitizer.FlushPolicy
	logger        hclog.Logger
	configFile    string
}

// AnalyzerOption configures analyzer behavior.
type AnalyzerOption func(*Analyzer)

// WithPackageFilter limits analysis to the specified packages.
func WithPackageFilter(packages []string) AnalyzerOption {
	return func(a *Analyzer) {
		if len(packages) > 0 {
			a.packageFilter = make(map[string]bool)
			for _, p := range packages {
				a.packageFilter[p] = true
			}
		}
	}
}

// WithFlushPolicy overrides the configured policy for unterminated sections.
func WithFlushPolicy(policy sanitizer.FlushPolicy) AnalyzerOption {
	return func(a *Analyzer) {
		if policy != "" {
			a.flushPolicy = policy
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger hclog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithConfigFile records the configuration path in result metadata.
func WithConfigFile(path string) AnalyzerOption {
	return func(a *Analyzer) {
		a.configFile = path
	}
}

// NewAnalyzer creates a new analyzer from a validated configuration.
func NewAnalyzer(cfg *config.Config, opts ...AnalyzerOption) (*Analyzer, error) {
	if cfg.TraceTable() == nil {
		return nil, errors.New("configuration has not been validated")
	}

	a := &Analyzer{
		cfg:         cfg,
		cleaner:     parser.NewLineCleaner(cfg.CompiledStripPatterns(), cfg.StripANSI),
		flushPolicy: cfg.UnterminatedSections,
		logger:      hclog.NewNullLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	switch a.flushPolicy {
	case sanitizer.FlushDrop, sanitizer.FlushFinalize:
	default:
		return nil, fmt.Errorf("invalid flush policy %q", a.flushPolicy)
	}

	return a, nil
}

// Analyze processes the logs of each job in order and returns the aggregated
// result. A job whose logs cannot be read is recorded in JobErrors and the
// remaining jobs still run.
func (a *Analyzer) Analyze(ctx context.Context, jobs []Job) (*AnalysisResult, error) {
	result := &AnalysisResult{
		Metadata: AnalysisMetadata{
			ConfigFile:     a.configFile,
			CodebaseMarker: a.cfg.CodebaseMarker,
			FlushPolicy:    a.flushPolicy,
			StartTime:      time.Now(),
		},
	}

	selected := a.filterJobs(jobs)
	if len(jobs) > 0 && len(selected) == 0 {
		return nil, errors.New("no packages to analyze (check --package-filter)")
	}

	agg, err := sanitizer.NewAggregator(
		sanitizer.WithCodebaseMarker(a.cfg.CodebaseMarker),
		sanitizer.WithTraceTable(a.cfg.TraceTable()),
		sanitizer.WithLogger(a.logger.Named("aggregator")),
	)
	if err != nil {
		return nil, fmt.Errorf("creating aggregator: %w", err)
	}

	for _, job := range selected {
		if err := a.runJob(ctx, agg, job, result); err != nil {
			return nil, err
		}
	}

	result.Rows = agg.Report()
	result.Stats = agg.Stats()
	result.Metadata.LinesProcessed = result.Stats.LinesProcessed
	result.Metadata.EndTime = time.Now()

	a.logger.Debug("analysis complete", "packages", len(result.Metadata.Packages),
		"rows", len(result.Rows), "warnings", len(result.Warnings), "job_errors", len(result.JobErrors))

	return result, nil
}

// runJob streams one job's logs into agg. Only context cancellation is
// returned; read errors are recorded on result.
func (a *Analyzer) runJob(ctx context.Context, agg *sanitizer.Aggregator, job Job, result *AnalysisResult) error {
	logger := a.logger.With("package", job.Package)
	logger.Debug("analyzing package", "sources", len(job.Sources))

	agg.SetPackage(job.Package)
	result.Metadata.Packages = append(result.Metadata.Packages, job.Package)

	source := parser.NewFileSource(job.Sources, a.cleaner)
	defer source.Close()

	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil {
			logger.Info("could not read sanitizer log", "error", err)
			result.JobErrors = append(result.JobErrors, &JobError{Package: job.Package, Err: err})
			break
		}

		if !seen[line.Source] {
			seen[line.Source] = true
			result.Metadata.Sources = append(result.Metadata.Sources, line.Source)
		}

		agg.AddLine(line.Content)
	}

	result.Warnings = append(result.Warnings, agg.Flush(a.flushPolicy)...)
	return nil
}

func (a *Analyzer) filterJobs(jobs []Job) []Job {
	if a.packageFilter == nil {
		return jobs
	}
	var selected []Job
	for _, job := range jobs {
		if a.packageFilter[job.Package] {
			selected = append(selected, job)
		}
	}
	return selected
}
