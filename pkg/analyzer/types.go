// Package analyzer runs the sanitizer aggregator over the logs of one or more
// package jobs and collects the results.
package analyzer

import (
	"time"

	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// Job is the test run of one package and the log files it wrote.
type Job struct {
	Package string
	Sources []string
}

// JobError records a job whose logs could not be read in full. Findings from
// lines read before the error are kept.
type JobError struct {
	Package string
	Err     error
}

// Error implements error.
func (e *JobError) Error() string {
	return "package " + e.Package + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *JobError) Unwrap() error {
	return e.Err
}

// AnalysisResult contains the complete analysis output.
type AnalysisResult struct {
	// Rows holds one entry per distinct (package, error name, stack trace key).
	Rows []sanitizer.Row

	// Warnings lists sections that never saw their SUMMARY line.
	Warnings []*sanitizer.UnterminatedSectionWarning

	// JobErrors lists jobs whose logs could not be read.
	JobErrors []*JobError

	// Stats are the aggregator counters across all jobs.
	Stats sanitizer.Stats

	// Metadata provides context about the analysis.
	Metadata AnalysisMetadata
}

// AnalysisMetadata provides context about the analysis run.
type AnalysisMetadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string

	// CodebaseMarker is the substring that selected key frames.
	CodebaseMarker string

	// FlushPolicy is what was done with unterminated sections.
	FlushPolicy sanitizer.FlushPolicy

	// Packages lists the packages that were analyzed, in order.
	Packages []string

	// Sources lists the log files that were analyzed.
	Sources []string

	// StartTime is when analysis began.
	StartTime time.Time

	// EndTime is when analysis completed.
	EndTime time.Time

	// LinesProcessed is the total number of log lines examined.
	LinesProcessed int
}

// TotalFindings returns the number of relevant stack traces counted.
func (r *AnalysisResult) TotalFindings() int {
	total := 0
	for _, row := range r.Rows {
		total += row.Count
	}
	return total
}

// HasFindings reports whether any relevant stack trace was counted.
func (r *AnalysisResult) HasFindings() bool {
	return len(r.Rows) > 0
}

// PackagesWithFindings returns the count of packages with at least one row.
func (r *AnalysisResult) PackagesWithFindings() int {
	seen := make(map[string]bool)
	for _, row := range r.Rows {
		seen[row.Package] = true
	}
	return len(seen)
}
