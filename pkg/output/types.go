// Package output provides formatting and output generation for sanitizer reports.
package output

import (
	"time"

	"github.com/ccollicutt/sanreport/pkg/analyzer"
	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// Report is the complete analysis output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Rows holds one entry per distinct finding, sorted.
	Rows []sanitizer.Row `json:"rows"`

	// Warnings lists sections that never saw their SUMMARY line.
	Warnings []Warning `json:"warnings,omitempty"`

	// JobErrors lists packages whose logs could not be read.
	JobErrors []JobError `json:"job_errors,omitempty"`

	// Metadata provides context about the analysis.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	PackagesAnalyzed     int `json:"packages_analyzed"`
	PackagesWithFindings int `json:"packages_with_findings"`

	// DistinctFindings is the number of rows.
	DistinctFindings int `json:"distinct_findings"`

	// TotalFindings is the sum of row counts.
	TotalFindings int `json:"total_findings"`

	LinesProcessed    int `json:"lines_processed"`
	SectionsCompleted int `json:"sections_completed"`
	SectionsFailed    int `json:"sections_failed"`
	SectionsDropped   int `json:"sections_dropped"`
	StackTracesFailed int `json:"stack_traces_failed"`
}

// Warning describes a section that was still open when its log ended.
type Warning struct {
	Package   string `json:"package"`
	SectionID string `json:"section_id"`
	Prefix    string `json:"prefix"`
	Header    string `json:"header"`
	Lines     int    `json:"lines"`
}

// JobError describes a package whose logs could not be read.
type JobError struct {
	Package string `json:"package"`
	Error   string `json:"error"`
}

// Metadata provides context about the analysis run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	CodebaseMarker string                `json:"codebase_marker"`
	FlushPolicy    sanitizer.FlushPolicy `json:"flush_policy"`

	// Packages lists the packages that were analyzed.
	Packages []string `json:"packages"`

	// Sources lists the log files that were analyzed.
	Sources []string `json:"sources"`

	// AnalyzedAt is when the analysis was performed.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the analysis took.
	Duration time.Duration `json:"duration"`
}

// NewReport creates a Report from analysis results.
func NewReport(result *analyzer.AnalysisResult, configFile string) *Report {
	if configFile == "" {
		configFile = result.Metadata.ConfigFile
	}

	report := &Report{
		Rows: result.Rows,
		Metadata: Metadata{
			ConfigFile:     configFile,
			CodebaseMarker: result.Metadata.CodebaseMarker,
			FlushPolicy:    result.Metadata.FlushPolicy,
			Packages:       result.Metadata.Packages,
			Sources:        result.Metadata.Sources,
			AnalyzedAt:     result.Metadata.EndTime,
			Duration:       result.Metadata.EndTime.Sub(result.Metadata.StartTime),
		},
		Summary: Summary{
			PackagesAnalyzed:     len(result.Metadata.Packages),
			PackagesWithFindings: result.PackagesWithFindings(),
			DistinctFindings:     len(result.Rows),
			TotalFindings:        result.TotalFindings(),
			LinesProcessed:       result.Metadata.LinesProcessed,
			SectionsCompleted:    result.Stats.SectionsCompleted,
			SectionsFailed:       result.Stats.SectionsFailed,
			SectionsDropped:      result.Stats.SectionsDropped,
			StackTracesFailed:    result.Stats.StackTracesFailed,
		},
	}

	if report.Rows == nil {
		report.Rows = []sanitizer.Row{}
	}

	for _, w := range result.Warnings {
		report.Warnings = append(report.Warnings, Warning{
			Package:   w.Package,
			SectionID: w.SectionID.String(),
			Prefix:    w.Prefix,
			Header:    w.Header,
			Lines:     w.Lines,
		})
	}

	for _, e := range result.JobErrors {
		report.JobErrors = append(report.JobErrors, JobError{
			Package: e.Package,
			Error:   e.Err.Error(),
		})
	}

	return report
}

// HasFindings returns true if any relevant stack trace was counted.
func (r *Report) HasFindings() bool {
	return r.Summary.TotalFindings > 0
}
