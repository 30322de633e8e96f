package output

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"

	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// maxKeyWidth is where stack trace keys are cut in non-verbose text output.
const maxKeyWidth = 160

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "sanreport: %d packages analyzed, %d with findings, %d distinct findings\n",
		report.Summary.PackagesAnalyzed,
		report.Summary.PackagesWithFindings,
		report.Summary.DistinctFindings)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Sanitizer Report ===")
	fmt.Fprintln(w)

	byPackage := make(map[string][]sanitizer.Row)
	for _, row := range report.Rows {
		byPackage[row.Package] = append(byPackage[row.Package], row)
	}

	for _, pkg := range reportPackages(report) {
		f.formatPackage(pkg, byPackage[pkg], w)
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintln(w, "Unterminated sections:")
		for _, warn := range report.Warnings {
			fmt.Fprintf(w, "  - [%s] %q (%d lines)\n", warn.Package, warn.Header, warn.Lines)
		}
		fmt.Fprintln(w)
	}

	if len(report.JobErrors) > 0 {
		fmt.Fprintln(w, "Unreadable logs:")
		for _, e := range report.JobErrors {
			fmt.Fprintf(w, "  - [%s] %s\n", e.Package, e.Error)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d packages analyzed, %d with findings, %d distinct findings (%d total)\n",
		report.Summary.PackagesAnalyzed,
		report.Summary.PackagesWithFindings,
		report.Summary.DistinctFindings,
		report.Summary.TotalFindings)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Lines processed: %d\n", report.Summary.LinesProcessed)
		fmt.Fprintf(w, "Sections: %d completed, %d failed, %d dropped\n",
			report.Summary.SectionsCompleted,
			report.Summary.SectionsFailed,
			report.Summary.SectionsDropped)
		fmt.Fprintf(w, "Stack traces without a %s frame: %d\n",
			report.Metadata.CodebaseMarker, report.Summary.StackTracesFailed)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatPackage(pkg string, rows []sanitizer.Row, w io.Writer) {
	fmt.Fprintf(w, "[%s]\n", pkg)

	if len(rows) == 0 {
		fmt.Fprintln(w, "  No findings")
		fmt.Fprintln(w)
		return
	}

	var errorName string
	for _, row := range rows {
		if row.ErrorName != errorName {
			errorName = row.ErrorName
			fmt.Fprintf(w, "  %s\n", errorName)
		}
		key := row.StackTraceKey
		if !f.opts.Verbose {
			key = ansi.Truncate(key, maxKeyWidth, "...")
		}
		fmt.Fprintf(w, "    %dx %s\n", row.Count, key)
	}

	fmt.Fprintln(w)
}

// reportPackages lists analyzed packages, then any package that only appears
// in rows.
func reportPackages(report *Report) []string {
	seen := make(map[string]bool)
	var pkgs []string
	for _, p := range report.Metadata.Packages {
		if !seen[p] {
			seen[p] = true
			pkgs = append(pkgs, p)
		}
	}
	for _, row := range report.Rows {
		if !seen[row.Package] {
			seen[row.Package] = true
			pkgs = append(pkgs, row.Package)
		}
	}
	return pkgs
}
