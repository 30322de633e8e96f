package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// CSVHeader is the header row of the CSV report.
var CSVHeader = []string{"package", "error_name", "stack_trace_key", "count"}

// CSVFormatter formats the report rows as CSV, one row per distinct finding.
// Warnings, errors and metadata are not included.
type CSVFormatter struct {
	opts FormatOptions
}

// NewCSVFormatter creates a new CSV formatter. Options are accepted for
// symmetry; CSV output is the same in every mode.
func NewCSVFormatter(opts FormatOptions) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format renders the report rows as CSV.
func (f *CSVFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, row := range report.Rows {
		record := []string{row.Package, row.ErrorName, row.StackTraceKey, strconv.Itoa(row.Count)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile renders report with f into path, creating parent directories.
func WriteFile(ctx context.Context, f Formatter, report *Report, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}

	file, err := os.Create(path) // #nosec G304 -- user-provided report path is expected
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}

	if err := f.Format(ctx, report, file); err != nil {
		file.Close()
		return fmt.Errorf("writing report file: %w", err)
	}
	return file.Close()
}
