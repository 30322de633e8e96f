package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// findingsOnly is the quiet JSON document: the summary and the rows, without
// warnings, job errors or metadata.
type findingsOnly struct {
	Summary Summary         `json:"summary"`
	Rows    []sanitizer.Row `json:"rows"`
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		rows := report.Rows
		if rows == nil {
			rows = []sanitizer.Row{}
		}
		return encoder.Encode(findingsOnly{Summary: report.Summary, Rows: rows})
	}

	return encoder.Encode(report)
}
