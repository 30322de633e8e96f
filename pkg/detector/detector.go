// Package detector samples a sanitizer log and suggests configuration for it.
package detector

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sort"

	"github.com/charmbracelet/x/ansi"

	"github.com/ccollicutt/sanreport/pkg/parser"
	"github.com/ccollicutt/sanreport/pkg/sanitizer"
)

// DefaultSampleSize is the number of lines read when no sample size is set.
const DefaultSampleSize = 10000

// Count is a value seen in the log and how often it was seen.
type Count struct {
	Value string
	Count int
}

// DetectionResult holds what was learned from a log sample.
type DetectionResult struct {
	SampledLines int // Number of lines sampled
	Headers      int // Section header lines
	Summaries    int // SUMMARY lines

	Tools            []Count // Sanitizers that reported, most frequent first
	ErrorNames       []Count // Error names of section headers
	Prefixes         []Count // Non-empty text before section headers
	MarkerCandidates []Count // Top-level directories of absolute frame paths

	// UntabledErrorNames have no relevant trace patterns, so only the first
	// stack trace of each of their parts is counted.
	UntabledErrorNames []string

	TimestampedLines int // Lines starting with a CI timestamp
	ANSILines        int // Lines containing escape sequences
}

// Detector inspects sanitizer logs.
type Detector struct {
	sampleSize int
	table      *sanitizer.TraceTable
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample.
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// WithTraceTable sets the table used to find untabled error names.
func WithTraceTable(table *sanitizer.TraceTable) Option {
	return func(d *Detector) {
		if table != nil {
			d.table = table
		}
	}
}

// New creates a new Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		sampleSize: DefaultSampleSize,
		table:      sanitizer.DefaultTraceTable(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile samples a log file and inspects it.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines inspects a slice of log lines.
//
// Decoration found in the sample (CI timestamps, escape sequences) is removed
// before headers and frames are examined, the same way the analyzer would with
// the suggested configuration.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{SampledLines: len(lines)}

	for _, line := range lines {
		if ciTimestamp.MatchString(line) {
			result.TimestampedLines++
		}
		if ansi.Strip(line) != line {
			result.ANSILines++
		}
	}
	cleaner := parser.NewLineCleaner(nil, result.StripANSI())
	if result.TimestampedLines > 0 {
		cleaner = parser.NewLineCleaner([]*regexp.Regexp{ciTimestamp}, result.StripANSI())
	}

	tools := make(map[string]int)
	errorNames := make(map[string]int)
	prefixes := make(map[string]int)
	markers := make(map[string]int)

	for _, raw := range lines {
		line := cleaner.Clean(raw)

		if sanitizer.IsSectionEnd(line) {
			result.Summaries++
			continue
		}

		if prefix, ok := sanitizer.SectionHeader(line); ok {
			result.Headers++
			if prefix != "" {
				prefixes[prefix]++
			}
			if m := toolPattern.FindStringSubmatch(line); m != nil {
				tools[m[1]]++
			}
			if name, ok := sanitizer.ErrorName(line); ok {
				errorNames[name]++
			}
			continue
		}

		if marker, ok := frameMarker(line); ok {
			markers[marker]++
		}
	}

	result.Tools = sortCounts(tools)
	result.ErrorNames = sortCounts(errorNames)
	result.Prefixes = sortCounts(prefixes)
	result.MarkerCandidates = sortCounts(markers)

	for _, c := range result.ErrorNames {
		if !d.table.Has(c.Value) {
			result.UntabledErrorNames = append(result.UntabledErrorNames, c.Value)
		}
	}

	return result
}

// sampleFile reads up to sampleSize lines from a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	src := parser.NewFileSource([]string{path}, nil)
	defer src.Close()

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line.Content)
	}

	return lines, nil
}

func sortCounts(m map[string]int) []Count {
	counts := make([]Count, 0, len(m))
	for v, n := range m {
		counts = append(counts, Count{Value: v, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Value < counts[j].Value
	})
	return counts
}

// HasSections returns true if the sample contains at least one section header.
func (r *DetectionResult) HasSections() bool {
	return r.Headers > 0
}

// Unterminated returns the number of headers without a SUMMARY line in the sample.
func (r *DetectionResult) Unterminated() int {
	if r.Summaries >= r.Headers {
		return 0
	}
	return r.Headers - r.Summaries
}

// SuggestedMarker returns the most common frame directory, or "" if no frame
// had an absolute path.
func (r *DetectionResult) SuggestedMarker() string {
	if len(r.MarkerCandidates) == 0 {
		return ""
	}
	return r.MarkerCandidates[0].Value
}

// StripPatterns returns the strip patterns the sample needs.
func (r *DetectionResult) StripPatterns() []string {
	if r.TimestampedLines == 0 {
		return nil
	}
	return []string{parser.CITimestampPattern}
}

// StripANSI returns true if the sample contains escape sequences.
func (r *DetectionResult) StripANSI() bool {
	return r.ANSILines > 0
}
