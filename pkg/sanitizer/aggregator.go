package sanitizer

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// OutputKey is the primary key of the report. Two relevant stack traces with the
// same OutputKey are the same defect.
type OutputKey struct {
	Package       string `json:"package"`
	ErrorName     string `json:"error_name"`
	StackTraceKey string `json:"stack_trace_key"`
}

// Row is one line of the report.
type Row struct {
	OutputKey
	Count int `json:"count"`
}

// FlushPolicy decides what happens to sections still open at the end of a stream.
type FlushPolicy string

const (
	// FlushDrop discards open sections and reports them as warnings.
	FlushDrop FlushPolicy = "drop"
	// FlushFinalize parses open sections as if their SUMMARY line had arrived.
	FlushFinalize FlushPolicy = "finalize"
)

// Stats counts what the aggregator has seen.
type Stats struct {
	LinesProcessed     int `json:"lines_processed"`
	SectionsStarted    int `json:"sections_started"`
	SectionsCompleted  int `json:"sections_completed"`
	SectionsFailed     int `json:"sections_failed"`
	SectionsDropped    int `json:"sections_dropped"`
	StackTracesCounted int `json:"stack_traces_counted"`
	StackTracesFailed  int `json:"stack_traces_failed"`
}

// pendingSection collects the lines of a section that has started but not ended.
type pendingSection struct {
	id     uuid.UUID
	prefix string
	lines  []string
}

// Aggregator consumes a log one line at a time, reassembles sanitizer sections
// from interleaved output, and counts relevant stack traces by OutputKey.
//
// Continuation lines are matched to open sections by the literal prefix that
// preceded the section header. Open sections are tried in the order they
// started and the first match takes the line. Two open sections with the same
// prefix cannot be told apart; the older one receives their shared lines.
// A header line is the exception: it always opens a new section and is never
// routed to an older section whose prefix it also matches.
//
// An Aggregator is not safe for concurrent use. Use one per log stream.
type Aggregator struct {
	parser  *Parser
	logger  hclog.Logger
	pkg     string
	pending []*pendingSection
	counts  map[OutputKey]int
	stats   Stats
}

// Option configures an Aggregator.
type Option func(*aggregatorOptions)

type aggregatorOptions struct {
	marker string
	table  *TraceTable
	logger hclog.Logger
}

// WithCodebaseMarker sets the substring that identifies in-codebase frames.
func WithCodebaseMarker(marker string) Option {
	return func(o *aggregatorOptions) {
		o.marker = marker
	}
}

// WithTraceTable sets the relevant stack trace table.
func WithTraceTable(table *TraceTable) Option {
	return func(o *aggregatorOptions) {
		o.table = table
	}
}

// WithLogger sets the logger used for dropped sections and traces.
func WithLogger(logger hclog.Logger) Option {
	return func(o *aggregatorOptions) {
		o.logger = logger
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts ...Option) (*Aggregator, error) {
	o := &aggregatorOptions{
		marker: DefaultCodebaseMarker,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	extractor, err := NewKeyExtractor(o.marker)
	if err != nil {
		return nil, err
	}

	return &Aggregator{
		parser: NewParser(o.table, extractor),
		logger: o.logger,
		counts: make(map[OutputKey]int),
	}, nil
}

// SetPackage sets the package that subsequent findings are counted under.
func (a *Aggregator) SetPackage(pkg string) {
	a.pkg = pkg
}

// Package returns the current package.
func (a *Aggregator) Package() string {
	return a.pkg
}

// AddLine feeds one line of log output.
func (a *Aggregator) AddLine(line string) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	a.stats.LinesProcessed++

	if prefix, ok := SectionHeader(line); ok {
		section := &pendingSection{
			id:     uuid.New(),
			prefix: prefix,
		}
		a.pending = append(a.pending, section)
		a.stats.SectionsStarted++
		a.logger.Trace("section started", "section_id", section.id, "prefix", section.prefix)

		// The header belongs to the section it opens, even when an older
		// section has the same prefix.
		a.absorb(len(a.pending)-1, line)
		return
	}

	for i, section := range a.pending {
		if strings.HasPrefix(line, section.prefix) {
			a.absorb(i, line)
			return
		}
	}
}

// absorb appends line to the i-th pending section and finalizes the section if
// line is its SUMMARY line.
func (a *Aggregator) absorb(i int, line string) {
	section := a.pending[i]
	section.lines = append(section.lines, line[len(section.prefix):])

	if !IsSectionEnd(line) {
		return
	}

	a.pending = slices.Delete(a.pending, i, i+1)
	a.finalize(section)
}

// finalize parses a section and counts its relevant stack traces.
func (a *Aggregator) finalize(section *pendingSection) {
	parsed, err := a.parser.ParseSection(section.lines)
	if parsed == nil {
		a.stats.SectionsFailed++
		a.logger.Warn("dropping sanitizer section", "section_id", section.id, "package", a.pkg, "error", err)
		return
	}

	a.stats.SectionsCompleted++
	for _, traceErr := range unjoin(err) {
		a.stats.StackTracesFailed++
		a.logger.Warn("dropping stack trace", "section_id", section.id, "package", a.pkg,
			"error_name", parsed.ErrorName, "error", traceErr)
	}

	for _, trace := range parsed.StackTraces() {
		key := OutputKey{
			Package:       a.pkg,
			ErrorName:     parsed.ErrorName,
			StackTraceKey: trace.Key,
		}
		a.counts[key]++
		a.stats.StackTracesCounted++
	}

	a.logger.Debug("section completed", "section_id", section.id, "package", a.pkg,
		"error_name", parsed.ErrorName, "lines", len(section.lines))
}

// Flush ends the stream for all open sections according to policy and returns a
// warning for each section that did not see its SUMMARY line.
func (a *Aggregator) Flush(policy FlushPolicy) []*UnterminatedSectionWarning {
	if len(a.pending) == 0 {
		return nil
	}

	warnings := make([]*UnterminatedSectionWarning, 0, len(a.pending))
	pending := a.pending
	a.pending = nil

	for _, section := range pending {
		w := &UnterminatedSectionWarning{
			SectionID: section.id,
			Package:   a.pkg,
			Prefix:    section.prefix,
			Lines:     len(section.lines),
		}
		if len(section.lines) > 0 {
			w.Header = section.lines[0]
		}
		warnings = append(warnings, w)

		switch policy {
		case FlushFinalize:
			a.logger.Info("finalizing unterminated section", "section_id", section.id, "package", a.pkg)
			a.finalize(section)
		default:
			a.stats.SectionsDropped++
			a.logger.Warn("dropping unterminated section", "section_id", section.id, "package", a.pkg,
				"lines", len(section.lines))
		}
	}

	return warnings
}

// Pending returns the number of open sections.
func (a *Aggregator) Pending() int {
	return len(a.pending)
}

// Counts returns a copy of the counts by OutputKey.
func (a *Aggregator) Counts() map[OutputKey]int {
	counts := make(map[OutputKey]int, len(a.counts))
	for k, v := range a.counts {
		counts[k] = v
	}
	return counts
}

// Report returns one Row per OutputKey, sorted by package, error name and key.
func (a *Aggregator) Report() []Row {
	rows := make([]Row, 0, len(a.counts))
	for k, v := range a.counts {
		rows = append(rows, Row{OutputKey: k, Count: v})
	}
	slices.SortFunc(rows, func(x, y Row) int {
		return cmp.Or(
			cmp.Compare(x.Package, y.Package),
			cmp.Compare(x.ErrorName, y.ErrorName),
			cmp.Compare(x.StackTraceKey, y.StackTraceKey),
		)
	})
	return rows
}

// Stats returns the counters so far.
func (a *Aggregator) Stats() Stats {
	return a.stats
}

// unjoin splits an errors.Join result back into its parts.
func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
