package sanitizer

import (
	"errors"
)

// Section is one complete sanitizer finding, header through SUMMARY.
//
// Examples of headers:
//
//	WARNING: ThreadSanitizer: lock-order-inversion (potential deadlock) (pid=26542)
//	==5054==ERROR: AddressSanitizer: SEGV on unknown address 0x60304d80008f
//
// which give the error names "lock-order-inversion" and "SEGV on unknown address".
type Section struct {
	ErrorName string
	Parts     []SectionPart
}

// StackTraces returns the relevant stack traces of every part, in order.
func (s *Section) StackTraces() []StackTrace {
	var traces []StackTrace
	for _, part := range s.Parts {
		traces = append(traces, part.RelevantStackTraces...)
	}
	return traces
}

// Parser turns the lines of a section into a Section.
// A Parser holds no per-section state and may be reused.
type Parser struct {
	table     *TraceTable
	extractor *KeyExtractor
}

// NewParser creates a Parser. A nil table uses DefaultTraceTable.
func NewParser(table *TraceTable, extractor *KeyExtractor) *Parser {
	if table == nil {
		table = DefaultTraceTable()
	}
	return &Parser{
		table:     table,
		extractor: extractor,
	}
}

// ErrorName returns the error name of a section header line.
func ErrorName(header string) (string, bool) {
	matches := errorNamePattern.FindStringSubmatch(header)
	if matches == nil {
		return "", false
	}
	return matches[errorNamePattern.SubexpIndex("error_name")], true
}

// ParseSection parses the lines of one section, header line first.
//
// If the header has no error name, ParseSection returns a nil Section and an
// *UnparsableHeaderError. If only some stack traces are malformed, the Section
// is returned together with the joined *MalformedStackTraceError values.
func (p *Parser) ParseSection(lines []string) (*Section, error) {
	if len(lines) == 0 {
		return nil, &UnparsableHeaderError{}
	}

	errorName, ok := ErrorName(lines[0])
	if !ok {
		return nil, &UnparsableHeaderError{
			Header: lines[0],
			Lines:  append([]string(nil), lines...),
		}
	}

	section := &Section{ErrorName: errorName}
	var errs []error

	start := 0
	for i := 1; i <= len(lines); i++ {
		if i < len(lines) && !partBeginPattern.MatchString(lines[i]) {
			continue
		}
		part, partErrs := p.parsePart(errorName, lines[start:i])
		section.Parts = append(section.Parts, part)
		errs = append(errs, partErrs...)
		start = i
	}

	return section, errors.Join(errs...)
}
