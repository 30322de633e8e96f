package sanitizer

import (
	"fmt"
	"regexp"
	"slices"
)

// Error names with built-in relevant stack trace patterns.
const (
	ErrorNameDataRace            = "data race"
	ErrorNameDetectedMemoryLeaks = "detected memory leaks"
	ErrorNameLockOrderInversion  = "lock-order-inversion"
)

var (
	// sectionStartPattern finds the header line of a section and any prefix the
	// logging system prepended to it.
	sectionStartPattern = regexp.MustCompile(`^(?P<prefix>.*?)(?:==\d+==|)(?:WARNING|ERROR):.*Sanitizer:.*$`)

	// sectionEndPattern finds the SUMMARY line that closes a section.
	sectionEndPattern = regexp.MustCompile(`^(?P<prefix>.*?)(?:SUMMARY: .*Sanitizer: .*)$`)

	// errorNamePattern pulls the error name out of a header: everything after
	// "Sanitizer: " up to an open paren, a hex address, or end of line.
	errorNamePattern = regexp.MustCompile(`^.*Sanitizer: (?P<error_name>.+?)(?: \(| 0x[\da-f]+|\s*$)`)

	// partBeginPattern matches non-indented lines, which begin a section part.
	partBeginPattern = regexp.MustCompile(`^\S`)

	// stackFramePattern matches "#<n> ..." stack frame lines.
	stackFramePattern = regexp.MustCompile(`^\s*#\d+\s+.*$`)

	// anyLinePattern is the begin pattern for error names without a table entry.
	anyLinePattern = regexp.MustCompile(`^.*$`)
)

// SectionHeader reports whether line opens a section and returns the text the
// logging system put in front of the sanitizer header.
func SectionHeader(line string) (prefix string, ok bool) {
	matches := sectionStartPattern.FindStringSubmatch(line)
	if matches == nil {
		return "", false
	}
	return matches[sectionStartPattern.SubexpIndex("prefix")], true
}

// IsSectionEnd reports whether line is a SUMMARY line.
func IsSectionEnd(line string) bool {
	return sectionEndPattern.MatchString(line)
}

// TraceTable maps an error name to the ordered begin patterns of its relevant
// stack traces. Patterns are consumed positionally within a section part: the
// n-th relevant trace must start after a line matching the n-th pattern.
type TraceTable struct {
	patterns map[string][]*regexp.Regexp
}

// DefaultTraceTable returns the built-in table.
func DefaultTraceTable() *TraceTable {
	mutexAcquired := regexp.MustCompile(`^\s+Mutex M\d+ acquired here while holding mutex M\d+ in .*$`)

	return &TraceTable{
		patterns: map[string][]*regexp.Regexp{
			// Current access, then the previous conflicting access.
			ErrorNameDataRace: {
				regexp.MustCompile(`^\s+(?:Read|Write) of size \d+ at 0x[\da-f]+ .*$`),
				regexp.MustCompile(`^\s+Previous (?:read|write) of size \d+ at 0x[\da-f]+ .*$`),
			},
			// Indirect leaks are consequences of the direct one.
			ErrorNameDetectedMemoryLeaks: {
				regexp.MustCompile(`^Direct leak of \d+ byte\(s\) in \d+ object\(s\) allocated from:$`),
			},
			ErrorNameLockOrderInversion: {mutexAcquired, mutexAcquired},
		},
	}
}

// Set replaces the begin patterns for an error name. The zero TraceTable is
// empty and ready to use.
func (t *TraceTable) Set(errorName string, patterns ...string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("error name %q: at least one pattern is required", errorName)
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("error name %q: invalid pattern %d: %w", errorName, i, err)
		}
		compiled = append(compiled, re)
	}

	if t.patterns == nil {
		t.patterns = make(map[string][]*regexp.Regexp)
	}
	t.patterns[errorName] = compiled
	return nil
}

// Lookup returns the begin patterns for an error name. Unknown names get a single
// wildcard, so the first stack trace in the part is taken.
func (t *TraceTable) Lookup(errorName string) []*regexp.Regexp {
	if p, ok := t.patterns[errorName]; ok {
		return p
	}
	return []*regexp.Regexp{anyLinePattern}
}

// Has reports whether errorName has an explicit entry.
func (t *TraceTable) Has(errorName string) bool {
	_, ok := t.patterns[errorName]
	return ok
}

// Names returns the error names with explicit entries, sorted.
func (t *TraceTable) Names() []string {
	names := make([]string, 0, len(t.patterns))
	for name := range t.patterns {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
