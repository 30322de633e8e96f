package parser

import (
	"regexp"

	"github.com/charmbracelet/x/ansi"
)

// CITimestampPattern matches the timestamp GitHub Actions prepends to each line,
// e.g. "2026-01-26T14:49:40.7760945Z ".
const CITimestampPattern = `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d+Z ?`

// LineCleaner removes volatile decoration from log lines before they reach the
// aggregator. Section prefixes are compared literally, so anything that differs
// between lines of one section (timestamps, color codes) must be removed first.
type LineCleaner struct {
	patterns  []*regexp.Regexp
	stripANSI bool
}

// NewLineCleaner creates a LineCleaner. Each pattern's matches are deleted from
// every line, in order, after escape sequences are removed.
func NewLineCleaner(patterns []*regexp.Regexp, stripANSI bool) *LineCleaner {
	return &LineCleaner{
		patterns:  patterns,
		stripANSI: stripANSI,
	}
}

// Clean returns line with escape sequences and strip patterns removed.
// A nil LineCleaner returns line unchanged.
func (c *LineCleaner) Clean(line string) string {
	if c == nil {
		return line
	}
	if c.stripANSI {
		line = ansi.Strip(line)
	}
	for _, p := range c.patterns {
		line = p.ReplaceAllString(line, "")
	}
	return line
}

// Empty reports whether Clean would leave every line unchanged.
func (c *LineCleaner) Empty() bool {
	return c == nil || (!c.stripANSI && len(c.patterns) == 0)
}
