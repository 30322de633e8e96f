// Package parser reads log files line by line and prepares the lines for the
// sanitizer aggregator.
package parser

// LogLine is one line read from a log source.
type LogLine struct {
	// Content is the line text after cleaning.
	Content string

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}
