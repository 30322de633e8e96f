package sanitizer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrUnparsableHeader    = errors.New("unparsable sanitizer section header")
	ErrMalformedStackTrace = errors.New("malformed stack trace")
	ErrUnterminatedSection = errors.New("unterminated sanitizer section")
)

// UnparsableHeaderError is returned when a section header does not yield an error name.
// The whole section is dropped.
type UnparsableHeaderError struct {
	Header string
	Lines  []string
}

func (e *UnparsableHeaderError) Error() string {
	return fmt.Sprintf("no error name in section header %q", e.Header)
}

// Is reports whether target is ErrUnparsableHeader.
func (e *UnparsableHeaderError) Is(target error) bool {
	return target == ErrUnparsableHeader
}

// MalformedStackTraceError is returned when a relevant stack trace has no frame
// from the codebase under test. Only that trace is dropped.
type MalformedStackTraceError struct {
	Marker string
	Lines  []string
}

func (e *MalformedStackTraceError) Error() string {
	return fmt.Sprintf("no frame containing %q in %d stack trace line(s)", e.Marker, len(e.Lines))
}

// Is reports whether target is ErrMalformedStackTrace.
func (e *MalformedStackTraceError) Is(target error) bool {
	return target == ErrMalformedStackTrace
}

// UnterminatedSectionWarning describes a section that never received its SUMMARY
// line before the end of the stream. It is not fatal.
type UnterminatedSectionWarning struct {
	SectionID uuid.UUID
	Package   string
	Prefix    string
	Header    string
	Lines     int
}

func (w *UnterminatedSectionWarning) Error() string {
	return fmt.Sprintf("section %s (%q) has no SUMMARY line after %d line(s)", w.SectionID, w.Header, w.Lines)
}

// Is reports whether target is ErrUnterminatedSection.
func (w *UnterminatedSectionWarning) Is(target error) bool {
	return target == ErrUnterminatedSection
}
