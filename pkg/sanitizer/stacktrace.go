package sanitizer

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultCodebaseMarker identifies frames from the codebase under test.
const DefaultCodebaseMarker = "/ros2"

// AddressMask replaces hexadecimal addresses in stack trace keys.
const AddressMask = "0xX"

// hexAddressPattern matches every address-shaped token that varies between runs.
var hexAddressPattern = regexp.MustCompile(`0x[\da-f]+`)

// StackTrace is one relevant stack trace reduced to its key.
type StackTrace struct {
	// Key is the first in-codebase frame with the frame index, leading address
	// and every other hex address masked out.
	Key string
}

// KeyExtractor reduces stack trace lines to a StackTrace key.
type KeyExtractor struct {
	marker  string
	pattern *regexp.Regexp
}

// NewKeyExtractor creates a KeyExtractor that selects the first frame containing marker.
func NewKeyExtractor(marker string) (*KeyExtractor, error) {
	if marker == "" {
		return nil, errors.New("codebase marker is required")
	}

	pattern, err := regexp.Compile(`^\s*#\d+ (?:0x[\da-f]+ in|)\s*(?P<key>.*` + regexp.QuoteMeta(marker) + `.*?)\s*$`)
	if err != nil {
		return nil, fmt.Errorf("compiling key pattern for marker %q: %w", marker, err)
	}

	return &KeyExtractor{
		marker:  marker,
		pattern: pattern,
	}, nil
}

// Marker returns the codebase marker.
func (x *KeyExtractor) Marker() string {
	return x.marker
}

// Extract returns the StackTrace for the given frame lines.
// Returns a *MalformedStackTraceError if no frame contains the marker.
func (x *KeyExtractor) Extract(lines []string) (StackTrace, error) {
	keyIdx := x.pattern.SubexpIndex("key")
	for _, line := range lines {
		matches := x.pattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		return StackTrace{Key: hexAddressPattern.ReplaceAllString(matches[keyIdx], AddressMask)}, nil
	}

	return StackTrace{}, &MalformedStackTraceError{
		Marker: x.marker,
		Lines:  append([]string(nil), lines...),
	}
}
