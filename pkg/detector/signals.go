package detector

import (
	"regexp"
	"strings"

	"github.com/ccollicutt/sanreport/pkg/parser"
)

var (
	ciTimestamp = regexp.MustCompile(parser.CITimestampPattern)

	// toolPattern finds the reporting sanitizer in a header line.
	toolPattern = regexp.MustCompile(`(\w+Sanitizer):`)

	// framePathPattern finds the first bare absolute path in a stack frame
	// line, e.g. "#0 0x55d0 in main /ros2/src/app/main.cpp:12:3". Module paths
	// in parentheses are skipped.
	framePathPattern = regexp.MustCompile(`(?:^|\s)#\d+\s.*?\s(/[^\s:()]+)`)
)

// systemRoots hold toolchain and system libraries, never the codebase.
var systemRoots = map[string]bool{
	"/usr":   true,
	"/lib":   true,
	"/lib32": true,
	"/lib64": true,
	"/proc":  true,
}

// frameMarker returns the top-level directory of a frame's source path.
func frameMarker(line string) (string, bool) {
	m := framePathPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}

	path := m[1]
	if i := strings.IndexByte(path[1:], '/'); i >= 0 {
		path = path[:i+1]
	}
	if systemRoots[path] {
		return "", false
	}
	return path, true
}
