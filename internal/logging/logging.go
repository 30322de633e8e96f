// Package logging builds the diagnostic logger shared by the CLI and the
// analysis packages. Diagnostics go to stderr so that reports on stdout stay
// machine-readable.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Name is the root logger name.
const Name = "sanreport"

// Options configures New.
type Options struct {
	// Level is trace, debug, info, warn, error or off. Unrecognized values
	// fall back to info.
	Level string

	// JSON switches to JSON lines output.
	JSON bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates the root logger.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:        Name,
		DisableTime: true,
		JSONFormat:  opts.JSON,
		Output:      out,
		Level:       ParseLevel(opts.Level),
	})
}

// ParseLevel converts a level name to an hclog.Level, case-insensitively.
// Unrecognized names give hclog.Info.
func ParseLevel(level string) hclog.Level {
	if lvl := hclog.LevelFromString(level); lvl != hclog.NoLevel {
		return lvl
	}
	return hclog.Info
}
