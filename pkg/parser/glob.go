package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// DefaultLogFileName is the per-package log file colcon writes under the log base.
const DefaultLogFileName = "stdout_stderr.log"

// ExpandGlobs expands a list of file paths and glob patterns into a deduplicated,
// sorted list of paths. Patterns that don't match any files are returned as-is so
// the caller reports file-not-found against the name the user gave.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			result = append(result, path)
		}
	}

	for _, pattern := range patterns {
		if pattern == StdinPath {
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, match := range matches {
			add(match)
		}
	}

	slices.Sort(result)
	return result, nil
}

// JobLog is the log file of one package's job.
type JobLog struct {
	Package string
	Path    string
}

// DiscoverJobs finds per-package job logs in a colcon-style log directory:
//
//	<logBase>/<package>/<fileName>
//
// Entries without the file are skipped. Results are sorted by package.
func DiscoverJobs(logBase, fileName string) ([]JobLog, error) {
	if fileName == "" {
		fileName = DefaultLogFileName
	}

	entries, err := os.ReadDir(logBase)
	if err != nil {
		return nil, fmt.Errorf("reading log base %s: %w", logBase, err)
	}

	var jobs []JobLog
	for _, e := range entries {
		if !e.IsDir() && e.Type()&fs.ModeSymlink == 0 {
			continue
		}

		path := filepath.Join(logBase, e.Name(), fileName)
		info, err := os.Stat(path)
		if err != nil {
			// A symlink to a file fails with ENOTDIR rather than ErrNotExist.
			if errors.Is(err, fs.ErrNotExist) || !e.IsDir() {
				continue
			}
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		jobs = append(jobs, JobLog{Package: e.Name(), Path: path})
	}

	return jobs, nil
}
