package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdinPath is the source path that reads standard input.
const StdinPath = "-"

// FileSource implements LogSource for reading from log files.
// Files are read in order, one after another. Lines have no length limit;
// sanitizer frames with long template arguments can run to megabytes.
type FileSource struct {
	files   []string
	cleaner *LineCleaner

	currentFile   io.ReadCloser
	currentReader *bufio.Reader
	currentSource string
	currentLine   int
	fileIndex     int
}

// NewFileSource creates a LogSource that reads from the given files.
// A nil cleaner passes lines through unchanged.
func NewFileSource(files []string, cleaner *LineCleaner) *FileSource {
	return &FileSource{
		files:     files,
		cleaner:   cleaner,
		fileIndex: -1,
	}
}

// Next returns the next log line.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*LogLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentReader == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		text, err := s.currentReader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}
		if text != "" {
			// A final line without a newline still counts; EOF is seen on the next call.
			s.currentLine++
			text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
			return &LogLine{
				Content: s.cleaner.Clean(text),
				Source:  s.currentSource,
				LineNum: s.currentLine,
			}, nil
		}

		if err := s.closeCurrentFile(); err != nil {
			return nil, err
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	var r io.ReadCloser
	if path == StdinPath {
		r = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", path, err)
		}
		r = f
	}

	s.currentFile = r
	s.currentReader = bufio.NewReader(r)
	s.currentSource = path
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrentFile() error {
	s.currentReader = nil
	if s.currentFile == nil {
		return nil
	}
	err := s.currentFile.Close()
	s.currentFile = nil
	return err
}
