package runner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// InputSource yields one user input per call. It returns io.EOF when no
// more input is available.
type InputSource interface {
	Next(ctx context.Context) (string, error)
}

// LineSource reads newline-separated input from a reader.
type LineSource struct {
	scanner *bufio.Scanner
}

// NewLineSource wraps r, typically os.Stdin.
func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{scanner: bufio.NewScanner(r)}
}

// Next implements InputSource. Blocking reads are not interruptible; ctx is
// only checked before reading.
func (s *LineSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

// SliceSource replays a fixed list of inputs.
type SliceSource struct {
	mu     sync.Mutex
	inputs []string
}

// NewSliceSource creates a SliceSource.
func NewSliceSource(inputs ...string) *SliceSource {
	return &SliceSource{inputs: inputs}
}

// Next implements InputSource.
func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inputs) == 0 {
		return "", io.EOF
	}
	next := s.inputs[0]
	s.inputs = s.inputs[1:]
	return next, nil
}

// IsExit reports whether input asks to end the program.
func IsExit(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}
