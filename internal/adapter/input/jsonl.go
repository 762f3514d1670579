package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/applist/internal/model"
)

const maxLineSize = 1024 * 1024

// JSONLSource decodes one event per line. Malformed lines are skipped.
type JSONLSource struct {
	name   string
	open   func() (io.ReadCloser, error)
	logger *slog.Logger
}

// NewStdinSource reads events from os.Stdin.
func NewStdinSource(logger *slog.Logger) *JSONLSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLSource{
		name:   "stdin",
		open:   func() (io.ReadCloser, error) { return io.NopCloser(os.Stdin), nil },
		logger: logger,
	}
}

// NewFileSource reads events from a JSONL file.
func NewFileSource(path string, logger *slog.Logger) *JSONLSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLSource{
		name:   path,
		open:   func() (io.ReadCloser, error) { return os.Open(path) },
		logger: logger,
	}
}

// NewReaderSource reads events from r.
func NewReaderSource(name string, r io.Reader, logger *slog.Logger) *JSONLSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONLSource{
		name:   name,
		open:   func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
		logger: logger,
	}
}

// Name returns the source identifier.
func (s *JSONLSource) Name() string {
	return s.name
}

// Stream decodes lines until EOF or cancellation.
func (s *JSONLSource) Stream(ctx context.Context, out chan<- model.Event) error {
	rc, err := s.open()
	if err != nil {
		return &AdapterError{Source: s.name, Message: "failed to open event source", Err: err}
	}
	defer rc.Close()

	if err := decodeStream(ctx, rc, out, s.logger.With("source", s.name)); err != nil {
		return &AdapterError{Source: s.name, Message: "failed to read events", Err: err}
	}
	return nil
}

func decodeStream(ctx context.Context, r io.Reader, out chan<- model.Event, logger *slog.Logger) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var buf []byte
	lineNum := 0
	for {
		line, tooLong, readErr := readLine(br, buf)
		buf = line
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return readErr
		}
		if readErr != nil && len(line) == 0 && !tooLong {
			return nil
		}
		lineNum++
		if err := ctx.Err(); err != nil {
			return nil
		}

		switch {
		case tooLong:
			logger.Debug("skipping oversized event line", "line", lineNum, "limit", maxLineSize)
		case len(bytes.TrimSpace(line)) == 0:
		default:
			ev, err := ParseEvent(line)
			if err != nil {
				logger.Debug("skipping malformed event", "line", lineNum, "error", err)
				break
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return nil
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

// readLine reads the next line into buf without its line ending. A line
// longer than maxLineSize is consumed to its end and reported as tooLong.
func readLine(br *bufio.Reader, buf []byte) (line []byte, tooLong bool, err error) {
	buf = buf[:0]
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(buf, "\r\n"), tooLong, err
	}
}

// ParseEvent decodes and validates a single JSON event.
func ParseEvent(data []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return model.Event{}, err
	}
	if err := ev.Normalize(); err != nil {
		return model.Event{}, err
	}
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}

	ev.Title = sanitizeString(ev.Title)
	return ev, nil
}

// sanitizeString replaces control characters with spaces and trims.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 || r == 127 {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
