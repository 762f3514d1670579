// Package input provides event sources that feed compositor facts to the
// engine.
package input

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmylchreest/applist/internal/model"
)

// EventSource produces compositor events.
type EventSource interface {
	// Name returns the source identifier (e.g., "stdin", a file path).
	Name() string

	// Stream sends events to out until the source is exhausted or ctx is
	// cancelled. It does not close out.
	Stream(ctx context.Context, out chan<- model.Event) error
}

// NewSource creates an EventSource from a source string:
//
//	"", "-" or "stdin"   newline-delimited JSON on standard input
//	"exec:<command>"     newline-delimited JSON from a bridge command's stdout
//	anything else        a JSONL file path
func NewSource(source string, logger *slog.Logger) (EventSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch {
	case source == "" || source == "-" || source == "stdin":
		return NewStdinSource(logger), nil
	case strings.HasPrefix(source, "exec:"):
		args := strings.Fields(strings.TrimPrefix(source, "exec:"))
		if len(args) == 0 {
			return nil, &AdapterError{
				Source:  source,
				Message: "exec source needs a command",
			}
		}
		return NewCommandSource(args, logger), nil
	default:
		return NewFileSource(source, logger), nil
	}
}

// ReadAll drains a source into a slice.
func ReadAll(ctx context.Context, src EventSource) ([]model.Event, error) {
	ch := make(chan model.Event, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Stream(ctx, ch)
		close(ch)
	}()

	var events []model.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events, <-errCh
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
