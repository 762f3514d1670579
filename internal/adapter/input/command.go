package input

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/jmylchreest/applist/internal/model"
)

// CommandSource runs a compositor bridge and reads JSONL events from its
// stdout. The process is killed when the stream's context is cancelled.
type CommandSource struct {
	args   []string
	logger *slog.Logger
}

// NewCommandSource creates a CommandSource for the given argv.
func NewCommandSource(args []string, logger *slog.Logger) *CommandSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSource{args: args, logger: logger}
}

// Name returns the command line.
func (s *CommandSource) Name() string {
	return strings.Join(s.args, " ")
}

// Stream runs the command until it exits or ctx is cancelled.
func (s *CommandSource) Stream(ctx context.Context, out chan<- model.Event) error {
	cmd := exec.CommandContext(ctx, s.args[0], s.args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &AdapterError{Source: s.Name(), Message: "failed to open command output", Err: err}
	}
	if err := cmd.Start(); err != nil {
		return &AdapterError{Source: s.Name(), Message: "failed to start command", Err: err}
	}

	readErr := decodeStream(ctx, stdout, out, s.logger.With("source", s.Name()))
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if readErr != nil {
		return &AdapterError{Source: s.Name(), Message: "failed to read command output", Err: readErr}
	}
	if waitErr != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			s.logger.Debug("bridge stderr", "output", msg)
		}
		return &AdapterError{Source: s.Name(), Message: "command exited", Err: waitErr}
	}
	return nil
}
