package kernel

import (
	"context"
	"log/slog"
)

// NewNoopSubmitter returns a Submitter that never executes anything, useful
// for dry runs and tests. Each submission emits a single Stream message noting
// that execution was skipped, and the full command text is logged at debug
// level.
func NewNoopSubmitter(log *slog.Logger) Submitter {
	return &noopSubmitter{log: log}
}

type noopSubmitter struct {
	log *slog.Logger
}

func (s *noopSubmitter) Submit(ctx context.Context, code string, onMessage func(Message)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Debug("dry run: skipping kernel submission", "code", code)
	}
	onMessage(Stream{Name: "stdout", Text: "dry run: submission skipped\n"})
	return nil
}
