package cmdlog

import (
	"errors"
	"time"

	"targetscope/internal/backend"
	"targetscope/internal/commit"
	"targetscope/internal/logging"
	"targetscope/internal/metrics"
	"targetscope/internal/model"
	"targetscope/internal/store/sqlite"
)

// Run executes f as the named command, counting runs and failures.
// Failures are logged with a kind derived from the domain error they wrap.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	fields := map[string]any{
		"cmd":        cmd,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil {
		metrics.IncCommandError(cmd)
		fields["kind"] = Kind(err)
		fields["error"] = err.Error()
		logging.Error(cmd+"_error", fields)
		return err
	}
	logging.Info(cmd+"_ok", fields)
	return nil
}

// Kind names the class of a command failure.
func Kind(err error) string {
	switch {
	case errors.Is(err, model.ErrUnknownType),
		errors.Is(err, model.ErrUnknownPriority),
		errors.Is(err, model.ErrUnknownMode),
		errors.Is(err, model.ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, model.ErrImmutableField):
		return "immutable_field"
	case errors.Is(err, sqlite.ErrNotFound):
		return "not_found"
	case errors.Is(err, backend.ErrUnavailable):
		return "backend_unavailable"
	case errors.Is(err, commit.ErrNoCapacity):
		return "no_capacity"
	case errors.Is(err, commit.ErrNothingToCommit):
		return "nothing_to_commit"
	}
	return "other"
}
