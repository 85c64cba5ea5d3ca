// Package quota tracks the local hourly posts window when no backend
// reports it.
package quota

import (
	"context"
	"math"
	"time"

	"targetscope/internal/model"
)

// CommitLog reports posts committed in a time range.
type CommitLog interface {
	SumCommittedWithin(ctx context.Context, start, end time.Time) (int, error)
}

// WindowStart returns the start of the UTC hour containing now.
func WindowStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
}

// ResetsInMinutes is the whole minutes left in now's window, rounded up.
func ResetsInMinutes(now time.Time) int {
	left := WindowStart(now).Add(time.Hour).Sub(now.UTC())
	return int(math.Ceil(left.Minutes()))
}

// Snapshot builds the current window view for a total hourly capacity.
func Snapshot(ctx context.Context, log CommitLog, total int, now time.Time) (model.CapacitySnapshot, error) {
	start := WindowStart(now)
	planned, err := log.SumCommittedWithin(ctx, start, start.Add(time.Hour))
	if err != nil {
		return model.CapacitySnapshot{}, err
	}
	remaining := total - planned
	if remaining < 0 {
		remaining = 0
	}
	return model.CapacitySnapshot{
		TotalCapacity:         total,
		Remaining:             remaining,
		Planned:               planned,
		WindowResetsInMinutes: ResetsInMinutes(now),
	}, nil
}
