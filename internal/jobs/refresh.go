package jobs

import (
	"context"
	"sync"
	"time"

	"targetscope/internal/commit"
	"targetscope/internal/logging"
)

const cursorKey = "plan:last_refresh"

// Previewer computes the current plan.
type Previewer interface {
	Preview(ctx context.Context) (commit.Preview, error)
}

// Cursors persists the last refresh time. It may be nil.
type Cursors interface {
	SaveCursor(ctx context.Context, key, value string) error
	LoadCursor(ctx context.Context, key string) (string, error)
}

// Latest holds the most recent successful preview for readers such as the API.
type Latest struct {
	mu      sync.RWMutex
	preview commit.Preview
	at      time.Time
}

func (l *Latest) Set(p commit.Preview, at time.Time) {
	l.mu.Lock()
	l.preview, l.at = p, at
	l.mu.Unlock()
}

// Get returns the stored preview and when it was computed; ok is false
// before the first refresh.
func (l *Latest) Get() (p commit.Preview, at time.Time, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.preview, l.at, !l.at.IsZero()
}

// RunPlanOnce recomputes the plan, stores it in latest and advances the cursor.
func RunPlanOnce(ctx context.Context, p Previewer, latest *Latest, cursors Cursors) error {
	now := time.Now().UTC()
	prev, err := p.Preview(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		latest.Set(prev, now)
	}
	if cursors != nil {
		if err := cursors.SaveCursor(ctx, cursorKey, now.Format(time.RFC3339Nano)); err != nil {
			logging.Warn("plan_cursor_error", map[string]any{"error": err.Error()})
		}
	}
	logging.Info("plan_refreshed", map[string]any{
		"entries":    len(prev.Entries),
		"totalPosts": prev.Summary.TotalPosts,
		"remaining":  prev.Quota.Remaining,
	})
	return nil
}

// LastRefresh reads the cursor written by RunPlanOnce. Zero if never run.
func LastRefresh(ctx context.Context, cursors Cursors) (time.Time, error) {
	v, err := cursors.LoadCursor(ctx, cursorKey)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}

// RunPlanLoop runs RunPlanOnce immediately and then on a ticker until ctx is
// cancelled.
func RunPlanLoop(ctx context.Context, p Previewer, latest *Latest, cursors Cursors, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	if err := RunPlanOnce(ctx, p, latest, cursors); err != nil {
		logging.Error("plan_refresh_error", map[string]any{"error": err.Error()})
	}
	for {
		select {
		case <-ctx.Done():
			logging.Info("plan_loop_stop", nil)
			return ctx.Err()
		case <-t.C:
			if err := RunPlanOnce(ctx, p, latest, cursors); err != nil {
				logging.Error("plan_refresh_error", map[string]any{"error": err.Error()})
			}
		}
	}
}
