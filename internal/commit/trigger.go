// Package commit prepares the execution preview that justifies a scheduling
// cycle and dispatches the cycle to whoever materializes it.
package commit

import (
	"context"
	"errors"
	"time"

	"targetscope/internal/capacity"
	"targetscope/internal/logging"
	"targetscope/internal/metrics"
	"targetscope/internal/model"
	"targetscope/internal/planner"
)

var (
	ErrNoCapacity      = errors.New("no capacity: no healthy session and no active targets")
	ErrNothingToCommit = errors.New("no enabled targets to commit")
)

type Targets interface {
	ListTargets(ctx context.Context) ([]model.Target, error)
}

type Quota interface {
	GetQuotaSnapshot(ctx context.Context) (model.CapacitySnapshot, error)
}

type Committer interface {
	CommitSchedule(ctx context.Context) (model.CommitResult, error)
}

// Preview is the full plan with its capacity context. Slots are fitted
// against Window, the remaining capacity of the current quota window.
type Preview struct {
	Entries    []model.ExecutionOrderEntry `json:"entries"`
	Slots      []planner.Slot              `json:"slots"`
	Summary    planner.Summary             `json:"summary"`
	Allocation capacity.Allocation         `json:"allocation"`
	Window     capacity.Allocation         `json:"window"`
	Quota      model.CapacitySnapshot      `json:"quota"`
}

// Result is a dispatched cycle and the preview it was based on.
type Result struct {
	model.CommitResult
	Preview Preview `json:"preview"`
}

type Trigger struct {
	targets   Targets
	quota     Quota
	committer Committer
	allocator *capacity.Allocator
}

func NewTrigger(targets Targets, quota Quota, committer Committer) *Trigger {
	return &Trigger{targets: targets, quota: quota, committer: committer, allocator: capacity.NewAllocator()}
}

// Allocator exposes the bands the trigger plans against.
func (t *Trigger) Allocator() *capacity.Allocator { return t.allocator }

// Preview fetches the current targets and quota and plans the whole set.
func (t *Trigger) Preview(ctx context.Context) (Preview, error) {
	start := time.Now()
	var p Preview
	targets, err := t.targets.ListTargets(ctx)
	if err != nil {
		return p, err
	}
	if err := model.ValidateAll(targets); err != nil {
		return p, err
	}
	snap, err := t.quota.GetQuotaSnapshot(ctx)
	if err != nil {
		return p, err
	}
	p.Entries = planner.PlanExecutionOrder(targets)
	p.Summary = planner.Summarize(p.Entries)
	p.Quota = snap
	p.Allocation = t.allocator.Allocate(snap, len(p.Entries))
	p.Window = t.allocator.Window(snap)
	p.Slots = planner.Fit(p.Entries, p.Window)

	metrics.Plans.Inc()
	metrics.PlanEntries.Set(float64(len(p.Entries)))
	metrics.CapacityRemaining.Set(float64(snap.Remaining))
	metrics.ObservePlanDuration(start)
	return p, nil
}

// Run previews and, when there is something to run, dispatches a cycle.
func (t *Trigger) Run(ctx context.Context) (Result, error) {
	p, err := t.Preview(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Preview: p}
	if p.Allocation.NoCapacity {
		return res, ErrNoCapacity
	}
	if len(p.Entries) == 0 {
		return res, ErrNothingToCommit
	}
	metrics.Commits.Inc()
	cr, err := t.committer.CommitSchedule(ctx)
	if err != nil {
		metrics.CommitErrors.Inc()
		logging.Error("commit_error", map[string]any{"error": err.Error(), "entries": len(p.Entries)})
		return res, err
	}
	res.CommitResult = cr
	metrics.CommittedPosts.Add(float64(cr.TotalPosts))
	logging.Info("commit_ok", map[string]any{
		"committed":      cr.Committed,
		"totalPosts":     cr.TotalPosts,
		"planned":        len(p.Entries),
		"projectedPosts": p.Summary.TotalPosts,
	})
	return res, nil
}
