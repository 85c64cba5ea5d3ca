// Package local serves targets, quota and commits from the embedded store,
// standing in for the backend when running without one.
package local

import (
	"context"
	"time"

	"targetscope/internal/capacity"
	"targetscope/internal/config"
	"targetscope/internal/model"
	"targetscope/internal/planner"
	"targetscope/internal/quota"
	"targetscope/internal/store/sqlite"
)

type Provider struct {
	*sqlite.DB
	capacity config.CapacityConfig
	now      func() time.Time
}

func New(db *sqlite.DB, c config.CapacityConfig) *Provider {
	return &Provider{DB: db, capacity: c, now: func() time.Time { return time.Now().UTC() }}
}

// GetQuotaSnapshot reports the current window from the commit log.
func (p *Provider) GetQuotaSnapshot(ctx context.Context) (model.CapacitySnapshot, error) {
	return quota.Snapshot(ctx, p.DB, p.capacity.Total(), p.now())
}

// CommitSchedule commits, in plan order, every enabled target whose yield
// still fits its band of the remaining window capacity, and records the cycle.
func (p *Provider) CommitSchedule(ctx context.Context) (model.CommitResult, error) {
	var res model.CommitResult
	targets, err := p.ListTargets(ctx)
	if err != nil {
		return res, err
	}
	if err := model.ValidateAll(targets); err != nil {
		return res, err
	}
	snap, err := p.GetQuotaSnapshot(ctx)
	if err != nil {
		return res, err
	}
	window := capacity.NewAllocator().Window(snap)
	for _, s := range planner.Fit(planner.PlanExecutionOrder(targets), window) {
		if s.WithinBand {
			res.Committed++
			res.TotalPosts += s.EstimatedYield
		}
	}
	if res.Committed == 0 {
		return res, nil
	}
	return res, p.PutCommit(ctx, p.now(), res)
}
