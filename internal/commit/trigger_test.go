package commit

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetscope/internal/metrics"
	"targetscope/internal/model"
)

type fakeBackend struct {
	targets   []model.Target
	snap      model.CapacitySnapshot
	result    model.CommitResult
	commitErr error
	commits   int
}

func (f *fakeBackend) ListTargets(context.Context) ([]model.Target, error) { return f.targets, nil }

func (f *fakeBackend) GetQuotaSnapshot(context.Context) (model.CapacitySnapshot, error) {
	return f.snap, nil
}

func (f *fakeBackend) CommitSchedule(context.Context) (model.CommitResult, error) {
	f.commits++
	return f.result, f.commitErr
}

func mustKeyword(t *testing.T, id, q string, p model.Priority) model.Target {
	t.Helper()
	k, err := model.NewKeyword(q, p, model.KeywordFilters{})
	require.NoError(t, err)
	k.ID = id
	return k
}

func mustAccount(t *testing.T, id, h string, p model.Priority, m model.Mode) model.Target {
	t.Helper()
	a, err := model.NewAccount(h, p, m)
	require.NoError(t, err)
	a.ID = id
	return a
}

func TestPreviewPlansAndAllocates(t *testing.T) {
	off := mustKeyword(t, "k2", "sol", model.PriorityHigh)
	off.Enabled = false
	fb := &fakeBackend{
		targets: []model.Target{
			mustAccount(t, "a1", "lookonchain", model.PriorityMedium, model.ModeTweets),
			mustKeyword(t, "k1", "eth", model.PriorityMedium),
			off,
		},
		snap: model.CapacitySnapshot{TotalCapacity: 560, Remaining: 400, Planned: 160, WindowResetsInMinutes: 12},
	}
	tr := NewTrigger(fb, fb, fb)

	p, err := tr.Preview(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Entries, 2)
	assert.Equal(t, "k1", p.Entries[0].TargetID)
	assert.Equal(t, "a1", p.Entries[1].TargetID)
	assert.Equal(t, 560, p.Allocation.Total)
	assert.Equal(t, 308, p.Allocation.Keywords)
	assert.Equal(t, 220, p.Window.Keywords)
	assert.Equal(t, 140, p.Window.Accounts)
	require.Len(t, p.Slots, 2)
	assert.False(t, p.Slots[0].WithinBand)
	assert.True(t, p.Slots[1].WithinBand)
	assert.Equal(t, 1, p.Summary.Keywords)
	assert.Equal(t, 1, p.Summary.Accounts)
	assert.Equal(t, fb.snap, p.Quota)
	assert.Equal(t, float64(400), testutil.ToFloat64(metrics.CapacityRemaining))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PlanEntries))
	assert.Zero(t, fb.commits)
}

func TestPreviewRejectsMalformedTarget(t *testing.T) {
	fb := &fakeBackend{targets: []model.Target{{ID: "x", Query: "q", Priority: model.PriorityHigh, Enabled: true}}}
	_, err := NewTrigger(fb, fb, fb).Preview(context.Background())
	assert.ErrorIs(t, err, model.ErrInvalidTarget)
}

func TestRunCommits(t *testing.T) {
	fb := &fakeBackend{
		targets: []model.Target{mustKeyword(t, "k1", "eth", model.PriorityHigh)},
		snap:    model.CapacitySnapshot{TotalCapacity: 280, Remaining: 280},
		result:  model.CommitResult{Committed: 1, TotalPosts: 364},
	}
	before := testutil.ToFloat64(metrics.CommittedPosts)

	res, err := NewTrigger(fb, fb, fb).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.CommitResult{Committed: 1, TotalPosts: 364}, res.CommitResult)
	assert.Equal(t, 1, fb.commits)
	assert.Equal(t, before+364, testutil.ToFloat64(metrics.CommittedPosts))
}

func TestRunNoCapacity(t *testing.T) {
	fb := &fakeBackend{snap: model.CapacitySnapshot{}}
	res, err := NewTrigger(fb, fb, fb).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoCapacity)
	assert.True(t, res.Preview.Allocation.NoCapacity)
	assert.Zero(t, fb.commits)
}

func TestRunNothingEnabled(t *testing.T) {
	off := mustAccount(t, "a1", "cobie", model.PriorityHigh, model.ModeBoth)
	off.Enabled = false
	fb := &fakeBackend{targets: []model.Target{off}, snap: model.CapacitySnapshot{TotalCapacity: 280, Remaining: 280}}
	_, err := NewTrigger(fb, fb, fb).Run(context.Background())
	assert.ErrorIs(t, err, ErrNothingToCommit)
	assert.Zero(t, fb.commits)
}

func TestRunPropagatesCommitError(t *testing.T) {
	boom := errors.New("boom")
	fb := &fakeBackend{
		targets:   []model.Target{mustKeyword(t, "k1", "eth", model.PriorityLow)},
		snap:      model.CapacitySnapshot{TotalCapacity: 280, Remaining: 280},
		commitErr: boom,
	}
	before := testutil.ToFloat64(metrics.CommitErrors)
	_, err := NewTrigger(fb, fb, fb).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.CommitErrors))
}
