package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"targetscope/internal/model"
)

func TestBandsSumToOne(t *testing.T) {
	b := GetCapacityBands()
	assert.Equal(t, 10000, b.TotalBasisPoints())
	assert.Equal(t, 0.55, b.KeywordsShare())
	assert.Equal(t, 0.35, b.AccountsShare())
	assert.Equal(t, 0.10, b.ReservedShare())
	assert.InDelta(t, 1.0, b.KeywordsShare()+b.AccountsShare()+b.ReservedShare(), 1e-12)
}

func TestSplitKeepsRemainderInReserved(t *testing.T) {
	a := NewAllocator()
	for _, total := range []int{0, 1, 7, 99, 280, 1000, 1234} {
		got := a.Split(total)
		assert.Equal(t, total, got.Keywords+got.Accounts+got.Reserved, "total=%d", total)
		assert.Equal(t, got.Keywords+got.Accounts, got.Allocatable())
	}
	got := a.Split(1000)
	assert.Equal(t, 550, got.Keywords)
	assert.Equal(t, 350, got.Accounts)
	assert.Equal(t, 100, got.Reserved)
	assert.Equal(t, 550, got.BandFor(model.TypeKeyword))
	assert.Equal(t, 350, got.BandFor(model.TypeAccount))
}

func TestAllocateNoCapacity(t *testing.T) {
	got := Allocate(model.CapacitySnapshot{}, 0)
	assert.True(t, got.NoCapacity)
	assert.Zero(t, got.Allocatable())

	// Targets exist but nothing to run them on: a valid zero split.
	got = Allocate(model.CapacitySnapshot{}, 3)
	assert.False(t, got.NoCapacity)
	assert.Zero(t, got.Total)

	// Capacity without targets is still reported.
	got = Allocate(model.CapacitySnapshot{TotalCapacity: 280}, 0)
	assert.False(t, got.NoCapacity)
	assert.Equal(t, 154, got.Keywords)
}

func TestWithBandsOverride(t *testing.T) {
	a := NewAllocator(WithBands(Bands{KeywordsBP: 5000, AccountsBP: 5000}))
	got := a.Split(100)
	assert.Equal(t, 50, got.Keywords)
	assert.Equal(t, 50, got.Accounts)
	assert.Zero(t, got.Reserved)
	assert.Equal(t, 0.5, got.Shares.KeywordsShare)
}

func TestWindowSplitsRemaining(t *testing.T) {
	a := NewAllocator()
	snap := model.CapacitySnapshot{TotalCapacity: 1000, Remaining: 440, Planned: 560}
	w := a.Window(snap)
	assert.Equal(t, 440, w.Total)
	assert.Equal(t, 242, w.Keywords)
	assert.Equal(t, 154, w.Accounts)
	assert.Equal(t, 44, w.Reserved)
	assert.Equal(t, 1000, a.Allocate(snap, 1).Total)
}
