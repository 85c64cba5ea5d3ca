package planner

import (
	"sort"

	"targetscope/internal/capacity"
	"targetscope/internal/model"
	"targetscope/internal/yield"
)

// DefaultPreviewSize is how many entries the UI shows.
const DefaultPreviewSize = 6

// PlanExecutionOrder ranks every enabled target: priority (HIGH first), then
// KEYWORD before ACCOUNT, then estimated yield descending. Ties keep input
// order. Yields are recomputed against the current keyword pool.
// Targets must already be validated.
func PlanExecutionOrder(targets []model.Target) []model.ExecutionOrderEntry {
	active := yield.ActiveKeywordCount(targets)
	entries := make([]model.ExecutionOrderEntry, 0, len(targets))
	for _, t := range targets {
		if !t.Enabled {
			continue
		}
		entries = append(entries, model.ExecutionOrderEntry{
			TargetID:       t.ID,
			Label:          t.Label(),
			Type:           t.Type(),
			Priority:       t.Priority,
			EstimatedYield: yield.Estimate(t, active),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return entries
}

func less(a, b model.ExecutionOrderEntry) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if ta, tb := typeRank(a.Type), typeRank(b.Type); ta != tb {
		return ta < tb
	}
	return a.EstimatedYield > b.EstimatedYield
}

func typeRank(t model.TargetType) int {
	switch t {
	case model.TypeKeyword:
		return 0
	case model.TypeAccount:
		return 1
	}
	return 2
}

// Preview returns the first n entries of a full plan. n <= 0 selects
// DefaultPreviewSize.
func Preview(entries []model.ExecutionOrderEntry, n int) []model.ExecutionOrderEntry {
	if n <= 0 {
		n = DefaultPreviewSize
	}
	if n > len(entries) {
		n = len(entries)
	}
	return entries[:n]
}

// Summary totals a plan's projected load per type.
type Summary struct {
	Keywords     int `json:"keywords"`
	Accounts     int `json:"accounts"`
	KeywordPosts int `json:"keywordPosts"`
	AccountPosts int `json:"accountPosts"`
	TotalPosts   int `json:"totalPosts"`
}

func Summarize(entries []model.ExecutionOrderEntry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Type {
		case model.TypeKeyword:
			s.Keywords++
			s.KeywordPosts += e.EstimatedYield
		case model.TypeAccount:
			s.Accounts++
			s.AccountPosts += e.EstimatedYield
		}
	}
	s.TotalPosts = s.KeywordPosts + s.AccountPosts
	return s
}

// Slot is a plan entry with its fit against the band budget.
type Slot struct {
	model.ExecutionOrderEntry
	Cumulative int  `json:"cumulative"`
	WithinBand bool `json:"withinBand"`
}

// Fit walks the plan in order and marks which entries fit their type's band.
// An entry that does not fit is skipped; later, smaller entries may still fit.
func Fit(entries []model.ExecutionOrderEntry, alloc capacity.Allocation) []Slot {
	used := map[model.TargetType]int{}
	out := make([]Slot, 0, len(entries))
	for _, e := range entries {
		s := Slot{ExecutionOrderEntry: e}
		if used[e.Type]+e.EstimatedYield <= alloc.BandFor(e.Type) {
			used[e.Type] += e.EstimatedYield
			s.WithinBand = true
		}
		s.Cumulative = used[e.Type]
		out = append(out, s)
	}
	return out
}
