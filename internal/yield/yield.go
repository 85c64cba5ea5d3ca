// Package yield estimates how many posts per hour a target is expected to
// contribute. Keyword targets share one crawl pool; account targets are
// fetched independently and are never pooled.
package yield

import (
	"encoding/json"
	"math"

	"targetscope/internal/model"
)

const (
	// BaseAccountCapacity is the nominal posts/hour of one monitoring session,
	// split across all active keyword targets.
	BaseAccountCapacity = 280
	// BaseAccountTargetYield is the posts/hour of one tracked account.
	BaseAccountTargetYield = 140

	LikesStrictThreshold   = 50
	LikesStrictPenalty     = 0.4
	LikesModerateThreshold = 20
	LikesModeratePenalty   = 0.7
	RepostsThreshold       = 10
	RepostsPenalty         = 0.8
)

// PriorityMultiplier returns the fixed multiplier for a priority tier.
// Unknown tiers yield 0.
func PriorityMultiplier(p model.Priority) float64 {
	switch p {
	case model.PriorityHigh:
		return 1.3
	case model.PriorityMedium:
		return 1.0
	case model.PriorityLow:
		return 0.6
	}
	return 0
}

// ModeMultiplier returns the fixed multiplier for an account mode.
func ModeMultiplier(m model.Mode) float64 {
	switch m {
	case model.ModeTweets:
		return 1.0
	case model.ModeReplies:
		return 0.6
	case model.ModeBoth:
		return 1.4
	}
	return 0
}

// FilterPenalty is the product of the likes and reposts penalties.
func FilterPenalty(f model.KeywordFilters) float64 {
	m := 1.0
	switch {
	case f.MinLikes > LikesStrictThreshold:
		m *= LikesStrictPenalty
	case f.MinLikes > LikesModerateThreshold:
		m *= LikesModeratePenalty
	}
	if f.MinReposts > RepostsThreshold {
		m *= RepostsPenalty
	}
	return m
}

// EstimateKeywordYield estimates one keyword target's posts/hour.
// activeKeywordCount includes the target itself; zero means no pool and
// returns 0.
func EstimateKeywordYield(p model.Priority, activeKeywordCount int, f model.KeywordFilters) int {
	if activeKeywordCount <= 0 {
		return 0
	}
	base := float64(BaseAccountCapacity) / float64(activeKeywordCount)
	return nonNegative(math.Round(base * FilterPenalty(f) * PriorityMultiplier(p)))
}

// EstimateAccountYield estimates one account target's posts/hour.
func EstimateAccountYield(p model.Priority, m model.Mode) int {
	return nonNegative(math.Round(BaseAccountTargetYield * PriorityMultiplier(p) * ModeMultiplier(m)))
}

// Estimate dispatches on the target's type.
func Estimate(t model.Target, activeKeywordCount int) int {
	switch s := t.Spec.(type) {
	case model.KeywordSpec:
		return EstimateKeywordYield(t.Priority, activeKeywordCount, s.Filters)
	case model.AccountSpec:
		return EstimateAccountYield(t.Priority, s.Mode)
	}
	return 0
}

// ActiveKeywordCount counts enabled keyword targets.
func ActiveKeywordCount(targets []model.Target) int {
	n := 0
	for _, t := range targets {
		if t.Enabled && t.Type() == model.TypeKeyword {
			n++
		}
	}
	return n
}

// Estimated pairs a target with its current yield estimate.
type Estimated struct {
	model.Target
	EstimatedPostsPerHour int
}

// Annotate estimates every target against the current pool. Disabled
// targets are kept with a zero estimate.
func Annotate(targets []model.Target) []Estimated {
	active := ActiveKeywordCount(targets)
	out := make([]Estimated, 0, len(targets))
	for _, t := range targets {
		e := Estimated{Target: t}
		if t.Enabled {
			e.EstimatedPostsPerHour = Estimate(t, active)
		}
		out = append(out, e)
	}
	return out
}

// MarshalJSON emits the target's wire form plus estimatedPostsPerHour.
func (e Estimated) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(e.Target)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	m["estimatedPostsPerHour"] = e.EstimatedPostsPerHour
	return json.Marshal(m)
}

func nonNegative(v float64) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}
