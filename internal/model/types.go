package model

import "time"

// TargetType distinguishes keyword queries from tracked accounts.
type TargetType string

const (
	TypeKeyword TargetType = "KEYWORD"
	TypeAccount TargetType = "ACCOUNT"
)

// Priority is the scheduling tier of a target.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Rank orders priorities for execution: lower runs first.
// Unknown values sort after LOW.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Mode selects which posts of a tracked account are fetched.
type Mode string

const (
	ModeTweets  Mode = "TWEETS"
	ModeReplies Mode = "REPLIES"
	ModeBoth    Mode = "BOTH"
)

// TimeRange bounds how far back a keyword search looks.
type TimeRange string

const (
	Range24h TimeRange = "24h"
	Range48h TimeRange = "48h"
	Range7d  TimeRange = "7d"
)

// KeywordFilters narrow a keyword search. Zero MinLikes/MinReposts mean unset.
type KeywordFilters struct {
	MinLikes   int       `json:"minLikes,omitempty" yaml:"minLikes,omitempty"`
	MinReposts int       `json:"minReposts,omitempty" yaml:"minReposts,omitempty"`
	TimeRange  TimeRange `json:"timeRange" yaml:"timeRange"`
}

// Spec is the type-specific part of a target. It is implemented only by
// KeywordSpec and AccountSpec, so a target carries exactly one of them.
type Spec interface {
	Type() TargetType
	isSpec()
}

// KeywordSpec is the payload of a KEYWORD target.
type KeywordSpec struct {
	Filters KeywordFilters
}

func (KeywordSpec) Type() TargetType { return TypeKeyword }
func (KeywordSpec) isSpec()          {}

// AccountSpec is the payload of an ACCOUNT target.
type AccountSpec struct {
	Mode Mode
}

func (AccountSpec) Type() TargetType { return TypeAccount }
func (AccountSpec) isSpec()          {}

// Target is a monitoring directive competing for shared parsing capacity.
type Target struct {
	ID        string
	Query     string
	Priority  Priority
	Enabled   bool
	Spec      Spec
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Type reports the target's type, derived from its spec.
func (t Target) Type() TargetType {
	if t.Spec == nil {
		return ""
	}
	return t.Spec.Type()
}

// Label is the display text used in plans: the keyword text or @handle.
func (t Target) Label() string {
	if t.Type() == TypeAccount {
		return "@" + t.Query
	}
	return t.Query
}

// KeywordFilters returns the filters of a keyword target.
func (t Target) KeywordFilters() (KeywordFilters, bool) {
	ks, ok := t.Spec.(KeywordSpec)
	return ks.Filters, ok
}

// AccountMode returns the mode of an account target.
func (t Target) AccountMode() (Mode, bool) {
	as, ok := t.Spec.(AccountSpec)
	return as.Mode, ok
}

// CapacitySnapshot is the backend-reported view of the current hourly window.
type CapacitySnapshot struct {
	TotalCapacity         int `json:"postsPerHour"`
	Remaining             int `json:"remainingHour"`
	Planned               int `json:"plannedThisHour"`
	WindowResetsInMinutes int `json:"windowResetsIn"`
}

// ExecutionOrderEntry is one ranked line of an execution plan.
type ExecutionOrderEntry struct {
	TargetID       string     `json:"targetId"`
	Label          string     `json:"label"`
	Type           TargetType `json:"type"`
	Priority       Priority   `json:"priority"`
	EstimatedYield int        `json:"estimatedYield"`
}

// CommitResult is what the backend reports after materializing a cycle.
type CommitResult struct {
	Committed  int `json:"committed"`
	TotalPosts int `json:"totalPosts"`
}
