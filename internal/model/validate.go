package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidTarget   = errors.New("invalid target")
	ErrUnknownType     = errors.New("unknown target type")
	ErrUnknownPriority = errors.New("unknown priority")
	ErrUnknownMode     = errors.New("unknown mode")
	ErrImmutableField  = errors.New("immutable field")
)

var (
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// NormalizeQuery trims and collapses whitespace to single spaces.
func NormalizeQuery(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func normalizeHandle(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// normalizeFor applies the constructor's normalization for typ.
func normalizeFor(typ TargetType, q string) string {
	if typ == TypeAccount {
		return normalizeHandle(q)
	}
	return NormalizeQuery(q)
}

// ValidHandle reports whether s is an acceptable account handle.
func ValidHandle(s string) bool { return handlePattern.MatchString(s) }

// ParseType, ParsePriority and ParseMode accept values case-insensitively.
func ParseType(s string) (TargetType, error) {
	switch t := TargetType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeKeyword, TypeAccount:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeTweets, ModeReplies, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

func validTimeRange(r TimeRange) bool {
	switch r {
	case Range24h, Range48h, Range7d:
		return true
	}
	return false
}

// Validate checks the target against the data model invariants.
func Validate(t Target) error {
	switch t.Priority {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidTarget, ErrUnknownPriority, t.Priority)
	}
	switch s := t.Spec.(type) {
	case KeywordSpec:
		if strings.TrimSpace(t.Query) == "" {
			return fmt.Errorf("%w: empty keyword query", ErrInvalidTarget)
		}
		f := s.Filters
		if f.MinLikes < 0 || f.MinReposts < 0 {
			return fmt.Errorf("%w: negative filter threshold", ErrInvalidTarget)
		}
		if !validTimeRange(f.TimeRange) {
			return fmt.Errorf("%w: time range %q", ErrInvalidTarget, f.TimeRange)
		}
	case AccountSpec:
		if !ValidHandle(t.Query) {
			return fmt.Errorf("%w: handle %q", ErrInvalidTarget, t.Query)
		}
		switch s.Mode {
		case ModeTweets, ModeReplies, ModeBoth:
		default:
			return fmt.Errorf("%w: %w: %q", ErrInvalidTarget, ErrUnknownMode, s.Mode)
		}
	case nil:
		return fmt.Errorf("%w: missing filters or mode", ErrInvalidTarget)
	default:
		return fmt.Errorf("%w: %w", ErrInvalidTarget, ErrUnknownType)
	}
	return nil
}

// ValidateAll rejects the whole set if any target is malformed.
func ValidateAll(targets []Target) error {
	for _, t := range targets {
		if err := Validate(t); err != nil {
			return fmt.Errorf("target %s: %w", t.ID, err)
		}
	}
	return nil
}

// NewKeyword builds an enabled keyword target.
func NewKeyword(query string, p Priority, f KeywordFilters) (Target, error) {
	if f.TimeRange == "" {
		f.TimeRange = Range24h
	}
	t := Target{Query: NormalizeQuery(query), Priority: p, Enabled: true, Spec: KeywordSpec{Filters: f}}
	return t, Validate(t)
}

// NewAccount builds an enabled account target. A leading @ is stripped.
func NewAccount(handle string, p Priority, m Mode) (Target, error) {
	t := Target{Query: normalizeHandle(handle), Priority: p, Enabled: true, Spec: AccountSpec{Mode: m}}
	return t, Validate(t)
}

// Assemble rebuilds a target from flat storage or wire fields. Exactly one
// of filters or mode must be present and it must match typ.
func Assemble(id string, typ TargetType, query string, p Priority, enabled bool, filters *KeywordFilters, mode Mode) (Target, error) {
	t := Target{ID: id, Query: query, Priority: p, Enabled: enabled}
	switch typ {
	case TypeKeyword:
		if filters == nil || mode != "" {
			return t, fmt.Errorf("%w: keyword target needs filters and no mode", ErrInvalidTarget)
		}
		t.Spec = KeywordSpec{Filters: *filters}
	case TypeAccount:
		if filters != nil || mode == "" {
			return t, fmt.Errorf("%w: account target needs mode and no filters", ErrInvalidTarget)
		}
		t.Spec = AccountSpec{Mode: mode}
	default:
		return t, fmt.Errorf("%w: %w: %q", ErrInvalidTarget, ErrUnknownType, typ)
	}
	return t, Validate(t)
}

// Edit is a partial update. ID and type never change; Query may only be
// repeated with its current value.
type Edit struct {
	Query    *string         `json:"query,omitempty"`
	Priority *Priority       `json:"priority,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
	Filters  *KeywordFilters `json:"filters,omitempty"`
	Mode     *Mode           `json:"mode,omitempty"`
}

// ApplyEdit returns t with e applied, or an error if e breaks an invariant.
func ApplyEdit(t Target, e Edit) (Target, error) {
	out := t
	if e.Query != nil && normalizeFor(t.Type(), *e.Query) != t.Query {
		return t, fmt.Errorf("%w: query", ErrImmutableField)
	}
	if e.Priority != nil {
		out.Priority = *e.Priority
	}
	if e.Enabled != nil {
		out.Enabled = *e.Enabled
	}
	switch t.Spec.(type) {
	case KeywordSpec:
		if e.Mode != nil {
			return t, fmt.Errorf("%w: mode on keyword target", ErrInvalidTarget)
		}
		if e.Filters != nil {
			f := *e.Filters
			if f.TimeRange == "" {
				f.TimeRange = Range24h
			}
			out.Spec = KeywordSpec{Filters: f}
		}
	case AccountSpec:
		if e.Filters != nil {
			return t, fmt.Errorf("%w: filters on account target", ErrInvalidTarget)
		}
		if e.Mode != nil {
			out.Spec = AccountSpec{Mode: *e.Mode}
		}
	}
	if err := Validate(out); err != nil {
		return t, err
	}
	return out, nil
}
