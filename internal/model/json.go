package model

import (
	"encoding/json"
	"time"
)

// targetWire is the flat JSON shape shared with the web UI and the backend.
type targetWire struct {
	ID        string          `json:"id"`
	Type      TargetType      `json:"type"`
	Query     string          `json:"query"`
	Priority  Priority        `json:"priority"`
	Enabled   bool            `json:"enabled"`
	Filters   *KeywordFilters `json:"filters,omitempty"`
	Mode      Mode            `json:"mode,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

func (t Target) MarshalJSON() ([]byte, error) {
	w := targetWire{ID: t.ID, Type: t.Type(), Query: t.Query, Priority: t.Priority, Enabled: t.Enabled}
	switch s := t.Spec.(type) {
	case KeywordSpec:
		f := s.Filters
		w.Filters = &f
	case AccountSpec:
		w.Mode = s.Mode
	}
	if !t.CreatedAt.IsZero() {
		w.CreatedAt = &t.CreatedAt
	}
	if !t.UpdatedAt.IsZero() {
		w.UpdatedAt = &t.UpdatedAt
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts only well-formed targets; a payload whose filters
// or mode do not match its type is rejected with ErrInvalidTarget.
func (t *Target) UnmarshalJSON(b []byte) error {
	var w targetWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := Assemble(w.ID, w.Type, w.Query, w.Priority, w.Enabled, w.Filters, w.Mode)
	if err != nil {
		return err
	}
	if w.CreatedAt != nil {
		out.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		out.UpdatedAt = *w.UpdatedAt
	}
	*t = out
	return nil
}

// Draft is the create payload: a target without identity or timestamps.
type Draft struct {
	Type     TargetType      `json:"type"`
	Query    string          `json:"query"`
	Priority Priority        `json:"priority"`
	Enabled  *bool           `json:"enabled,omitempty"`
	Filters  *KeywordFilters `json:"filters,omitempty"`
	Mode     Mode            `json:"mode,omitempty"`
}

// Target converts a draft into a validated target. Keyword drafts must carry
// filters; an empty time range defaults to 24h. Drafts default to enabled.
func (d Draft) Target() (Target, error) {
	var (
		t   Target
		err error
	)
	switch d.Type {
	case TypeKeyword:
		if d.Mode != "" {
			return t, &draftError{"mode is only valid for ACCOUNT targets"}
		}
		if d.Filters == nil {
			return t, &draftError{"filters are required for KEYWORD targets"}
		}
		t, err = NewKeyword(d.Query, d.Priority, *d.Filters)
	case TypeAccount:
		if d.Filters != nil {
			return t, &draftError{"filters are only valid for KEYWORD targets"}
		}
		m := d.Mode
		if m == "" {
			m = ModeTweets
		}
		t, err = NewAccount(d.Query, d.Priority, m)
	default:
		return t, &draftError{"type must be KEYWORD or ACCOUNT"}
	}
	if err != nil {
		return t, err
	}
	if d.Enabled != nil {
		t.Enabled = *d.Enabled
	}
	return t, nil
}

// Draft returns the create payload for t.
func (t Target) Draft() Draft {
	enabled := t.Enabled
	d := Draft{Type: t.Type(), Query: t.Query, Priority: t.Priority, Enabled: &enabled}
	switch s := t.Spec.(type) {
	case KeywordSpec:
		f := s.Filters
		d.Filters = &f
	case AccountSpec:
		d.Mode = s.Mode
	}
	return d
}

type draftError struct{ msg string }

func (e *draftError) Error() string { return ErrInvalidTarget.Error() + ": " + e.msg }
func (e *draftError) Unwrap() error { return ErrInvalidTarget }
