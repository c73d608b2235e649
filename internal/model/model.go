package model

import "time"

// Frequency is the unit a recurrence rule advances by.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// Known reports whether f is one of the supported frequencies.
func (f Frequency) Known() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// RecurrenceRule describes how an event template repeats.
// Interval values <= 0 are treated as 1 (see Normalize).
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency"`
	Interval  int       `json:"interval"`
}

// Normalize clamps Interval to a minimum of 1. A zero interval would
// otherwise stall the expansion cursor.
func (r *RecurrenceRule) Normalize() {
	if r.Interval <= 0 {
		r.Interval = 1
	}
}

// EventKind tags the origin of an event in the merged visible set.
type EventKind int

const (
	// KindConcrete is a persisted, user-editable event.
	KindConcrete EventKind = iota
	// KindInstance is one occurrence derived from a recurring template.
	// Instances are ephemeral; edits must target the template.
	KindInstance
	// KindSynthetic is a non-persisted entry injected by a feature toggle
	// (holidays, birthdays). Never editable or deletable.
	KindSynthetic
)

// Event is a single calendar entry. An Event carrying a non-nil
// Recurrence is a template and is never rendered directly; the expander
// projects it into KindInstance events.
type Event struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendar_id"`

	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Color       string `json:"color,omitempty"`

	// Start / End are naive local wall-clock timestamps. For all-day
	// events they span the whole day and are excluded from time-grid
	// positioning.
	Start  time.Time `json:"start_time"`
	End    time.Time `json:"end_time"`
	AllDay bool      `json:"all_day,omitempty"`

	Recurrence *RecurrenceRule `json:"recurrence_rule,omitempty"`

	Kind EventKind `json:"kind"`

	// CalendarName is set on synthetic events whose calendar does not
	// exist in the user's calendar list (e.g. the holiday source).
	CalendarName string `json:"calendar_name,omitempty"`
}

// IsTemplate reports whether the event carries a recurrence rule.
func (e Event) IsTemplate() bool { return e.Recurrence != nil }

// Duration returns End - Start.
func (e Event) Duration() time.Duration { return e.End.Sub(e.Start) }

// DefaultEventColor is the final fallback when neither the event nor its
// calendar define a color.
const DefaultEventColor = "#3b82f6"

// EffectiveColor resolves the display color: event color, then owning
// calendar color, then the default blue.
func (e Event) EffectiveColor(cal *Calendar) string {
	if e.Color != "" {
		return e.Color
	}
	if cal != nil && cal.Color != "" {
		return cal.Color
	}
	return DefaultEventColor
}

// Calendar groups events and supplies their fallback color.
type Calendar struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// DateRange is an inclusive-inclusive local-time window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the range, boundaries included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Overlaps reports whether [start, end] intersects the range.
func (r DateRange) Overlaps(start, end time.Time) bool {
	if end.Before(r.Start) {
		return false
	}
	if start.After(r.End) {
		return false
	}
	return true
}

// CalendarSelection is the set of calendar IDs currently checked by the
// user. Events from unchecked calendars are hidden regardless of range.
type CalendarSelection map[string]bool

// NewSelection builds a selection from the given IDs.
func NewSelection(ids ...string) CalendarSelection {
	sel := make(CalendarSelection, len(ids))
	for _, id := range ids {
		sel[id] = true
	}
	return sel
}

// Has reports whether the calendar is selected.
func (s CalendarSelection) Has(id string) bool { return s[id] }

// Clone returns an independent copy of the selection.
func (s CalendarSelection) Clone() CalendarSelection {
	out := make(CalendarSelection, len(s))
	for id, on := range s {
		if on {
			out[id] = true
		}
	}
	return out
}
