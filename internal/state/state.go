package state

import (
	"time"

	"calgrid/internal/model"
	"calgrid/internal/view"
)

// State is an immutable snapshot of the calendar working set. Every
// transition returns a fresh State and leaves the receiver untouched, so
// a State value can be shared freely across goroutines. The historical
// implementation kept all of this behind a single mutable reducer; here
// the action set survives as explicit transition functions.
type State struct {
	Calendars []model.Calendar
	Events    []model.Event
	Selection model.CalendarSelection

	View   view.ViewMode
	Anchor time.Time
	Search string

	ShowHolidays  bool
	ShowBirthdays bool

	Loading   bool
	LastError string

	// Generation fences the asynchronous fetch boundary: it is bumped
	// when a fetch starts and a snapshot is only applied if no newer
	// fetch started in the meantime.
	Generation uint64
}

// New returns the initial state: month view anchored on now, holidays
// shown, nothing selected or loaded.
func New(now time.Time) State {
	return State{
		Selection:    model.CalendarSelection{},
		View:         view.ModeMonth,
		Anchor:       now,
		ShowHolidays: true,
	}
}

// Range computes the active data-fetch range from the anchor and view.
func (s State) Range() (model.DateRange, error) {
	return view.Range(s.Anchor, s.View)
}

// WithCalendars replaces the calendar list.
func (s State) WithCalendars(cals []model.Calendar) State {
	s.Calendars = cloneCalendars(cals)
	return s
}

// SelectAll marks every known calendar as selected.
func (s State) SelectAll() State {
	sel := model.CalendarSelection{}
	for _, cal := range s.Calendars {
		sel[cal.ID] = true
	}
	s.Selection = sel
	return s
}

// AddCalendar appends a calendar and selects it immediately, matching
// the behavior on calendar creation in the original flow.
func (s State) AddCalendar(cal model.Calendar) State {
	s.Calendars = append(cloneCalendars(s.Calendars), cal)
	sel := s.Selection.Clone()
	sel[cal.ID] = true
	s.Selection = sel
	return s
}

// UpdateCalendar replaces the calendar with the same ID, if present.
func (s State) UpdateCalendar(cal model.Calendar) State {
	cals := cloneCalendars(s.Calendars)
	for i := range cals {
		if cals[i].ID == cal.ID {
			cals[i] = cal
		}
	}
	s.Calendars = cals
	return s
}

// RemoveCalendar drops the calendar and removes it from the selection.
func (s State) RemoveCalendar(id string) State {
	cals := make([]model.Calendar, 0, len(s.Calendars))
	for _, cal := range s.Calendars {
		if cal.ID != id {
			cals = append(cals, cal)
		}
	}
	s.Calendars = cals

	sel := s.Selection.Clone()
	delete(sel, id)
	s.Selection = sel
	return s
}

// ToggleCalendar flips one calendar's selection.
func (s State) ToggleCalendar(id string) State {
	sel := s.Selection.Clone()
	if sel[id] {
		delete(sel, id)
	} else {
		sel[id] = true
	}
	s.Selection = sel
	return s
}

// WithEvents replaces the event working set with a complete snapshot.
func (s State) WithEvents(events []model.Event) State {
	s.Events = cloneEvents(events)
	return s
}

// AddEvent appends the result of an external create.
func (s State) AddEvent(ev model.Event) State {
	s.Events = append(cloneEvents(s.Events), ev)
	return s
}

// UpdateEvent replaces the event with the same ID, if present.
func (s State) UpdateEvent(ev model.Event) State {
	events := cloneEvents(s.Events)
	for i := range events {
		if events[i].ID == ev.ID {
			events[i] = ev
		}
	}
	s.Events = events
	return s
}

// RemoveEvent drops the event with the given ID.
func (s State) RemoveEvent(id string) State {
	events := make([]model.Event, 0, len(s.Events))
	for _, ev := range s.Events {
		if ev.ID != id {
			events = append(events, ev)
		}
	}
	s.Events = events
	return s
}

// WithView switches the view mode.
func (s State) WithView(mode view.ViewMode) State {
	s.View = mode
	return s
}

// WithAnchor moves the anchor date.
func (s State) WithAnchor(t time.Time) State {
	s.Anchor = t
	return s
}

// Navigate steps the anchor by one unit of the current view mode.
func (s State) Navigate(direction int) State {
	s.Anchor = view.Step(s.Anchor, s.View, direction)
	return s
}

// Today re-anchors on the given current time.
func (s State) Today(now time.Time) State {
	s.Anchor = now
	return s
}

// WithSearch sets the free-text query applied at the fetch boundary.
func (s State) WithSearch(query string) State {
	s.Search = query
	return s
}

// ToggleHolidays flips the holiday static source.
func (s State) ToggleHolidays() State {
	s.ShowHolidays = !s.ShowHolidays
	return s
}

// ToggleBirthdays flips the birthday static source.
func (s State) ToggleBirthdays() State {
	s.ShowBirthdays = !s.ShowBirthdays
	return s
}

// WithError records a non-fatal error message and stops loading.
func (s State) WithError(msg string) State {
	s.LastError = msg
	s.Loading = false
	return s
}

// BeginFetch marks a fetch in flight and returns its generation token.
// ApplyFetch and FailFetch discard results from superseded generations,
// so a slow stale response can never overwrite a newer snapshot.
func (s State) BeginFetch() (State, uint64) {
	s.Generation++
	s.Loading = true
	return s, s.Generation
}

// ApplyFetch installs a complete snapshot if gen is still current. The
// second return reports whether the snapshot was applied.
func (s State) ApplyFetch(gen uint64, events []model.Event) (State, bool) {
	if gen != s.Generation {
		return s, false
	}
	s.Events = cloneEvents(events)
	s.Loading = false
	s.LastError = ""
	return s, true
}

// FailFetch records a fetch failure if gen is still current.
func (s State) FailFetch(gen uint64, msg string) (State, bool) {
	if gen != s.Generation {
		return s, false
	}
	return s.WithError(msg), true
}

func cloneEvents(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	return out
}

func cloneCalendars(cals []model.Calendar) []model.Calendar {
	out := make([]model.Calendar, len(cals))
	copy(out, cals)
	return out
}
