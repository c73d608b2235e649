// Package mem is an in-memory implementation of the event-source
// contract, used by the bundled server when no upstream API is
// configured, and by tests.
package mem

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"calgrid/internal/model"
)

var (
	ErrNotFound      = errors.New("mem: not found")
	ErrEmptyTitle    = errors.New("mem: event title is required")
	ErrInvalidTimes  = errors.New("mem: event end must be after start")
	ErrEmptyCalendar = errors.New("mem: calendar name is required")
)

// Store holds calendars and event templates. Recurring templates are
// returned un-expanded; expansion is the core's job.
type Store struct {
	mu        sync.RWMutex
	events    map[string]model.Event
	calendars map[string]model.Calendar
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		events:    make(map[string]model.Event),
		calendars: make(map[string]model.Calendar),
	}
}

// FetchEvents returns events whose span intersects r. Recurring
// templates are included whenever their series could still produce
// occurrences in the range. An optional query matches title,
// description, or location case-insensitively.
func (s *Store) FetchEvents(_ context.Context, r model.DateRange, query string) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.IsTemplate() {
			// A series starting after the range can never intersect it.
			if ev.Start.After(r.End) {
				continue
			}
		} else if !r.Overlaps(ev.Start, ev.End) {
			continue
		}
		if q != "" && !matches(ev, q) {
			continue
		}
		out = append(out, ev)
	}

	// Map iteration order is random; fetches must be deterministic.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// FetchCalendars returns all calendars ordered by name.
func (s *Store) FetchCalendars(_ context.Context) ([]model.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Calendar, 0, len(s.calendars))
	for _, cal := range s.calendars {
		out = append(out, cal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateEvent validates and stores a new event, minting its ID.
func (s *Store) CreateEvent(_ context.Context, ev model.Event) (model.Event, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return model.Event{}, ErrEmptyTitle
	}
	if !ev.AllDay && !ev.End.After(ev.Start) {
		return model.Event{}, ErrInvalidTimes
	}
	if ev.Recurrence != nil {
		rule := *ev.Recurrence
		rule.Normalize()
		ev.Recurrence = &rule
	}

	ev.ID = uuid.NewString()
	ev.Kind = model.KindConcrete

	s.mu.Lock()
	s.events[ev.ID] = ev
	s.mu.Unlock()
	return ev, nil
}

// UpdateEvent replaces a stored event.
func (s *Store) UpdateEvent(_ context.Context, ev model.Event) (model.Event, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return model.Event{}, ErrEmptyTitle
	}
	if !ev.AllDay && !ev.End.After(ev.Start) {
		return model.Event{}, ErrInvalidTimes
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; !ok {
		return model.Event{}, ErrNotFound
	}
	ev.Kind = model.KindConcrete
	s.events[ev.ID] = ev
	return ev, nil
}

// DeleteEvent removes a stored event.
func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// CreateCalendar validates and stores a new calendar, minting its ID.
func (s *Store) CreateCalendar(_ context.Context, cal model.Calendar) (model.Calendar, error) {
	if strings.TrimSpace(cal.Name) == "" {
		return model.Calendar{}, ErrEmptyCalendar
	}
	cal.ID = uuid.NewString()

	s.mu.Lock()
	s.calendars[cal.ID] = cal
	s.mu.Unlock()
	return cal, nil
}

// UpdateCalendar replaces a stored calendar.
func (s *Store) UpdateCalendar(_ context.Context, cal model.Calendar) (model.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[cal.ID]; !ok {
		return model.Calendar{}, ErrNotFound
	}
	s.calendars[cal.ID] = cal
	return cal, nil
}

// DeleteCalendar removes a calendar and every event it owns.
func (s *Store) DeleteCalendar(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[id]; !ok {
		return ErrNotFound
	}
	delete(s.calendars, id)
	for evID, ev := range s.events {
		if ev.CalendarID == id {
			delete(s.events, evID)
		}
	}
	return nil
}

func matches(ev model.Event, q string) bool {
	return strings.Contains(strings.ToLower(ev.Title), q) ||
		strings.Contains(strings.ToLower(ev.Description), q) ||
		strings.Contains(strings.ToLower(ev.Location), q)
}
