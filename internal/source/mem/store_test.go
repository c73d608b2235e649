package mem

import (
	"context"
	"errors"
	"testing"
	"time"

	"calgrid/internal/model"
)

func at(d, hh int) time.Time {
	return time.Date(2025, 3, d, hh, 0, 0, 0, time.Local)
}

func seed(t *testing.T, s *Store, ev model.Event) model.Event {
	t.Helper()
	created, err := s.CreateEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	return created
}

func TestCreateEvent_Validation(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	if _, err := s.CreateEvent(ctx, model.Event{Title: "  ", Start: at(1, 9), End: at(1, 10)}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := s.CreateEvent(ctx, model.Event{Title: "x", Start: at(1, 10), End: at(1, 9)}); !errors.Is(err, ErrInvalidTimes) {
		t.Fatalf("expected ErrInvalidTimes, got %v", err)
	}

	created, err := s.CreateEvent(ctx, model.Event{Title: "ok", Start: at(1, 9), End: at(1, 10)})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if created.ID == "" {
		t.Fatal("created event has no ID")
	}
}

func TestFetchEvents_RangeFilter(t *testing.T) {
	t.Parallel()

	s := NewStore()
	inRange := seed(t, s, model.Event{Title: "in", Start: at(10, 9), End: at(10, 10)})
	seed(t, s, model.Event{Title: "out", Start: at(25, 9), End: at(25, 10)})

	got, err := s.FetchEvents(context.Background(), model.DateRange{Start: at(9, 0), End: at(12, 0)}, "")
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != inRange.ID {
		t.Fatalf("expected only the in-range event, got %+v", got)
	}
}

func TestFetchEvents_TemplatesReturnedUnexpanded(t *testing.T) {
	t.Parallel()

	s := NewStore()
	seed(t, s, model.Event{
		Title:      "weekly",
		Start:      at(1, 10),
		End:        at(1, 11),
		Recurrence: &model.RecurrenceRule{Frequency: model.FreqWeekly, Interval: 1},
	})

	// Range far after the template's own span still returns it.
	got, err := s.FetchEvents(context.Background(), model.DateRange{Start: at(20, 0), End: at(27, 0)}, "")
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(got) != 1 || !got[0].IsTemplate() {
		t.Fatalf("expected the un-expanded template, got %+v", got)
	}
}

func TestFetchEvents_Search(t *testing.T) {
	t.Parallel()

	s := NewStore()
	seed(t, s, model.Event{Title: "Team Standup", Start: at(10, 9), End: at(10, 10)})
	seed(t, s, model.Event{Title: "Dentist", Location: "Main St", Start: at(10, 11), End: at(10, 12)})

	r := model.DateRange{Start: at(9, 0), End: at(12, 0)}

	got, _ := s.FetchEvents(context.Background(), r, "standup")
	if len(got) != 1 || got[0].Title != "Team Standup" {
		t.Fatalf("title search failed: %+v", got)
	}

	got, _ = s.FetchEvents(context.Background(), r, "main st")
	if len(got) != 1 || got[0].Title != "Dentist" {
		t.Fatalf("location search failed: %+v", got)
	}
}

func TestFetchEvents_DeterministicOrder(t *testing.T) {
	t.Parallel()

	s := NewStore()
	seed(t, s, model.Event{Title: "b", Start: at(10, 11), End: at(10, 12)})
	seed(t, s, model.Event{Title: "a", Start: at(10, 9), End: at(10, 10)})

	r := model.DateRange{Start: at(9, 0), End: at(12, 0)}
	first, _ := s.FetchEvents(context.Background(), r, "")
	second, _ := s.FetchEvents(context.Background(), r, "")

	if len(first) != 2 || first[0].Title != "a" {
		t.Fatalf("events not ordered by start: %+v", first)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatal("fetch order is not deterministic")
		}
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()
	created := seed(t, s, model.Event{Title: "v1", Start: at(10, 9), End: at(10, 10)})

	created.Title = "v2"
	updated, err := s.UpdateEvent(ctx, created)
	if err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if updated.Title != "v2" {
		t.Fatalf("title = %q", updated.Title)
	}

	if err := s.DeleteEvent(ctx, created.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}
	if err := s.DeleteEvent(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCalendar_CascadesToEvents(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ctx := context.Background()

	cal, err := s.CreateCalendar(ctx, model.Calendar{Name: "Work", Color: "#123456"})
	if err != nil {
		t.Fatalf("CreateCalendar() error = %v", err)
	}
	seed(t, s, model.Event{Title: "mtg", CalendarID: cal.ID, Start: at(10, 9), End: at(10, 10)})

	if err := s.DeleteCalendar(ctx, cal.ID); err != nil {
		t.Fatalf("DeleteCalendar() error = %v", err)
	}

	got, _ := s.FetchEvents(ctx, model.DateRange{Start: at(1, 0), End: at(28, 0)}, "")
	if len(got) != 0 {
		t.Fatalf("orphan events survived calendar delete: %+v", got)
	}
	cals, _ := s.FetchCalendars(ctx)
	if len(cals) != 0 {
		t.Fatalf("calendar survived delete: %+v", cals)
	}
}
