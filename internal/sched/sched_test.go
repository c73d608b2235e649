package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"calgrid/internal/model"
	"calgrid/internal/state"
)

// stubSource returns canned data or a canned error.
type stubSource struct {
	events    []model.Event
	calendars []model.Calendar
	err       error
}

func (s *stubSource) FetchEvents(_ context.Context, _ model.DateRange, _ string) ([]model.Event, error) {
	return s.events, s.err
}

func (s *stubSource) FetchCalendars(_ context.Context) ([]model.Calendar, error) {
	return s.calendars, s.err
}

func TestRefreshEvents_InstallsSnapshot(t *testing.T) {
	t.Parallel()

	src := &stubSource{events: []model.Event{{ID: "1", Title: "x"}}}
	ref := state.NewRef(state.New(time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)))

	r := New(src, ref)
	if err := r.RefreshEvents(context.Background()); err != nil {
		t.Fatalf("RefreshEvents() error = %v", err)
	}

	st := ref.Get()
	if len(st.Events) != 1 || st.Events[0].ID != "1" {
		t.Fatalf("snapshot not installed: %+v", st.Events)
	}
	if st.Loading {
		t.Fatal("loading flag still set")
	}
}

func TestRefreshEvents_RecordsFailure(t *testing.T) {
	t.Parallel()

	src := &stubSource{err: errors.New("upstream down")}
	ref := state.NewRef(state.New(time.Now()))

	r := New(src, ref)
	if err := r.RefreshEvents(context.Background()); err == nil {
		t.Fatal("expected error from failing source")
	}

	st := ref.Get()
	if st.LastError == "" {
		t.Fatal("failure not recorded in state")
	}
	if st.Loading {
		t.Fatal("loading flag still set after failure")
	}
}

func TestRefreshCalendars_SelectsAllOnFirstLoad(t *testing.T) {
	t.Parallel()

	src := &stubSource{calendars: []model.Calendar{{ID: "A"}, {ID: "B"}}}
	ref := state.NewRef(state.New(time.Now()))

	r := New(src, ref)
	if err := r.RefreshCalendars(context.Background()); err != nil {
		t.Fatalf("RefreshCalendars() error = %v", err)
	}

	st := ref.Get()
	if !st.Selection.Has("A") || !st.Selection.Has("B") {
		t.Fatalf("first load should select everything, got %v", st.Selection)
	}

	// A later reload must not resurrect a deselected calendar.
	ref.Update(func(s state.State) state.State { return s.ToggleCalendar("A") })
	if err := r.RefreshCalendars(context.Background()); err != nil {
		t.Fatalf("RefreshCalendars() error = %v", err)
	}
	if ref.Get().Selection.Has("A") {
		t.Fatal("reload overwrote the user's selection")
	}
}

func TestStart_RejectsBadCronSpec(t *testing.T) {
	t.Parallel()

	r := New(&stubSource{}, state.NewRef(state.New(time.Now())))
	if err := r.Start(context.Background(), "not a cron spec"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
