package view

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestRange_Day(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2025, 3, 14, 15, 9, 26, 0, time.Local)
	r, err := Range(anchor, ModeDay)
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if !r.Start.Equal(date(2025, 3, 14)) {
		t.Fatalf("unexpected start: %v", r.Start)
	}
	if !r.End.Equal(date(2025, 3, 15)) {
		t.Fatalf("unexpected end: %v", r.End)
	}
}

func TestRange_WeekIsExactlySevenDays(t *testing.T) {
	t.Parallel()

	// Includes a Sunday anchor, a Saturday anchor, and anchors around
	// month and year boundaries.
	anchors := []time.Time{
		date(2025, 3, 2),  // Sunday
		date(2025, 3, 8),  // Saturday
		date(2025, 3, 5),  // mid-week
		date(2024, 12, 31),
		date(2025, 1, 1),
		date(2024, 2, 29), // leap day
	}

	for _, anchor := range anchors {
		r, err := Range(anchor, ModeWeek)
		if err != nil {
			t.Fatalf("Range(%v) error = %v", anchor, err)
		}
		if r.Start.Weekday() != time.Sunday {
			t.Fatalf("week start %v is not a Sunday", r.Start)
		}
		if r.Start.After(anchor) {
			t.Fatalf("week start %v is after anchor %v", r.Start, anchor)
		}
		if got := r.End.Sub(r.Start); got != 7*24*time.Hour {
			t.Fatalf("week span = %v, want 168h (anchor %v)", got, anchor)
		}
	}
}

func TestRange_WeekSundayAnchor(t *testing.T) {
	t.Parallel()

	sunday := date(2025, 3, 2)
	r, err := Range(sunday.Add(13*time.Hour), ModeWeek)
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if !r.Start.Equal(sunday) {
		t.Fatalf("Sunday anchor should start its own week, got %v", r.Start)
	}
}

func TestRange_MonthBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		anchor    time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{date(2025, 3, 14), date(2025, 3, 1), date(2025, 4, 1)},
		{date(2025, 12, 31), date(2025, 12, 1), date(2026, 1, 1)},
		{date(2024, 2, 29), date(2024, 2, 1), date(2024, 3, 1)},
		{date(2025, 1, 1), date(2025, 1, 1), date(2025, 2, 1)},
	}

	for _, tt := range tests {
		for _, mode := range []ViewMode{ModeMonth, ModeSchedule} {
			r, err := Range(tt.anchor, mode)
			if err != nil {
				t.Fatalf("Range(%v, %v) error = %v", tt.anchor, mode, err)
			}
			if !r.Start.Equal(tt.wantStart) || !r.End.Equal(tt.wantEnd) {
				t.Fatalf("Range(%v, %v) = [%v, %v], want [%v, %v]",
					tt.anchor, mode, r.Start, r.End, tt.wantStart, tt.wantEnd)
			}
		}
	}
}

func TestRange_FourDaysAndYear(t *testing.T) {
	t.Parallel()

	r, err := Range(date(2025, 6, 29).Add(5*time.Hour), ModeFourDays)
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if !r.Start.Equal(date(2025, 6, 29)) || !r.End.Equal(date(2025, 7, 3)) {
		t.Fatalf("4days range = [%v, %v]", r.Start, r.End)
	}

	r, err = Range(date(2025, 6, 29), ModeYear)
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if !r.Start.Equal(date(2025, 1, 1)) || !r.End.Equal(date(2026, 1, 1)) {
		t.Fatalf("year range = [%v, %v]", r.Start, r.End)
	}
}

func TestRange_UnknownMode(t *testing.T) {
	t.Parallel()

	if _, err := Range(date(2025, 3, 1), ViewMode("fortnight")); !errors.Is(err, ErrUnknownViewMode) {
		t.Fatalf("expected ErrUnknownViewMode, got %v", err)
	}
	if _, err := ParseViewMode("fortnight"); !errors.Is(err, ErrUnknownViewMode) {
		t.Fatalf("expected ErrUnknownViewMode, got %v", err)
	}
}

func TestRange_Stable(t *testing.T) {
	t.Parallel()

	anchor := date(2025, 7, 9)
	for _, mode := range []ViewMode{ModeDay, ModeWeek, ModeFourDays, ModeMonth, ModeYear, ModeSchedule} {
		a, err := Range(anchor, mode)
		if err != nil {
			t.Fatalf("Range error = %v", err)
		}
		b, _ := Range(anchor, mode)
		if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
			t.Fatalf("Range(%v) not stable: %v vs %v", mode, a, b)
		}
	}
}

func TestGridRange_PadsToWeekBoundaries(t *testing.T) {
	t.Parallel()

	// July 2025 starts on a Tuesday and ends on a Thursday.
	g := GridRange(date(2025, 7, 15))
	if g.Start.Weekday() != time.Sunday {
		t.Fatalf("grid start %v is not a Sunday", g.Start)
	}
	if !g.Start.Equal(date(2025, 6, 29)) {
		t.Fatalf("grid start = %v, want 2025-06-29", g.Start)
	}
	if g.End.Weekday() != time.Saturday {
		t.Fatalf("grid end %v is not a Saturday", g.End)
	}
	if !g.End.Equal(date(2025, 8, 2).Add(24*time.Hour - time.Second)) {
		t.Fatalf("grid end = %v, want end of 2025-08-02", g.End)
	}
}

func TestMonthGridDays_WholeWeeks(t *testing.T) {
	t.Parallel()

	for m := time.January; m <= time.December; m++ {
		days := MonthGridDays(date(2025, m, 10))
		if len(days)%7 != 0 {
			t.Fatalf("%v grid has %d days, not a multiple of 7", m, len(days))
		}
		if days[0].Weekday() != time.Sunday {
			t.Fatalf("%v grid starts on %v", m, days[0].Weekday())
		}
		if days[len(days)-1].Weekday() != time.Saturday {
			t.Fatalf("%v grid ends on %v", m, days[len(days)-1].Weekday())
		}
	}
}

func TestWeekDays(t *testing.T) {
	t.Parallel()

	days := WeekDays(date(2025, 3, 5)) // Wednesday
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if !days[0].Equal(date(2025, 3, 2)) {
		t.Fatalf("week starts at %v, want 2025-03-02", days[0])
	}
	if !days[6].Equal(date(2025, 3, 8)) {
		t.Fatalf("week ends at %v, want 2025-03-08", days[6])
	}
}

func TestStep(t *testing.T) {
	t.Parallel()

	anchor := date(2025, 3, 31)
	tests := []struct {
		mode      ViewMode
		direction int
		want      time.Time
	}{
		{ModeDay, 1, date(2025, 4, 1)},
		{ModeDay, -1, date(2025, 3, 30)},
		{ModeFourDays, 1, date(2025, 4, 4)},
		{ModeWeek, 1, date(2025, 4, 7)},
		{ModeYear, 1, date(2026, 3, 31)},
		{ModeSchedule, -1, date(2025, 3, 3)}, // AddDate normalizes Feb 31
	}
	for _, tt := range tests {
		if got := Step(anchor, tt.mode, tt.direction); !got.Equal(tt.want) {
			t.Fatalf("Step(%v, %v, %d) = %v, want %v", anchor, tt.mode, tt.direction, got, tt.want)
		}
	}
}

func TestDayHours(t *testing.T) {
	t.Parallel()

	hours := DayHours()
	if len(hours) != 24 || hours[0] != 0 || hours[23] != 23 {
		t.Fatalf("unexpected hours: %v", hours)
	}
}
