package view

import (
	"errors"
	"fmt"
	"time"

	"calgrid/internal/model"
)

// ViewMode selects which calendar view drives the visible range.
type ViewMode string

const (
	ModeDay      ViewMode = "day"
	ModeWeek     ViewMode = "week"
	ModeFourDays ViewMode = "4days"
	ModeMonth    ViewMode = "month"
	ModeYear     ViewMode = "year"
	ModeSchedule ViewMode = "schedule"
)

// ErrUnknownViewMode is returned for a mode outside the supported set.
var ErrUnknownViewMode = errors.New("view: unknown view mode")

// ParseViewMode validates a mode string coming from config or a query
// parameter.
func ParseViewMode(s string) (ViewMode, error) {
	switch m := ViewMode(s); m {
	case ModeDay, ModeWeek, ModeFourDays, ModeMonth, ModeYear, ModeSchedule:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownViewMode, s)
}

// Range computes the data-fetch range for an anchor date and view mode.
// All arithmetic is in the anchor's location; the week starts on Sunday.
// The result is a pure function of its inputs.
func Range(anchor time.Time, mode ViewMode) (model.DateRange, error) {
	switch mode {
	case ModeDay:
		start := StartOfDay(anchor)
		return model.DateRange{Start: start, End: start.AddDate(0, 0, 1)}, nil
	case ModeFourDays:
		start := StartOfDay(anchor)
		return model.DateRange{Start: start, End: start.AddDate(0, 0, 4)}, nil
	case ModeWeek:
		start := StartOfWeek(anchor)
		return model.DateRange{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case ModeMonth, ModeSchedule:
		// Schedule shares the month data range; it only lists days that
		// contain events, so no grid padding applies.
		start := StartOfMonth(anchor)
		return model.DateRange{Start: start, End: start.AddDate(0, 1, 0)}, nil
	case ModeYear:
		start := time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, anchor.Location())
		return model.DateRange{Start: start, End: start.AddDate(1, 0, 0)}, nil
	}
	return model.DateRange{}, fmt.Errorf("%w: %q", ErrUnknownViewMode, mode)
}

// GridRange is the padded month range used for rendering: the start is
// rounded down to the previous Sunday and the end up to the end of the
// Saturday that closes the month's final week. Data fetching uses the
// unpadded Range(anchor, ModeMonth) instead.
func GridRange(anchor time.Time) model.DateRange {
	monthStart := StartOfMonth(anchor)
	lastDay := monthStart.AddDate(0, 1, -1)

	gridStart := StartOfWeek(monthStart)
	gridEnd := EndOfWeek(lastDay)
	return model.DateRange{Start: gridStart, End: gridEnd}
}

// MonthGridDays enumerates every day cell of the month grid, padding
// days from the adjacent months included.
func MonthGridDays(anchor time.Time) []time.Time {
	r := GridRange(anchor)
	days := make([]time.Time, 0, 42)
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// WeekDays returns the seven days of the week containing anchor,
// starting on Sunday.
func WeekDays(anchor time.Time) []time.Time {
	start := StartOfWeek(anchor)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// DayHours returns the hour labels 0..23 for day and week views.
func DayHours() []int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

// Step moves the anchor by one unit of the view mode in the given
// direction (+1 forward, -1 backward). Schedule steps by month like the
// month view; 4-day view steps by four days.
func Step(anchor time.Time, mode ViewMode, direction int) time.Time {
	switch mode {
	case ModeDay:
		return anchor.AddDate(0, 0, direction)
	case ModeFourDays:
		return anchor.AddDate(0, 0, 4*direction)
	case ModeWeek:
		return anchor.AddDate(0, 0, 7*direction)
	case ModeMonth, ModeSchedule:
		return anchor.AddDate(0, direction, 0)
	case ModeYear:
		return anchor.AddDate(direction, 0, 0)
	}
	return anchor
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the most recent Sunday at 00:00, or t's own
// midnight when t falls on a Sunday.
func StartOfWeek(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}

// StartOfMonth returns the first day of t's month at 00:00.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfWeek returns the last second of the Saturday closing t's week.
func EndOfWeek(t time.Time) time.Time {
	sat := StartOfDay(t).AddDate(0, 0, 6-int(t.Weekday()))
	return sat.Add(24*time.Hour - time.Second)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
