package recur

import (
	"errors"
	"fmt"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// MaxInstances is the hard safety cap on occurrences produced for a
// single template, regardless of the requested range. Hitting the cap is
// not an error; callers must treat a truncated result as possibly
// incomplete.
const MaxInstances = 1000

var (
	// ErrUnknownFrequency is returned for a recurrence rule whose
	// frequency is outside the supported set. An unknown frequency would
	// otherwise never advance the cursor, so it is rejected before the
	// expansion loop starts.
	ErrUnknownFrequency = errors.New("recur: unknown recurrence frequency")

	// ErrInvalidRange is returned when the range end precedes its start.
	ErrInvalidRange = errors.New("recur: range end is before range start")

	// errCursorStalled guards the strictly-monotonic-cursor invariant.
	// With a normalized rule it is unreachable; it exists so a future
	// stepping bug surfaces as an error instead of a hang.
	errCursorStalled = errors.New("recur: expansion cursor did not advance")
)

// Result is the outcome of expanding one event over a range.
type Result struct {
	Events []model.Event
	// Truncated is set when MaxInstances was reached while occurrences
	// were still due within the requested range.
	Truncated bool
}

// Expand projects an event template onto its concrete occurrences within
// r, inclusive of both boundaries, ordered by start time.
//
// An event without a recurrence rule is passed through unchanged as a
// single-element result, which makes the expansion idempotent: feeding an
// already-concrete instance back in is a no-op.
func Expand(ev model.Event, r model.DateRange) (Result, error) {
	if r.End.Before(r.Start) {
		return Result{}, ErrInvalidRange
	}
	if !ev.IsTemplate() {
		return Result{Events: []model.Event{ev}}, nil
	}

	rule := *ev.Recurrence
	if !rule.Frequency.Known() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, rule.Frequency)
	}
	rule.Normalize()

	duration := ev.Duration()
	var out Result

	cursor := ev.Start
	for !cursor.After(r.End) {
		if r.Contains(cursor) {
			if len(out.Events) == MaxInstances {
				out.Truncated = true
				break
			}
			out.Events = append(out.Events, instance(ev, cursor, duration))
		}

		next, err := advance(cursor, rule)
		if err != nil {
			return Result{}, err
		}
		if !next.After(cursor) {
			return Result{}, errCursorStalled
		}
		cursor = next
	}

	return out, nil
}

// instance materializes one occurrence of a template at the given start.
// The rule is stripped so instances survive re-expansion unchanged, and
// the kind marks them as ephemeral (edits must target the template).
func instance(template model.Event, start time.Time, duration time.Duration) model.Event {
	occ := template
	occ.Start = start
	occ.End = start.Add(duration)
	occ.Recurrence = nil
	occ.Kind = model.KindInstance
	return occ
}

// advance moves the cursor forward by one period of the rule.
func advance(cursor time.Time, rule model.RecurrenceRule) (time.Time, error) {
	switch rule.Frequency {
	case model.FreqDaily:
		return cursor.AddDate(0, 0, rule.Interval), nil
	case model.FreqWeekly:
		return cursor.AddDate(0, 0, 7*rule.Interval), nil
	case model.FreqMonthly:
		return addMonthsClamped(cursor, rule.Interval), nil
	case model.FreqYearly:
		// Yearly is a monthly step times twelve so both frequencies
		// handle month-length differences identically.
		return addMonthsClamped(cursor, 12*rule.Interval), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, rule.Frequency)
}

// addMonthsClamped adds months to t, clamping the day-of-month to the
// length of the target month (Jan 31 + 1 month = Feb 28). time.AddDate
// would normalize the overflow into the following month instead, which
// changes which calendar day a monthly series lands on.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SetResult is the outcome of expanding a whole fetched event set.
type SetResult struct {
	Events []model.Event
	// Truncated lists IDs of templates that hit MaxInstances.
	Truncated []string
}

// ExpandAll runs Expand over every event in the fetched set. A malformed
// event fails alone: its error is logged and the rest of the set is still
// expanded, so one bad rule never blanks the whole view.
func ExpandAll(events []model.Event, r model.DateRange) SetResult {
	var out SetResult
	out.Events = make([]model.Event, 0, len(events))

	for _, ev := range events {
		res, err := Expand(ev, r)
		if err != nil {
			appLog.Error("expand failed, skipping event", err, "event_id", ev.ID)
			continue
		}
		if res.Truncated {
			out.Truncated = append(out.Truncated, ev.ID)
			appLog.Warn("expansion truncated at cap", "event_id", ev.ID, "cap", MaxInstances)
		}
		out.Events = append(out.Events, res.Events...)
	}

	return out
}
