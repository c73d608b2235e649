package visible

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Reserved identity of the synthetic holiday source. Holiday entries do
// not belong to any user calendar.
const (
	HolidayCalendarName = "Holidays in India"
	HolidayColor        = "#16a34a"
)

// Holiday is one entry of the static holiday table.
type Holiday struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Title   string `json:"title"`
	Country string `json:"country"`
}

//go:embed holidays.json
var holidaysRaw []byte

var holidayTable []Holiday

func init() {
	if err := json.Unmarshal(holidaysRaw, &holidayTable); err != nil {
		panic(fmt.Sprintf("visible: bad embedded holiday table: %v", err))
	}
}

// Options are the feature toggles controlling static source injection.
type Options struct {
	ShowHolidays  bool
	ShowBirthdays bool
}

// Visible merges the fetched (already recurrence-expanded) events with the
// enabled static sources. Regular events whose calendar is not in the
// selection are dropped; order is stable: regular events in input order,
// then holidays, then birthdays. The function is a pure transform — the
// input slice is never mutated and static events are materialized fresh
// on every call.
func Visible(events []model.Event, sel model.CalendarSelection, opts Options) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if sel.Has(ev.CalendarID) {
			out = append(out, ev)
		}
	}
	if opts.ShowHolidays {
		out = append(out, HolidayEvents()...)
	}
	if opts.ShowBirthdays {
		out = append(out, BirthdayEvents()...)
	}
	return out
}

// HolidayEvents materializes the static holiday table as synthetic
// all-day events spanning 00:00:00 to 23:59:59 of their day. A malformed
// table date is logged and skipped, never fatal.
func HolidayEvents() []model.Event {
	out := make([]model.Event, 0, len(holidayTable))
	for i, h := range holidayTable {
		day, err := time.ParseInLocation("2006-01-02", h.Date, time.Local)
		if err != nil {
			appLog.Error("bad holiday date, skipping", err, "date", h.Date, "title", h.Title)
			continue
		}
		out = append(out, model.Event{
			ID:           fmt.Sprintf("holiday-%d", i),
			Title:        h.Title,
			Start:        day,
			End:          day.Add(24*time.Hour - time.Second),
			AllDay:       true,
			Color:        HolidayColor,
			Kind:         model.KindSynthetic,
			CalendarName: HolidayCalendarName,
		})
	}
	return out
}

// BirthdayEvents is the second static source slot. The toggle exists in
// the state model; the source itself has no entries yet.
func BirthdayEvents() []model.Event {
	return nil
}

// HolidayCount reports the size of the static holiday table.
func HolidayCount() int { return len(holidayTable) }
