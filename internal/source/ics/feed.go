package ics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/source"
)

// maxOccurrencesPerEvent caps RRULE expansion per VEVENT, mirroring the
// cap on the core expander.
const maxOccurrencesPerEvent = 1000

// Feed is a read-only event source backed by one ICS subscription.
// Calendar mutations do not apply; a feed contributes exactly one
// calendar whose ID is the feed ID.
type Feed struct {
	ID    string
	Name  string
	Color string
	URL   string

	fetcher *source.Fetcher
}

// NewFeed creates a Feed fetching through the given caching fetcher.
func NewFeed(id, name, color, url string, fetcher *source.Fetcher) *Feed {
	return &Feed{ID: id, Name: name, Color: color, URL: url, fetcher: fetcher}
}

// FetchCalendars returns the feed's single synthetic calendar entry.
func (f *Feed) FetchCalendars(_ context.Context) ([]model.Calendar, error) {
	return []model.Calendar{{ID: f.ID, Name: f.Name, Color: f.Color}}, nil
}

// FetchEvents downloads the feed, parses it, and expands every VEVENT
// into concrete events intersecting r. The free-text query is applied
// locally since an ICS endpoint has no server-side search.
func (f *Feed) FetchEvents(ctx context.Context, r model.DateRange, query string) ([]model.Event, error) {
	body, fromCache, err := f.fetcher.Get(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("ics: fetch %s: %w", source.RedactURL(f.URL), err)
	}
	appLog.Debug("ics feed fetched", "feed", f.ID, "from_cache", fromCache, "bytes", len(body))

	parsed, err := parseICS(f.ID, body)
	if err != nil {
		return nil, fmt.Errorf("ics: parse feed %s: %w", f.ID, err)
	}

	// Split plain/base events from per-instance overrides.
	var bases []parsedEvent
	overrides := make(map[string][]parsedEvent)
	for _, ev := range parsed {
		if ev.isOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			bases = append(bases, ev)
		}
	}

	var out []model.Event
	for _, ev := range bases {
		occs := f.expand(ev, overrides[ev.UID], r)
		out = append(out, occs...)
	}

	if query != "" {
		out = filterQuery(out, query)
	}
	return out, nil
}

// expand resolves one base VEVENT into its occurrences within r.
func (f *Feed) expand(ev parsedEvent, overrides []parsedEvent, r model.DateRange) []model.Event {
	if ev.RawRRule == "" {
		if !r.Overlaps(ev.Start, ev.End) {
			return nil
		}
		start, end, src := ev.Start, ev.End, ev
		if o, ok := overrideFor(overrides, ev.Start); ok {
			start, end, src = o.Start, o.End, o
		}
		return []model.Event{f.toEvent(src, start, end)}
	}

	rule, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("bad RRULE, skipping event", err, "feed", f.ID, "uid", ev.UID)
		return nil
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(r.Start.In(ev.Start.Location()), r.End.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		appLog.Warn("ics expansion truncated at cap", "feed", f.ID, "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		starts = starts[:maxOccurrencesPerEvent]
	}

	duration := ev.End.Sub(ev.Start)
	out := make([]model.Event, 0, len(starts))
	for _, occStart := range starts {
		occEnd := occStart.Add(duration)
		if ev.AllDay {
			day := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = day
			occEnd = day.Add(24*time.Hour - time.Second)
		}

		src := ev
		if o, ok := overrideFor(overrides, occStart); ok {
			src, occStart, occEnd = o, o.Start, o.End
		}
		out = append(out, f.toEvent(src, occStart, occEnd))
	}
	return out
}

// overrideFor finds the override whose RECURRENCE-ID matches the
// occurrence start exactly.
func overrideFor(overrides []parsedEvent, start time.Time) (parsedEvent, bool) {
	for _, o := range overrides {
		if o.RecurrenceID != nil && o.RecurrenceID.In(start.Location()).Equal(start) {
			return o, true
		}
	}
	return parsedEvent{}, false
}

// toEvent projects one occurrence into the event model. The ID embeds
// the occurrence start so every instance stays addressable and stable.
func (f *Feed) toEvent(ev parsedEvent, start, end time.Time) model.Event {
	return model.Event{
		ID:          ev.UID + "@" + start.In(time.Local).Format(time.RFC3339),
		CalendarID:  f.ID,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Color:       f.Color,
		Start:       start.In(time.Local),
		End:         end.In(time.Local),
		AllDay:      ev.AllDay,
		Kind:        model.KindConcrete,
	}
}

func filterQuery(events []model.Event, query string) []model.Event {
	q := strings.ToLower(query)
	out := events[:0]
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), q) ||
			strings.Contains(strings.ToLower(ev.Description), q) ||
			strings.Contains(strings.ToLower(ev.Location), q) {
			out = append(out, ev)
		}
	}
	return out
}
