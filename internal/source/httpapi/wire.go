package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"calgrid/internal/model"
)

// flexID accepts both string and numeric identifiers; the upstream
// service historically used auto-increment integers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	return fmt.Errorf("id is neither string nor number: %s", data)
}

func (f flexID) String() string { return string(f) }

// flexRule accepts a recurrence rule either as a JSON object or as a
// JSON-encoded string (the upstream service stores rules as text).
type flexRule struct {
	Rule *model.RecurrenceRule
}

func (f *flexRule) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		data = []byte(s)
	}
	var rule model.RecurrenceRule
	if err := json.Unmarshal(data, &rule); err != nil {
		return fmt.Errorf("bad recurrence rule: %w", err)
	}
	f.Rule = &rule
	return nil
}

type wireEvent struct {
	ID          flexID   `json:"id"`
	CalendarID  flexID   `json:"calendar_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Color       string   `json:"color"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	AllDay      bool     `json:"all_day"`
	IsRecurring bool     `json:"is_recurring"`
	Recurrence  flexRule `json:"recurrence_rule"`
}

type wireCalendar struct {
	ID        flexID `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
}

func (w wireEvent) toModel() (model.Event, error) {
	start, err := parseTimestamp(w.StartTime)
	if err != nil {
		return model.Event{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseTimestamp(w.EndTime)
	if err != nil {
		return model.Event{}, fmt.Errorf("end_time: %w", err)
	}

	ev := model.Event{
		ID:          w.ID.String(),
		CalendarID:  w.CalendarID.String(),
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		Color:       w.Color,
		Start:       start,
		End:         end,
		AllDay:      w.AllDay,
		Kind:        model.KindConcrete,
	}
	if w.IsRecurring && w.Recurrence.Rule != nil {
		rule := *w.Recurrence.Rule
		rule.Normalize()
		ev.Recurrence = &rule
	}
	return ev, nil
}

func fromModel(ev model.Event) wireEvent {
	w := wireEvent{
		ID:          flexID(ev.ID),
		CalendarID:  flexID(ev.CalendarID),
		Title:       ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Color:       ev.Color,
		StartTime:   ev.Start.Format(time.RFC3339),
		EndTime:     ev.End.Format(time.RFC3339),
		AllDay:      ev.AllDay,
	}
	if ev.Recurrence != nil {
		w.IsRecurring = true
		w.Recurrence = flexRule{Rule: ev.Recurrence}
	}
	return w
}

// MarshalJSON keeps the wire shape symmetric with what we accept: rules
// go out as objects, never as embedded strings.
func (f flexRule) MarshalJSON() ([]byte, error) {
	if f.Rule == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.Rule)
}

// Timestamps arrive as RFC 3339, as naive local date-times, or as bare
// dates for all-day events.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
