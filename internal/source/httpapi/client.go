// Package httpapi consumes the upstream calendar CRUD service: range
// fetches flow through the caching fetcher, mutations pass straight
// through and their results refresh the caller's working set.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
	"calgrid/internal/source"
)

// Client talks to the upstream event service.
type Client struct {
	base    string
	fetcher *source.Fetcher
	client  *http.Client
}

// New creates a Client for the given base URL (e.g.
// "https://api.example.com/api"). Trailing slashes are trimmed.
func New(base string, fetcher *source.Fetcher) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		fetcher: fetcher,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchEvents retrieves events intersecting r, optionally filtered
// server-side by the free-text query. Events with unparseable
// timestamps are logged and skipped; the rest of the page survives.
func (c *Client) FetchEvents(ctx context.Context, r model.DateRange, query string) ([]model.Event, error) {
	params := url.Values{}
	params.Set("start", r.Start.Format(time.RFC3339))
	params.Set("end", r.End.Format(time.RFC3339))
	if query != "" {
		params.Set("search", query)
	}

	body, _, err := c.fetcher.Get(ctx, c.base+"/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("httpapi: fetch events: %w", err)
	}

	var payload struct {
		Events []wireEvent `json:"events"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("httpapi: decode events: %w", err)
	}

	out := make([]model.Event, 0, len(payload.Events))
	for _, we := range payload.Events {
		ev, err := we.toModel()
		if err != nil {
			appLog.Error("bad event in response, skipping", err, "event_id", we.ID.String())
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// FetchCalendars retrieves the calendar list.
func (c *Client) FetchCalendars(ctx context.Context) ([]model.Calendar, error) {
	body, _, err := c.fetcher.Get(ctx, c.base+"/calendars")
	if err != nil {
		return nil, fmt.Errorf("httpapi: fetch calendars: %w", err)
	}

	var payload struct {
		Calendars []wireCalendar `json:"calendars"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("httpapi: decode calendars: %w", err)
	}

	out := make([]model.Calendar, 0, len(payload.Calendars))
	for _, wc := range payload.Calendars {
		out = append(out, model.Calendar{
			ID:        wc.ID.String(),
			Name:      wc.Name,
			Color:     wc.Color,
			IsDefault: wc.IsDefault,
		})
	}
	return out, nil
}

// CreateEvent posts a new event and returns the stored result.
func (c *Client) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	var resp struct {
		Event wireEvent `json:"event"`
	}
	if err := c.do(ctx, http.MethodPost, "/events", fromModel(ev), &resp); err != nil {
		return model.Event{}, err
	}
	return resp.Event.toModel()
}

// UpdateEvent replaces an existing event.
func (c *Client) UpdateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	var resp struct {
		Event wireEvent `json:"event"`
	}
	if err := c.do(ctx, http.MethodPut, "/events/"+url.PathEscape(ev.ID), fromModel(ev), &resp); err != nil {
		return model.Event{}, err
	}
	return resp.Event.toModel()
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

// CreateCalendar posts a new calendar.
func (c *Client) CreateCalendar(ctx context.Context, cal model.Calendar) (model.Calendar, error) {
	var resp struct {
		Calendar wireCalendar `json:"calendar"`
	}
	if err := c.do(ctx, http.MethodPost, "/calendars", cal, &resp); err != nil {
		return model.Calendar{}, err
	}
	return model.Calendar{ID: resp.Calendar.ID.String(), Name: resp.Calendar.Name, Color: resp.Calendar.Color, IsDefault: resp.Calendar.IsDefault}, nil
}

// UpdateCalendar replaces an existing calendar.
func (c *Client) UpdateCalendar(ctx context.Context, cal model.Calendar) (model.Calendar, error) {
	var resp struct {
		Calendar wireCalendar `json:"calendar"`
	}
	if err := c.do(ctx, http.MethodPut, "/calendars/"+url.PathEscape(cal.ID), cal, &resp); err != nil {
		return model.Calendar{}, err
	}
	return model.Calendar{ID: resp.Calendar.ID.String(), Name: resp.Calendar.Name, Color: resp.Calendar.Color, IsDefault: resp.Calendar.IsDefault}, nil
}

// DeleteCalendar removes a calendar.
func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/calendars/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpapi: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("httpapi: %s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
