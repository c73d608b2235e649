package source

import (
	"context"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

// Source is the consumed event-source contract. FetchEvents must return
// events whose span intersects the range; recurring templates may come
// back un-expanded (the core expander handles them) or pre-expanded into
// concrete events (the expander passes those through untouched).
type Source interface {
	FetchEvents(ctx context.Context, r model.DateRange, query string) ([]model.Event, error)
	FetchCalendars(ctx context.Context) ([]model.Calendar, error)
}

// Multi fans a fetch out to several sources and concatenates the
// results in source order. A failing source is logged and skipped so the
// surrounding view renders partial data instead of nothing; Multi only
// errors when every source failed.
type Multi []Source

func (m Multi) FetchEvents(ctx context.Context, r model.DateRange, query string) ([]model.Event, error) {
	var (
		out     []model.Event
		lastErr error
		failed  int
	)
	for _, src := range m {
		events, err := src.FetchEvents(ctx, r, query)
		if err != nil {
			appLog.Error("source fetch failed, continuing", err)
			lastErr = err
			failed++
			continue
		}
		out = append(out, events...)
	}
	if failed == len(m) && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

func (m Multi) FetchCalendars(ctx context.Context) ([]model.Calendar, error) {
	var (
		out     []model.Calendar
		lastErr error
		failed  int
	)
	for _, src := range m {
		cals, err := src.FetchCalendars(ctx)
		if err != nil {
			appLog.Error("source calendar fetch failed, continuing", err)
			lastErr = err
			failed++
			continue
		}
		out = append(out, cals...)
	}
	if failed == len(m) && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
