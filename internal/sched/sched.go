// Package sched drives periodic snapshot refresh at the fetch boundary.
package sched

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "calgrid/internal/log"
	"calgrid/internal/source"
	"calgrid/internal/state"
)

// Refresher re-fetches the active range on a cron schedule and applies
// the result as a complete replacement snapshot, fenced by the state's
// fetch generation so a slow tick never overwrites a newer one.
type Refresher struct {
	src  source.Source
	ref  *state.Ref
	cron *cron.Cron
}

// New creates a Refresher over the given source and state holder.
func New(src source.Source, ref *state.Ref) *Refresher {
	return &Refresher{src: src, ref: ref}
}

// Start schedules periodic refresh with the given cron spec and runs an
// immediate initial refresh. Stop cancels the schedule.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := r.RefreshEvents(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("sched: bad cron spec %q: %w", spec, err)
	}
	r.cron = c
	c.Start()

	if err := r.RefreshCalendars(ctx); err != nil {
		appLog.Error("initial calendar fetch failed", err)
	}
	if err := r.RefreshEvents(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}
	return nil
}

// Stop halts the cron schedule. Safe to call when never started.
func (r *Refresher) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// RefreshEvents fetches the working set for the current anchor, view and
// search query. The snapshot replaces the previous one wholesale; there
// is no incremental merge.
func (r *Refresher) RefreshEvents(ctx context.Context) error {
	var gen uint64
	st := r.ref.Update(func(s state.State) state.State {
		next, g := s.BeginFetch()
		gen = g
		return next
	})

	rng, err := st.Range()
	if err != nil {
		r.ref.Update(func(s state.State) state.State {
			next, _ := s.FailFetch(gen, err.Error())
			return next
		})
		return err
	}

	events, err := r.src.FetchEvents(ctx, rng, st.Search)
	if err != nil {
		r.ref.Update(func(s state.State) state.State {
			next, _ := s.FailFetch(gen, err.Error())
			return next
		})
		return err
	}

	applied := false
	r.ref.Update(func(s state.State) state.State {
		next, ok := s.ApplyFetch(gen, events)
		applied = ok
		return next
	})
	if !applied {
		appLog.Debug("stale fetch discarded", "generation", gen)
		return nil
	}

	appLog.Info("snapshot refreshed",
		"events", len(events),
		"range_start", rng.Start.Format("2006-01-02"),
		"range_end", rng.End.Format("2006-01-02"),
		"generation", gen,
	)
	return nil
}

// RefreshCalendars reloads the calendar list. On the first successful
// load every calendar is selected, matching the original bootstrap flow.
func (r *Refresher) RefreshCalendars(ctx context.Context) error {
	cals, err := r.src.FetchCalendars(ctx)
	if err != nil {
		return err
	}
	r.ref.Update(func(s state.State) state.State {
		firstLoad := len(s.Calendars) == 0 && len(s.Selection) == 0
		s = s.WithCalendars(cals)
		if firstLoad {
			s = s.SelectAll()
		}
		return s
	})
	return nil
}
