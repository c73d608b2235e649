package layout

import (
	"errors"
	"sort"
	"time"

	appLog "calgrid/internal/log"
	"calgrid/internal/model"
)

const minutesPerDay = 24 * 60

var (
	// ErrNonPositiveDuration is returned when an event ends at or before
	// its start. The engine fails the computation instead of clamping the
	// height to zero.
	ErrNonPositiveDuration = errors.New("layout: event end is not after start")

	// ErrAllDay is returned for all-day events, which render in a fixed
	// slot and never enter the time grid.
	ErrAllDay = errors.New("layout: all-day events are not positioned")
)

// Placed is one event positioned on a 24-hour day column.
type Placed struct {
	Event model.Event `json:"event"`

	// Top and Height are fractions of the full day (0..1).
	Top    float64 `json:"top"`
	Height float64 `json:"height"`

	// Lane is the horizontal slot within the event's overlap cluster;
	// LaneCount is the cluster's total lane count. Width and offset
	// follow as 1/LaneCount and Lane/LaneCount.
	Lane      int `json:"lane"`
	LaneCount int `json:"lane_count"`
}

// Width returns the fractional horizontal width of the event block.
func (p Placed) Width() float64 { return 1 / float64(p.LaneCount) }

// Left returns the fractional horizontal offset of the event block.
func (p Placed) Left() float64 { return float64(p.Lane) / float64(p.LaneCount) }

// Position computes the vertical placement of a timed event: top is
// minutes since midnight over 1440, height is the duration in minutes
// over 1440. Height is always > 0 for a valid event.
func Position(ev model.Event) (top, height float64, err error) {
	if ev.AllDay {
		return 0, 0, ErrAllDay
	}
	if !ev.End.After(ev.Start) {
		return 0, 0, ErrNonPositiveDuration
	}
	top = float64(ev.Start.Hour()*60+ev.Start.Minute()) / minutesPerDay
	height = ev.End.Sub(ev.Start).Minutes() / minutesPerDay
	return top, height, nil
}

// Lanes lays out one day's timed events with deterministic horizontal
// lane assignment: events are sorted by start ascending (duration
// descending, then ID, on ties), each takes the smallest lane whose
// previous occupant has already ended, and every event in an overlap
// cluster shares the cluster's lane count. Two events overlap when one
// starts strictly before the other ends.
//
// Events that fail Position (all-day, non-positive duration) are logged
// and skipped; one bad event never fails the day.
func Lanes(events []model.Event) []Placed {
	placed := positionAll(events)

	sort.SliceStable(placed, func(i, j int) bool {
		a, b := placed[i].Event, placed[j].Event
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		da, db := a.Duration(), b.Duration()
		if da != db {
			return da > db
		}
		return a.ID < b.ID
	})

	var (
		cluster    []int // indices into placed
		laneEnds   []time.Time
		clusterEnd time.Time
	)

	flush := func() {
		for _, i := range cluster {
			placed[i].LaneCount = len(laneEnds)
		}
		cluster = cluster[:0]
		laneEnds = laneEnds[:0]
	}

	for i := range placed {
		ev := placed[i].Event

		// A gap to every prior event in the cluster closes it; lane
		// indices reset so a lone later event gets lane 0 at full width.
		if len(cluster) > 0 && !ev.Start.Before(clusterEnd) {
			flush()
		}

		lane := -1
		for l, end := range laneEnds {
			if !ev.Start.Before(end) {
				lane = l
				laneEnds[l] = ev.End
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, ev.End)
		}

		placed[i].Lane = lane
		cluster = append(cluster, i)
		if ev.End.After(clusterEnd) {
			clusterEnd = ev.End
		}
	}
	flush()

	return placed
}

// Legacy lays out events the way the historical renderer did: every
// block spans the full column width and overlapping events simply stack.
// Kept for regression parity with the pre-lane output.
func Legacy(events []model.Event) []Placed {
	placed := positionAll(events)
	for i := range placed {
		placed[i].Lane = 0
		placed[i].LaneCount = 1
	}
	return placed
}

// Overlap reports whether two events occupy intersecting time spans.
func Overlap(a, b model.Event) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func positionAll(events []model.Event) []Placed {
	placed := make([]Placed, 0, len(events))
	for _, ev := range events {
		top, height, err := Position(ev)
		if err != nil {
			appLog.Error("cannot position event, skipping", err, "event_id", ev.ID)
			continue
		}
		placed = append(placed, Placed{Event: ev, Top: top, Height: height})
	}
	return placed
}
