// Package collision finds the moments at which moving gatherers pass close
// enough to stationary items to collect them during one tick.
package collision

import (
	"sort"

	"dogcourier.ai/internal/sim/geom"
)

// Gatherer sweeps the segment Start->End during a tick.
type Gatherer struct {
	Start geom.Point
	End   geom.Point
	Width float64
}

type Item struct {
	Pos   geom.Point
	Width float64
}

// Event reports that gatherer GathererID touched item ItemID at fraction Time
// of its segment. Indices refer to the slices passed to FindGatherEvents.
type Event struct {
	ItemID     int
	GathererID int
	SqDistance float64
	Time       float64
}

type Result struct {
	SqDistance float64
	ProjRatio  float64
}

// IsCollected reports whether the projection lies on the segment and the
// perpendicular distance is within radius.
func (r Result) IsCollected(radius float64) bool {
	return r.ProjRatio >= 0 && r.ProjRatio <= 1 && r.SqDistance <= radius*radius
}

// TryCollectPoint projects c onto the line through a and b. a != b.
func TryCollectPoint(a, b, c geom.Point) Result {
	u := c.Sub(a)
	v := b.Sub(a)
	uv := u.Dot(v)
	vv := v.Dot(v)
	return Result{
		SqDistance: u.Dot(u) - uv*uv/vv,
		ProjRatio:  uv / vv,
	}
}

// FindGatherEvents is pure: the same inputs always give the same events in
// the same order (time, then item, then gatherer).
func FindGatherEvents(gatherers []Gatherer, items []Item) []Event {
	var out []Event
	for gi, g := range gatherers {
		stationary := g.Start == g.End
		for ii, it := range items {
			radius := (g.Width + it.Width) / 2
			if stationary {
				d := geom.SqDist(g.Start, it.Pos)
				if d <= radius*radius {
					out = append(out, Event{ItemID: ii, GathererID: gi, SqDistance: d, Time: 0})
				}
				continue
			}
			r := TryCollectPoint(g.Start, g.End, it.Pos)
			if r.IsCollected(radius) {
				out = append(out, Event{ItemID: ii, GathererID: gi, SqDistance: r.SqDistance, Time: r.ProjRatio})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return out[i].GathererID < out[j].GathererID
	})
	return out
}
