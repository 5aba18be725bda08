package world

import (
	"math"

	"dogcourier.ai/internal/sim/geom"
)

const DefaultRoadWidth = 0.8

// Road is an axis-aligned segment. Start and End share either X or Y.
type Road struct {
	Start geom.Point
	End   geom.Point
	Width float64
}

func NewHorizontalRoad(start geom.Point, endX float64) Road {
	return Road{Start: start, End: geom.Point{X: endX, Y: start.Y}, Width: DefaultRoadWidth}
}

func NewVerticalRoad(start geom.Point, endY float64) Road {
	return Road{Start: start, End: geom.Point{X: start.X, Y: endY}, Width: DefaultRoadWidth}
}

func (r Road) IsHorizontal() bool { return r.Start.Y == r.End.Y }

// Borders is the segment's extent inflated by half the width on every side.
func (r Road) Borders() geom.Borders {
	half := r.Width / 2
	return geom.Borders{
		MinX: math.Min(r.Start.X, r.End.X) - half,
		MaxX: math.Max(r.Start.X, r.End.X) + half,
		MinY: math.Min(r.Start.Y, r.End.Y) - half,
		MaxY: math.Max(r.Start.Y, r.End.Y) + half,
	}
}

func (r Road) Contains(p geom.Point) bool { return r.Borders().Contains(p) }
