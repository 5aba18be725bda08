package world

import (
	"math"
	"math/rand"

	"dogcourier.ai/internal/sim/geom"
)

// spawnPoint picks a position on a road of m. Without randomize it is the
// start of the first road.
func spawnPoint(m *Map, rng *rand.Rand, randomize bool) geom.Point {
	if !randomize || rng == nil {
		return m.Roads[0].Start
	}
	r := m.Roads[0]
	if len(m.Roads) > 1 {
		r = m.Roads[rng.Intn(len(m.Roads))]
	}
	lateral := (rng.Float64()*2 - 1) * r.Width / 2
	var p geom.Point
	if r.IsHorizontal() {
		lo, hi := math.Min(r.Start.X, r.End.X), math.Max(r.Start.X, r.End.X)
		p = geom.Point{X: lo + rng.Float64()*(hi-lo), Y: r.Start.Y + lateral}
	} else {
		lo, hi := math.Min(r.Start.Y, r.End.Y), math.Max(r.Start.Y, r.End.Y)
		p = geom.Point{X: r.Start.X + lateral, Y: lo + rng.Float64()*(hi-lo)}
	}
	p = geom.Point{X: geom.Floor2(p.X), Y: geom.Floor2(p.Y)}
	// Flooring can step just past the lower border.
	return r.Borders().Clamp(p)
}
