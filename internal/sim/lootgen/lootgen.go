// Package lootgen decides how many loot items a session should spawn on a
// tick. The longer a session goes without new loot, the higher the chance.
package lootgen

import (
	"math"
	"time"
)

type Option func(*Generator)

// WithRandom injects the [0,1] source that scales the spawn probability.
// Without it the source always returns 1.
func WithRandom(f func() float64) Option {
	return func(g *Generator) { g.random = f }
}

type Generator struct {
	baseInterval    time.Duration
	probability     float64
	timeWithoutLoot time.Duration
	random          func() float64
}

func New(baseInterval time.Duration, probability float64, opts ...Option) *Generator {
	g := &Generator{
		baseInterval: baseInterval,
		probability:  probability,
		random:       func() float64 { return 1.0 },
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate returns how many new items to spawn so that loot never exceeds
// looters. The accumulated time resets only when something spawns.
func (g *Generator) Generate(dt time.Duration, loot, looters int) int {
	g.timeWithoutLoot += dt
	shortage := looters - loot
	if shortage <= 0 {
		return 0
	}
	var p float64
	if g.baseInterval <= 0 {
		p = g.probability
	} else {
		ratio := float64(g.timeWithoutLoot) / float64(g.baseInterval)
		p = 1 - math.Pow(1-g.probability, ratio)
	}
	p = clamp01(p * g.random())
	n := int(math.Round(float64(shortage) * p))
	if n > shortage {
		n = shortage
	}
	if n > 0 {
		g.timeWithoutLoot = 0
	}
	return n
}

func (g *Generator) BaseInterval() time.Duration    { return g.baseInterval }
func (g *Generator) Probability() float64           { return g.probability }
func (g *Generator) TimeWithoutLoot() time.Duration { return g.timeWithoutLoot }

// SetTimeWithoutLoot restores the accumulator from a snapshot.
func (g *Generator) SetTimeWithoutLoot(d time.Duration) { g.timeWithoutLoot = d }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
