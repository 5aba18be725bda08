package world

import (
	"math"
	"testing"

	"dogcourier.ai/internal/sim/catalogs"
	"dogcourier.ai/internal/sim/geom"
)

// testGame: map "m" is an L of two roads meeting at (10,0) with an office at
// the far end; map "tiny" is a single road without loot types.
const testGame = `{
  "defaultDogSpeed": 1.0,
  "lootGeneratorConfig": {"period": 1.0, "probability": 1.0},
  "maps": [
    {
      "id": "m", "name": "M", "bagCapacity": 2, "maxPlayers": 3,
      "lootTypes": [{"name": "a", "file": "a.obj", "type": "obj", "value": 10}, {"name": "b", "file": "b.obj", "type": "obj", "value": 5}],
      "roads": [{"x0": 0, "y0": 0, "x1": 10}, {"x0": 10, "y0": 0, "y1": 10}],
      "buildings": [{"x": 2, "y": 2, "w": 6, "h": 6}],
      "offices": [{"id": "o", "x": 10, "y": 10, "offsetX": 1, "offsetY": 0}]
    },
    {
      "id": "tiny", "name": "Tiny", "maxPlayers": 2,
      "roads": [{"x0": 0, "y0": 0, "x1": 5}]
    }
  ]
}`

func testArena(t *testing.T) *MapArena {
	t.Helper()
	cfg, err := catalogs.Parse([]byte(testGame), "game.json")
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	a, err := NewArena(cfg, 4)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	return a
}

func noLoot() float64 { return 0 }

func quietGame(t *testing.T) *Game {
	t.Helper()
	return NewGame(testArena(t), Options{LootPeriod: 1e9, LootProbability: 1, LootRandom: noLoot})
}

func mustJoin(t *testing.T, g *Game, mapID, name string) (int, *Dog) {
	t.Helper()
	slot, d, err := g.JoinSession(mapID, g.AllocateDogID(), name)
	if err != nil {
		t.Fatalf("join %s: %v", mapID, err)
	}
	return slot, d
}

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearPt(a, b geom.Point) bool { return near(a.X, b.X) && near(a.Y, b.Y) }
