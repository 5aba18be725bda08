package world

import "dogcourier.ai/internal/sim/geom"

type LootID uint64

// Loot is an item lying on a road waiting to be picked up.
type Loot struct {
	ID    LootID
	Type  int
	Pos   geom.Point
	Value int
}

// FoundObject is loot carried in a dog's bag.
type FoundObject struct {
	ID    LootID
	Type  int
	Value int
}
