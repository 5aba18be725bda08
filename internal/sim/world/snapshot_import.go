package world

import (
	"fmt"

	"dogcourier.ai/internal/persistence/snapshot"
	"dogcourier.ai/internal/sim/geom"
	"dogcourier.ai/internal/sim/lootgen"
)

// RestoreGame rebuilds a Game from a snapshot over the given map arena. Loot
// settings, spawn mode and seed stored in the snapshot override opts. Every
// failure wraps ErrRestore.
func RestoreGame(snap snapshot.SnapshotV1, arena *MapArena, opts Options) (*Game, error) {
	if snap.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrRestore, snap.Header.Version)
	}
	if snap.LootPeriod > 0 {
		opts.LootPeriod = snap.LootPeriod
	}
	opts.LootProbability = snap.LootProbability
	opts.RandomizeSpawn = snap.RandomizeSpawn
	opts.Seed = snap.Seed

	g := NewGame(arena, opts)
	g.nextDogID = DogID(snap.NextDogID)

	for i, sv := range snap.Sessions {
		if sv.Slot != i {
			return nil, fmt.Errorf("%w: session %d stored at position %d", ErrRestore, sv.Slot, i)
		}
		h, ok := arena.Lookup(sv.MapID)
		if !ok {
			return nil, fmt.Errorf("%w: session %d: map %q: %w", ErrRestore, i, sv.MapID, ErrMapNotFound)
		}
		g.slotMaps = append(g.slotMaps, h)
		if sv.Spent {
			g.sessions = append(g.sessions, nil)
			continue
		}
		s, err := g.restoreSession(i, h, sv)
		if err != nil {
			return nil, err
		}
		g.sessions = append(g.sessions, s)
	}
	for slot := range g.sessions {
		g.UpdateSessionFullness(slot)
	}
	return g, nil
}

func (g *Game) restoreSession(slot int, h MapHandle, sv snapshot.SessionV1) (*GameSession, error) {
	if sv.Capacity <= 0 || len(sv.Dogs) > sv.Capacity {
		return nil, fmt.Errorf("%w: session %d: %d dogs for capacity %d", ErrRestore, slot, len(sv.Dogs), sv.Capacity)
	}
	var genOpts []lootgen.Option
	if g.opts.LootRandom != nil {
		genOpts = append(genOpts, lootgen.WithRandom(g.opts.LootRandom))
	}
	gen := lootgen.New(sv.LootInterval, sv.LootProbability, genOpts...)
	gen.SetTimeWithoutLoot(sv.TimeWithoutLoot)

	s := &GameSession{
		slot:           slot,
		arena:          g.arena,
		mapHandle:      h,
		capacity:       sv.Capacity,
		dogs:           make(map[DogID]*Dog, len(sv.Dogs)),
		loot:           make(map[LootID]*Loot, len(sv.Loot)),
		nextLootID:     LootID(sv.NextLootID),
		generator:      gen,
		randomizeSpawn: g.opts.RandomizeSpawn,
		rng:            g.rng,
	}
	for _, dv := range sv.Dogs {
		id := DogID(dv.ID)
		if _, dup := g.dogSlot[id]; dup {
			return nil, fmt.Errorf("%w: dog %d appears twice", ErrRestore, id)
		}
		facing, err := ParseDirection(dv.Facing)
		if err != nil {
			return nil, fmt.Errorf("%w: dog %d: %v", ErrRestore, id, err)
		}
		d := &Dog{
			ID:       id,
			Name:     dv.Name,
			Pos:      geom.Point{X: dv.Pos[0], Y: dv.Pos[1]},
			Speed:    geom.Vec{DX: dv.Speed[0], DY: dv.Speed[1]},
			Facing:   facing,
			Score:    dv.Score,
			LifeTime: dv.LifeTime,
			StayTime: dv.StayTime,
		}
		for _, o := range dv.Bag {
			d.Bag = append(d.Bag, FoundObject{ID: LootID(o.ID), Type: o.Type, Value: o.Value})
		}
		s.dogs[id] = d
		g.dogSlot[id] = slot
	}
	for _, lv := range sv.Loot {
		id := LootID(lv.ID)
		if _, dup := s.loot[id]; dup {
			return nil, fmt.Errorf("%w: session %d: loot %d appears twice", ErrRestore, slot, id)
		}
		s.loot[id] = &Loot{ID: id, Type: lv.Type, Pos: geom.Point{X: lv.Pos[0], Y: lv.Pos[1]}, Value: lv.Value}
	}
	return s, nil
}
