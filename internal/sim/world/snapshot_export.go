package world

import (
	"dogcourier.ai/internal/persistence/snapshot"
)

// ExportSnapshot captures the whole game. Must run on the goroutine that owns
// the Game. The rng state is only captured as its seed, so callers that need
// an exact resume Reseed right before exporting.
func (g *Game) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header:          snapshot.Header{Version: snapshot.Version, Tick: nowTick},
		LootPeriod:      g.opts.LootPeriod,
		LootProbability: g.opts.LootProbability,
		NextDogID:       uint64(g.nextDogID),
		RandomizeSpawn:  g.opts.RandomizeSpawn,
		Seed:            g.seed,
	}
	for slot, s := range g.sessions {
		m := g.arena.Get(g.slotMaps[slot])
		if s == nil {
			snap.Sessions = append(snap.Sessions, snapshot.SessionV1{
				Slot:     slot,
				MapID:    m.ID,
				Spent:    true,
				Capacity: m.MaxPlayers,
			})
			continue
		}
		snap.Sessions = append(snap.Sessions, exportSession(slot, m, s))
	}
	return snap
}

func exportSession(slot int, m *Map, s *GameSession) snapshot.SessionV1 {
	out := snapshot.SessionV1{
		Slot:            slot,
		MapID:           m.ID,
		Capacity:        s.capacity,
		LootInterval:    s.generator.BaseInterval(),
		LootProbability: s.generator.Probability(),
		TimeWithoutLoot: s.generator.TimeWithoutLoot(),
		NextLootID:      uint64(s.nextLootID),
	}
	for _, d := range s.Dogs() {
		dv := snapshot.DogV1{
			ID:       uint64(d.ID),
			Name:     d.Name,
			Pos:      [2]float64{d.Pos.X, d.Pos.Y},
			Speed:    [2]float64{d.Speed.DX, d.Speed.DY},
			Facing:   d.Facing.String(),
			Score:    d.Score,
			LifeTime: d.LifeTime,
			StayTime: d.StayTime,
		}
		for _, o := range d.Bag {
			dv.Bag = append(dv.Bag, snapshot.FoundObjectV1{ID: uint64(o.ID), Type: o.Type, Value: o.Value})
		}
		out.Dogs = append(out.Dogs, dv)
	}
	for _, l := range s.Loot() {
		out.Loot = append(out.Loot, snapshot.LootV1{
			ID:    uint64(l.ID),
			Type:  l.Type,
			Pos:   [2]float64{l.Pos.X, l.Pos.Y},
			Value: l.Value,
		})
	}
	return out
}
