package world

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"dogcourier.ai/internal/sim/collision"
	"dogcourier.ai/internal/sim/geom"
	"dogcourier.ai/internal/sim/lootgen"
)

// GameSession is one live instance of a map. It is not safe for concurrent
// use; the owning Game serializes all access.
type GameSession struct {
	slot      int
	arena     *MapArena
	mapHandle MapHandle
	capacity  int

	dogs       map[DogID]*Dog
	loot       map[LootID]*Loot
	nextLootID LootID
	generator  *lootgen.Generator

	randomizeSpawn bool
	rng            *rand.Rand
}

// SessionReport summarizes one Update.
type SessionReport struct {
	Collected int `json:"collected"`
	Delivered int `json:"delivered"`
	Spawned   int `json:"spawned"`
	Score     int `json:"score"`
}

func (s *GameSession) Slot() int            { return s.slot }
func (s *GameSession) Map() *Map            { return s.arena.Get(s.mapHandle) }
func (s *GameSession) MapHandle() MapHandle { return s.mapHandle }
func (s *GameSession) Capacity() int        { return s.capacity }
func (s *GameSession) DogCount() int        { return len(s.dogs) }
func (s *GameSession) LootCount() int       { return len(s.loot) }
func (s *GameSession) FreeSeats() int       { return s.capacity - len(s.dogs) }
func (s *GameSession) Dog(id DogID) *Dog    { return s.dogs[id] }

func (s *GameSession) Generator() *lootgen.Generator { return s.generator }

// Dogs returns dogs ordered by id.
func (s *GameSession) Dogs() []*Dog {
	out := make([]*Dog, 0, len(s.dogs))
	for _, d := range s.dogs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Loot returns live loot ordered by id.
func (s *GameSession) Loot() []*Loot {
	out := make([]*Loot, 0, len(s.loot))
	for _, l := range s.loot {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *GameSession) AddDog(d *Dog) error {
	if len(s.dogs) >= s.capacity {
		return fmt.Errorf("add dog %d to session %d: %w", d.ID, s.slot, ErrSessionFull)
	}
	if _, dup := s.dogs[d.ID]; dup {
		return fmt.Errorf("add dog %d to session %d: duplicate id", d.ID, s.slot)
	}
	s.dogs[d.ID] = d
	return nil
}

// removeDog drops the dog and then the newest loot until the session holds
// no more loot than dogs.
func (s *GameSession) removeDog(id DogID) (*Dog, bool) {
	d, ok := s.dogs[id]
	if !ok {
		return nil, false
	}
	delete(s.dogs, id)
	if extra := len(s.loot) - len(s.dogs); extra > 0 {
		loot := s.Loot()
		for _, l := range loot[len(loot)-extra:] {
			delete(s.loot, l.ID)
		}
	}
	return d, true
}

// Update advances the session by dt: movement, then pickups and returns,
// then timers, then loot generation.
func (s *GameSession) Update(dt time.Duration) SessionReport {
	var rep SessionReport
	m := s.Map()
	dogs := s.Dogs()

	gatherers := make([]collision.Gatherer, 0, len(dogs))
	movers := make([]*Dog, 0, len(dogs))
	for _, d := range dogs {
		if !d.IsMoving() {
			continue
		}
		start := d.Pos
		s.moveDog(m, d, dt)
		gatherers = append(gatherers, collision.Gatherer{Start: start, End: d.Pos, Width: DogWidth})
		movers = append(movers, d)
	}

	if len(gatherers) > 0 {
		rep.Collected, rep.Delivered = s.gather(m, gatherers, movers)
	}

	for _, d := range dogs {
		d.UpdateTimers(dt)
		rep.Score += d.Score
	}

	rep.Spawned = s.spawnLoot(m, dt)
	return rep
}

func (s *GameSession) moveDog(m *Map, d *Dog, dt time.Duration) {
	borders, ok := m.RoadBorders(d.Pos)
	if !ok {
		d.Stop()
		return
	}
	next := d.Pos.Advance(d.Speed, dt.Seconds())
	if !borders.Contains(next) {
		next = borders.Clamp(next)
		d.Stop()
	}
	d.Pos = next
}

// gather walks collision events in time order. Items are live loot by id
// followed by the map's offices.
func (s *GameSession) gather(m *Map, gatherers []collision.Gatherer, movers []*Dog) (collected, delivered int) {
	loot := s.Loot()
	items := make([]collision.Item, 0, len(loot)+len(m.Offices))
	for _, l := range loot {
		items = append(items, collision.Item{Pos: l.Pos, Width: LootWidth})
	}
	for _, o := range m.Offices {
		items = append(items, collision.Item{Pos: o.Pos, Width: OfficeWidth})
	}

	consumed := make(map[int]bool)
	for _, ev := range collision.FindGatherEvents(gatherers, items) {
		d := movers[ev.GathererID]
		if ev.ItemID >= len(loot) {
			delivered += d.EmptyBag()
			continue
		}
		if consumed[ev.ItemID] {
			continue
		}
		l := loot[ev.ItemID]
		if !d.PutToBag(FoundObject{ID: l.ID, Type: l.Type, Value: l.Value}, m.BagCapacity) {
			continue
		}
		delete(s.loot, l.ID)
		consumed[ev.ItemID] = true
		collected++
	}
	return collected, delivered
}

func (s *GameSession) spawnLoot(m *Map, dt time.Duration) int {
	if len(m.LootTypes) == 0 {
		return 0
	}
	// Runs on saturated ticks too: time without loot keeps accumulating.
	n := s.generator.Generate(dt, len(s.loot), len(s.dogs))
	for i := 0; i < n; i++ {
		typ := 0
		if len(m.LootTypes) > 1 && s.rng != nil {
			typ = s.rng.Intn(len(m.LootTypes))
		}
		s.addLoot(typ, spawnPoint(m, s.rng, s.randomizeSpawn), m.LootTypes[typ].Value)
	}
	return n
}

func (s *GameSession) addLoot(typ int, pos geom.Point, value int) *Loot {
	l := &Loot{ID: s.nextLootID, Type: typ, Pos: pos, Value: value}
	s.nextLootID++
	s.loot[l.ID] = l
	return l
}
