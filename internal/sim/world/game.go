package world

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"dogcourier.ai/internal/sim/lootgen"
)

type Options struct {
	LootPeriod      time.Duration
	LootProbability float64
	RandomizeSpawn  bool
	// Seed drives spawn points and loot types.
	Seed int64
	// LootRandom scales the loot spawn probability; nil means always 1.
	LootRandom func() float64
}

type fullnessEntry struct {
	free int
	slot int
}

// Game owns every session. It is single-threaded: callers must serialize
// access (see internal/sim/runtime).
type Game struct {
	arena *MapArena
	opts  Options
	rng   *rand.Rand
	seed  int64

	// sessions[i] == nil marks a spent slot that can be materialized again
	// for slotMaps[i].
	sessions []*GameSession
	slotMaps []MapHandle
	fullness map[MapHandle][]fullnessEntry

	dogSlot   map[DogID]int
	nextDogID DogID
}

// TickReport aggregates SessionReports for one Game.Tick.
type TickReport struct {
	Sessions  int `json:"sessions"`
	Dogs      int `json:"dogs"`
	Loot      int `json:"loot"`
	Collected int `json:"collected"`
	Delivered int `json:"delivered"`
	Spawned   int `json:"spawned"`
}

type IdleDog struct {
	Slot  int
	MapID string
	Dog   *Dog
}

func NewGame(arena *MapArena, opts Options) *Game {
	return &Game{
		arena:    arena,
		opts:     opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		seed:     opts.Seed,
		fullness: map[MapHandle][]fullnessEntry{},
		dogSlot:  map[DogID]int{},
	}
}

func (g *Game) Arena() *MapArena { return g.arena }
func (g *Game) Maps() []*Map     { return g.arena.Maps() }

// Sessions returns every slot; spent slots are nil.
func (g *Game) Sessions() []*GameSession {
	out := make([]*GameSession, len(g.sessions))
	copy(out, g.sessions)
	return out
}

func (g *Game) Session(slot int) (*GameSession, error) {
	if slot < 0 || slot >= len(g.sessions) || g.sessions[slot] == nil {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrSessionNotFound)
	}
	return g.sessions[slot], nil
}

func (g *Game) AllocateDogID() DogID {
	id := g.nextDogID
	g.nextDogID++
	return id
}

func (g *Game) NextDogID() DogID { return g.nextDogID }

// Seed is the value the spawn rng was last seeded with.
func (g *Game) Seed() int64 { return g.seed }

// NextSeed draws a fresh seed from the spawn rng.
func (g *Game) NextSeed() int64 { return g.rng.Int63() }

// Reseed restarts the spawn rng from s. Sessions share the rng, so it is
// reseeded in place.
func (g *Game) Reseed(s int64) {
	g.rng.Seed(s)
	g.seed = s
}

func (g *Game) newSession(slot int, h MapHandle) *GameSession {
	opts := []lootgen.Option{}
	if g.opts.LootRandom != nil {
		opts = append(opts, lootgen.WithRandom(g.opts.LootRandom))
	}
	m := g.arena.Get(h)
	return &GameSession{
		slot:           slot,
		arena:          g.arena,
		mapHandle:      h,
		capacity:       m.MaxPlayers,
		dogs:           map[DogID]*Dog{},
		loot:           map[LootID]*Loot{},
		generator:      lootgen.New(g.opts.LootPeriod, g.opts.LootProbability, opts...),
		randomizeSpawn: g.opts.RandomizeSpawn,
		rng:            g.rng,
	}
}

// ExtractFreeSession pops the most vacant session of mapID from the fullness
// index. ok is false when no indexed session has a free seat. ok with a nil
// session means the slot is spent and must be materialized. The caller must
// call UpdateSessionFullness for the slot when done with it.
func (g *Game) ExtractFreeSession(mapID string) (slot int, s *GameSession, ok bool, err error) {
	h, found := g.arena.Lookup(mapID)
	if !found {
		return 0, nil, false, fmt.Errorf("extract session for %q: %w", mapID, ErrMapNotFound)
	}
	idx := g.fullness[h]
	if len(idx) == 0 || idx[0].free <= 0 {
		return 0, nil, false, nil
	}
	top := idx[0]
	g.fullness[h] = idx[1:]
	return top.slot, g.sessions[top.slot], true, nil
}

// MaterializeSession replaces a spent slot with a fresh session.
func (g *Game) MaterializeSession(slot int) (*GameSession, error) {
	if slot < 0 || slot >= len(g.sessions) {
		return nil, fmt.Errorf("materialize slot %d: %w", slot, ErrSessionNotFound)
	}
	if s := g.sessions[slot]; s != nil {
		return s, nil
	}
	s := g.newSession(slot, g.slotMaps[slot])
	g.sessions[slot] = s
	return s, nil
}

// CreateFreeSession appends a new session. It is not indexed until
// UpdateSessionFullness is called for its slot.
func (g *Game) CreateFreeSession(mapID string) (int, *GameSession, error) {
	h, ok := g.arena.Lookup(mapID)
	if !ok {
		return 0, nil, fmt.Errorf("create session for %q: %w", mapID, ErrMapNotFound)
	}
	slot := len(g.sessions)
	s := g.newSession(slot, h)
	g.sessions = append(g.sessions, s)
	g.slotMaps = append(g.slotMaps, h)
	return slot, s, nil
}

// UpdateSessionFullness (re)indexes slot by its free seats. A spent slot
// counts as fully free.
func (g *Game) UpdateSessionFullness(slot int) {
	if slot < 0 || slot >= len(g.sessions) {
		return
	}
	h := g.slotMaps[slot]
	free := g.arena.Get(h).MaxPlayers
	if s := g.sessions[slot]; s != nil {
		free = s.FreeSeats()
	}
	idx := g.fullness[h]
	for i, e := range idx {
		if e.slot == slot {
			idx = append(idx[:i], idx[i+1:]...)
			break
		}
	}
	e := fullnessEntry{free: free, slot: slot}
	at := sort.Search(len(idx), func(i int) bool { return fullnessLess(e, idx[i]) })
	idx = append(idx, fullnessEntry{})
	copy(idx[at+1:], idx[at:])
	idx[at] = e
	g.fullness[h] = idx
}

// fullnessLess orders by free seats descending, then slot ascending.
func fullnessLess(a, b fullnessEntry) bool {
	if a.free != b.free {
		return a.free > b.free
	}
	return a.slot < b.slot
}

// Fullness returns the index for mapID as (slot, free seats) pairs in order.
func (g *Game) Fullness(mapID string) [][2]int {
	h, ok := g.arena.Lookup(mapID)
	if !ok {
		return nil
	}
	out := make([][2]int, 0, len(g.fullness[h]))
	for _, e := range g.fullness[h] {
		out = append(out, [2]int{e.slot, e.free})
	}
	return out
}

// JoinSession places a new dog on mapID in the most vacant session, creating
// one when every session is full.
func (g *Game) JoinSession(mapID string, id DogID, name string) (int, *Dog, error) {
	if _, taken := g.dogSlot[id]; taken {
		return 0, nil, fmt.Errorf("join %q: dog %d already playing", mapID, id)
	}
	slot, s, ok, err := g.ExtractFreeSession(mapID)
	if err != nil {
		return 0, nil, err
	}
	switch {
	case !ok:
		slot, s, err = g.CreateFreeSession(mapID)
	case s == nil:
		s, err = g.MaterializeSession(slot)
	}
	if err != nil {
		return 0, nil, err
	}
	defer g.UpdateSessionFullness(slot)

	d := NewDog(id, name, spawnPoint(s.Map(), g.rng, g.opts.RandomizeSpawn))
	if err := s.AddDog(d); err != nil {
		return 0, nil, err
	}
	g.dogSlot[id] = slot
	return slot, d, nil
}

// FindDog locates a playing dog.
func (g *Game) FindDog(id DogID) (*GameSession, *Dog, error) {
	slot, ok := g.dogSlot[id]
	if !ok {
		return nil, nil, fmt.Errorf("dog %d: %w", id, ErrDogNotFound)
	}
	s := g.sessions[slot]
	return s, s.Dog(id), nil
}

// MoveDog sets the dog's direction and the map speed, or stops it.
func (g *Game) MoveDog(id DogID, dir Direction, moving bool) error {
	s, d, err := g.FindDog(id)
	if err != nil {
		return err
	}
	if !moving {
		d.Stop()
		return nil
	}
	d.Move(dir, s.Map().DogSpeed)
	return nil
}

// IdleDogs lists dogs that have stood still for at least threshold, ordered
// by slot then id.
func (g *Game) IdleDogs(threshold time.Duration) []IdleDog {
	var out []IdleDog
	for slot, s := range g.sessions {
		if s == nil {
			continue
		}
		for _, d := range s.Dogs() {
			if d.StayTime >= threshold {
				out = append(out, IdleDog{Slot: slot, MapID: s.Map().ID, Dog: d})
			}
		}
	}
	return out
}

// RetireDog removes the dog and any loot above the new dog count. A session
// left empty becomes a spent slot.
func (g *Game) RetireDog(slot int, id DogID) (*Dog, error) {
	s, err := g.Session(slot)
	if err != nil {
		return nil, err
	}
	d, ok := s.removeDog(id)
	if !ok {
		return nil, fmt.Errorf("retire dog %d from slot %d: %w", id, slot, ErrDogNotFound)
	}
	delete(g.dogSlot, id)
	if s.DogCount() == 0 {
		g.sessions[slot] = nil
	}
	g.UpdateSessionFullness(slot)
	return d, nil
}

// Tick advances every live session by dt.
func (g *Game) Tick(dt time.Duration) TickReport {
	var rep TickReport
	for _, s := range g.sessions {
		if s == nil {
			continue
		}
		sr := s.Update(dt)
		rep.Sessions++
		rep.Dogs += s.DogCount()
		rep.Loot += s.LootCount()
		rep.Collected += sr.Collected
		rep.Delivered += sr.Delivered
		rep.Spawned += sr.Spawned
	}
	return rep
}
