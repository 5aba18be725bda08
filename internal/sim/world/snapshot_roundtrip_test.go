package world

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"dogcourier.ai/internal/persistence/snapshot"
	"dogcourier.ai/internal/sim/lootgen"
)

func playedGame(t *testing.T) (*Game, *MapArena) {
	t.Helper()
	arena := testArena(t)
	g := NewGame(arena, Options{LootPeriod: 300 * time.Millisecond, LootProbability: 0.6, RandomizeSpawn: true, Seed: 11})
	rng := rand.New(rand.NewSource(3))
	var ids []DogID
	for i := 0; i < 5; i++ {
		_, d := mustJoin(t, g, "m", "dog")
		ids = append(ids, d.ID)
	}
	for i := 0; i < 3; i++ {
		mustJoin(t, g, "tiny", "small")
	}
	dirs := []Direction{Up, Down, Left, Right}
	for tick := 0; tick < 120; tick++ {
		for _, id := range ids {
			if rng.Intn(3) == 0 {
				_ = g.MoveDog(id, dirs[rng.Intn(4)], rng.Intn(5) != 0)
			}
		}
		g.Tick(50 * time.Millisecond)
	}
	// Leave a spent slot behind: the first tiny session holds dogs 5 and 6.
	tiny, _, err := g.FindDog(5)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	for _, id := range []DogID{5, 6} {
		if _, err := g.RetireDog(tiny.Slot(), id); err != nil {
			t.Fatalf("retire %d: %v", id, err)
		}
	}
	return g, arena
}

func TestSnapshotRoundTrip(t *testing.T) {
	g, arena := playedGame(t)
	before := g.ExportSnapshot(120)

	spent := 0
	for _, s := range before.Sessions {
		if s.Spent {
			spent++
		}
	}
	if spent != 1 {
		t.Fatalf("expected one spent slot, got %d", spent)
	}

	raw, err := snapshot.Marshal(before)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := snapshot.Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	g2, err := RestoreGame(decoded, arena, Options{RandomizeSpawn: true, Seed: 99})
	if err != nil {
		t.Fatalf("RestoreGame: %v", err)
	}
	after := g2.ExportSnapshot(120)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot mismatch after restore:\nbefore=%+v\nafter=%+v", before, after)
	}
	if g.StateDigest(120) != g2.StateDigest(120) {
		t.Fatalf("digest mismatch after restore")
	}
	if !reflect.DeepEqual(g.Fullness("tiny"), g2.Fullness("tiny")) || !reflect.DeepEqual(g.Fullness("m"), g2.Fullness("m")) {
		t.Fatalf("fullness index not rebuilt: %v vs %v", g.Fullness("tiny"), g2.Fullness("tiny"))
	}
	if g2.NextDogID() != g.NextDogID() {
		t.Fatalf("dog id counter: %d vs %d", g2.NextDogID(), g.NextDogID())
	}

	// Both games must evolve identically while no loot spawns.
	for _, gg := range []*Game{g, g2} {
		for _, s := range gg.sessions {
			if s != nil {
				s.generator = lootgen.New(time.Second, 1, lootgen.WithRandom(noLoot))
			}
		}
		gg.Tick(time.Second)
	}
	if g.StateDigest(121) != g2.StateDigest(121) {
		t.Fatalf("games diverged after restore")
	}
}

func TestRestoreGame_UnknownMap(t *testing.T) {
	g, arena := playedGame(t)
	snap := g.ExportSnapshot(1)
	snap.Sessions[0].MapID = "gone"
	_, err := RestoreGame(snap, arena, Options{})
	if !errors.Is(err, ErrRestore) || !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("expected ErrRestore wrapping ErrMapNotFound, got %v", err)
	}
}

func TestRestoreGame_RejectsCorruptSessions(t *testing.T) {
	g, arena := playedGame(t)
	snap := g.ExportSnapshot(1)
	snap.Sessions[0].Capacity = 1
	if _, err := RestoreGame(snap, arena, Options{}); !errors.Is(err, ErrRestore) {
		t.Fatalf("over-capacity session: %v", err)
	}

	snap = g.ExportSnapshot(1)
	snap.Sessions[1].Slot = 0
	if _, err := RestoreGame(snap, arena, Options{}); !errors.Is(err, ErrRestore) {
		t.Fatalf("misplaced slot: %v", err)
	}
}
