package world

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestJoinSession_FillsMostVacantFirst(t *testing.T) {
	g := quietGame(t)
	var slots []int
	for i := 0; i < 5; i++ {
		slot, _ := mustJoin(t, g, "tiny", "d")
		slots = append(slots, slot)
	}
	if !reflect.DeepEqual(slots, []int{0, 0, 1, 1, 2}) {
		t.Fatalf("slots: %v", slots)
	}
	want := [][2]int{{2, 1}, {0, 0}, {1, 0}}
	if got := g.Fullness("tiny"); !reflect.DeepEqual(got, want) {
		t.Fatalf("fullness: got %v want %v", got, want)
	}
	if got := g.Fullness("m"); len(got) != 0 {
		t.Fatalf("other map must have its own index: %v", got)
	}
}

func TestRetireDog_SpentSlotIsReused(t *testing.T) {
	g := quietGame(t)
	_, a := mustJoin(t, g, "tiny", "a")
	_, b := mustJoin(t, g, "tiny", "b")
	mustJoin(t, g, "tiny", "c")

	if _, err := g.RetireDog(0, a.ID); err != nil {
		t.Fatalf("retire a: %v", err)
	}
	if g.Sessions()[0] == nil {
		t.Fatalf("session with a dog left must stay live")
	}
	if _, err := g.RetireDog(0, b.ID); err != nil {
		t.Fatalf("retire b: %v", err)
	}
	if g.Sessions()[0] != nil {
		t.Fatalf("empty session must become a spent slot")
	}
	want := [][2]int{{0, 2}, {1, 1}}
	if got := g.Fullness("tiny"); !reflect.DeepEqual(got, want) {
		t.Fatalf("fullness after retire: got %v want %v", got, want)
	}

	slot, s, ok, err := g.ExtractFreeSession("tiny")
	if err != nil || !ok || slot != 0 || s != nil {
		t.Fatalf("extract: slot %d session %v ok %v err %v", slot, s, ok, err)
	}
	g.UpdateSessionFullness(slot)

	slot, d := mustJoin(t, g, "tiny", "d")
	if slot != 0 || g.Sessions()[0] == nil || g.Sessions()[0].Dog(d.ID) == nil {
		t.Fatalf("join should materialize slot 0, got slot %d", slot)
	}
	if _, _, err := g.FindDog(a.ID); !errors.Is(err, ErrDogNotFound) {
		t.Fatalf("retired dog still findable: %v", err)
	}
}

func TestGame_Errors(t *testing.T) {
	g := quietGame(t)
	if _, _, _, err := g.ExtractFreeSession("nope"); !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("extract: %v", err)
	}
	if _, _, err := g.CreateFreeSession("nope"); !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := g.JoinSession("nope", 1, "x"); !errors.Is(err, ErrMapNotFound) {
		t.Fatalf("join: %v", err)
	}
	if err := g.MoveDog(42, Up, true); !errors.Is(err, ErrDogNotFound) {
		t.Fatalf("move: %v", err)
	}
	if _, err := g.RetireDog(7, 0); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("retire: %v", err)
	}
	_, d := mustJoin(t, g, "m", "a")
	if _, _, err := g.JoinSession("m", d.ID, "again"); err == nil {
		t.Fatalf("joining twice with one id must fail")
	}
}

func TestIdleDogs(t *testing.T) {
	g := quietGame(t)
	_, a := mustJoin(t, g, "m", "a")
	_, b := mustJoin(t, g, "tiny", "b")
	if err := g.MoveDog(b.ID, Right, true); err != nil {
		t.Fatalf("move: %v", err)
	}
	for i := 0; i < 3; i++ {
		g.Tick(time.Second)
	}
	idle := g.IdleDogs(3 * time.Second)
	if len(idle) != 1 || idle[0].Dog.ID != a.ID || idle[0].MapID != "m" {
		t.Fatalf("idle: %+v", idle)
	}
	if a.LifeTime != 3*time.Second {
		t.Fatalf("life time: %v", a.LifeTime)
	}
	if b.StayTime != 0 {
		t.Fatalf("moving dog accumulated stay time: %v", b.StayTime)
	}
}

func TestAllocateDogID_Sequential(t *testing.T) {
	g := quietGame(t)
	for want := DogID(0); want < 3; want++ {
		if got := g.AllocateDogID(); got != want {
			t.Fatalf("got %d want %d", got, want)
		}
	}
	if g.NextDogID() != 3 {
		t.Fatalf("next: %d", g.NextDogID())
	}
}

func TestRetireDog_TrimsNewestLoot(t *testing.T) {
	g := quietGame(t)
	slot, a := mustJoin(t, g, "m", "a")
	_, b := mustJoin(t, g, "m", "b")
	_, c := mustJoin(t, g, "m", "c")
	s, _ := g.Session(slot)
	first := s.addLoot(0, pt(2, 0), 10)
	second := s.addLoot(1, pt(4, 0), 5)
	s.addLoot(0, pt(6, 0), 7)

	if _, err := g.RetireDog(slot, b.ID); err != nil {
		t.Fatalf("retire: %v", err)
	}
	left := s.Loot()
	if len(left) != 2 || left[0].ID != first.ID || left[1].ID != second.ID {
		t.Fatalf("loot after first retirement: %+v", left)
	}
	if _, err := g.RetireDog(slot, c.ID); err != nil {
		t.Fatalf("retire: %v", err)
	}
	if left := s.Loot(); len(left) != 1 || left[0].ID != first.ID {
		t.Fatalf("loot after second retirement: %+v", left)
	}
	g.Tick(time.Second)
	if s.LootCount() > s.DogCount() {
		t.Fatalf("loot %d exceeds dogs %d", s.LootCount(), s.DogCount())
	}
	if s.Dog(a.ID) == nil {
		t.Fatalf("remaining dog lost")
	}
}
