package world

import (
	"testing"
	"time"
)

func TestDogBagAndScore(t *testing.T) {
	d := NewDog(1, "rex", pt(0, 0))
	if d.Facing != Up {
		t.Fatalf("new dogs face up")
	}
	if !d.PutToBag(FoundObject{ID: 1, Value: 10}, 2) || !d.PutToBag(FoundObject{ID: 2, Value: 7}, 2) {
		t.Fatalf("bag should accept two items")
	}
	if d.PutToBag(FoundObject{ID: 3, Value: 1}, 2) {
		t.Fatalf("bag over capacity")
	}
	if got := d.EmptyBag(); got != 17 || d.Score != 17 || len(d.Bag) != 0 {
		t.Fatalf("EmptyBag: got %d score %d bag %d", got, d.Score, len(d.Bag))
	}
	if got := d.EmptyBag(); got != 0 || d.Score != 17 {
		t.Fatalf("empty bag must not change score")
	}
}

func TestDogTimers(t *testing.T) {
	d := NewDog(1, "rex", pt(0, 0))
	d.UpdateTimers(time.Second)
	d.UpdateTimers(time.Second)
	if d.StayTime != 2*time.Second || d.LifeTime != 2*time.Second {
		t.Fatalf("idle: stay %v life %v", d.StayTime, d.LifeTime)
	}
	d.Move(Left, 1)
	d.UpdateTimers(time.Second)
	if d.StayTime != 0 || d.LifeTime != 3*time.Second || d.Facing != Left {
		t.Fatalf("moving: stay %v life %v", d.StayTime, d.LifeTime)
	}
	d.Stop()
	if d.Facing != Left {
		t.Fatalf("stop must keep facing")
	}
}
