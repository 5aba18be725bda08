package world

import (
	"time"

	"dogcourier.ai/internal/sim/geom"
)

type DogID uint64

type Dog struct {
	ID     DogID
	Name   string
	Pos    geom.Point
	Speed  geom.Vec
	Facing Direction
	Bag    []FoundObject
	Score  int

	LifeTime time.Duration
	// StayTime is how long the dog has been standing still.
	StayTime time.Duration
}

func NewDog(id DogID, name string, pos geom.Point) *Dog {
	return &Dog{ID: id, Name: name, Pos: pos, Facing: Up}
}

func (d *Dog) Move(dir Direction, speed float64) {
	d.Facing = dir
	d.Speed = Velocity(dir, speed)
}

func (d *Dog) Stop() { d.Speed = geom.Vec{} }

func (d *Dog) IsMoving() bool { return !d.Speed.IsZero() }

// PutToBag adds o unless the bag already holds capacity items.
func (d *Dog) PutToBag(o FoundObject, capacity int) bool {
	if len(d.Bag) >= capacity {
		return false
	}
	d.Bag = append(d.Bag, o)
	return true
}

// EmptyBag hands the bag in and returns the value added to the score.
func (d *Dog) EmptyBag() int {
	sum := 0
	for _, o := range d.Bag {
		sum += o.Value
	}
	d.Score += sum
	d.Bag = nil
	return sum
}

// UpdateTimers runs after movement for the tick.
func (d *Dog) UpdateTimers(dt time.Duration) {
	d.LifeTime += dt
	if d.IsMoving() {
		d.StayTime = 0
		return
	}
	d.StayTime += dt
}
