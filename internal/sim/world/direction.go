package world

import (
	"fmt"

	"dogcourier.ai/internal/sim/geom"
)

// Direction is the way a dog faces. Stopping keeps the last facing.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "U"
	case Down:
		return "D"
	case Left:
		return "L"
	case Right:
		return "R"
	}
	return "?"
}

// ParseDirection reads a facing letter.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "U":
		return Up, nil
	case "D":
		return Down, nil
	case "L":
		return Left, nil
	case "R":
		return Right, nil
	}
	return Up, fmt.Errorf("%w %q", ErrBadDirection, s)
}

// ParseMove reads a move command; "" means stop.
func ParseMove(s string) (dir Direction, moving bool, err error) {
	if s == "" {
		return Up, false, nil
	}
	dir, err = ParseDirection(s)
	return dir, err == nil, err
}

// Velocity maps a direction to a velocity with screen axes (Y grows down).
func Velocity(d Direction, speed float64) geom.Vec {
	switch d {
	case Up:
		return geom.Vec{DY: -speed}
	case Down:
		return geom.Vec{DY: speed}
	case Left:
		return geom.Vec{DX: -speed}
	case Right:
		return geom.Vec{DX: speed}
	}
	return geom.Vec{}
}
