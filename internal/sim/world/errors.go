package world

import "errors"

var (
	ErrMapNotFound     = errors.New("map not found")
	ErrSessionFull     = errors.New("session is full")
	ErrSessionNotFound = errors.New("session not found")
	ErrDogNotFound     = errors.New("dog not found")
	ErrRestore         = errors.New("restore snapshot")
	ErrBadDirection    = errors.New("bad direction")
	ErrReplay          = errors.New("replay diverged")
)
