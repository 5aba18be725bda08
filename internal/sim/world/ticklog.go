package world

import "time"

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickLogEntry is everything needed to redo one tick: the inputs applied
// before it, its duration and the dogs retired after it. Digest is the state
// digest once the tick is complete.
//
// A Flush entry carries inputs accepted after tick Tick that no tick
// followed, such as the reseed of the save on shutdown. It does not advance
// the game.
type TickLogEntry struct {
	Tick    uint64        `json:"tick"`
	Flush   bool          `json:"flush,omitempty"`
	Dt      time.Duration `json:"dt_ns"`
	Inputs  []InputRecord `json:"inputs,omitempty"`
	Retired []uint64      `json:"retired,omitempty"`
	Report  TickReport    `json:"report"`
	Digest  string        `json:"digest"`
}

const (
	InputJoin   = "JOIN"
	InputMove   = "MOVE"
	InputReseed = "RESEED"
)

// InputRecord is one accepted input. Seq increases by one per input over the
// life of the game, across restarts.
type InputRecord struct {
	Seq   uint64 `json:"seq"`
	Kind  string `json:"kind"`
	DogID uint64 `json:"dog_id,omitempty"`
	Name  string `json:"name,omitempty"`
	MapID string `json:"map_id,omitempty"`
	Move  string `json:"move,omitempty"`
	Seed  int64  `json:"seed,omitempty"`
}

// AuditEntry records a dog entering or leaving the game.
type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	DogID  uint64 `json:"dog_id"`
	Name   string `json:"name"`
	MapID  string `json:"map_id"`
	Slot   int    `json:"slot"`
	Action string `json:"action"` // "JOIN", "RETIRE"
	Score  int    `json:"score,omitempty"`
}
