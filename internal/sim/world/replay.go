package world

import "fmt"

// ApplyInput redoes one logged input.
func (g *Game) ApplyInput(in InputRecord) error {
	switch in.Kind {
	case InputJoin:
		id := g.AllocateDogID()
		if uint64(id) != in.DogID {
			return fmt.Errorf("%w: input %d: join allocated dog %d, log has %d", ErrReplay, in.Seq, id, in.DogID)
		}
		if _, _, err := g.JoinSession(in.MapID, id, in.Name); err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrReplay, in.Seq, err)
		}
	case InputMove:
		dir, moving, err := ParseMove(in.Move)
		if err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrReplay, in.Seq, err)
		}
		if err := g.MoveDog(DogID(in.DogID), dir, moving); err != nil {
			return fmt.Errorf("%w: input %d: %w", ErrReplay, in.Seq, err)
		}
	case InputReseed:
		g.Reseed(in.Seed)
	default:
		return fmt.Errorf("%w: input %d: unknown kind %q", ErrReplay, in.Seq, in.Kind)
	}
	return nil
}

// ReplayTick redoes a logged tick and returns the resulting state digest.
// Inputs with Seq <= afterSeq are already part of the state and are skipped.
// A Flush entry only applies its inputs.
func (g *Game) ReplayTick(e TickLogEntry, afterSeq uint64) (string, error) {
	for _, in := range e.Inputs {
		if in.Seq <= afterSeq {
			continue
		}
		if err := g.ApplyInput(in); err != nil {
			return "", err
		}
	}
	if e.Flush {
		return g.StateDigest(e.Tick), nil
	}
	g.Tick(e.Dt)
	for _, id := range e.Retired {
		slot, ok := g.dogSlot[DogID(id)]
		if !ok {
			return "", fmt.Errorf("%w: tick %d: retired dog %d is not playing", ErrReplay, e.Tick, id)
		}
		if _, err := g.RetireDog(slot, DogID(id)); err != nil {
			return "", fmt.Errorf("%w: tick %d: %w", ErrReplay, e.Tick, err)
		}
	}
	return g.StateDigest(e.Tick), nil
}
