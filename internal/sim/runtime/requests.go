package runtime

import (
	"context"
	"fmt"
	"time"

	"dogcourier.ai/internal/protocol"
	"dogcourier.ai/internal/sim/world"
)

type joinReq struct {
	MapID string
	Name  string
	Resp  chan joinResp
}

type joinResp struct {
	Res JoinResult
	Err error
}

// JoinResult describes where a new dog was placed.
type JoinResult struct {
	DogID world.DogID
	Slot  int
	Map   *world.Map
	Pos   [2]float64
}

type moveReq struct {
	DogID  world.DogID
	Dir    world.Direction
	Moving bool
	Resp   chan error
}

type stateReq struct {
	DogID world.DogID
	Resp  chan stateResp
}

type stateResp struct {
	Msg protocol.StateMsg
	Err error
}

type tickReq struct {
	Dt   time.Duration
	Resp chan world.TickReport
}

type saveReq struct {
	Resp chan saveResp
}

type saveResp struct {
	Tick uint64
	Path string
	Err  error
}

// call hands req to the Run goroutine and waits for its answer.
func call[Req any, Resp any](ctx context.Context, ch chan<- Req, req Req, resp <-chan Resp) (Resp, error) {
	var zero Resp
	select {
	case ch <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Join adds a dog called name to mapID.
func (r *Runtime) Join(ctx context.Context, mapID, name string) (JoinResult, error) {
	if _, ok := r.LookupMap(mapID); !ok {
		return JoinResult{}, fmt.Errorf("map %q: %w", mapID, world.ErrMapNotFound)
	}
	resp := make(chan joinResp, 1)
	out, err := call(ctx, r.join, joinReq{MapID: mapID, Name: name, Resp: resp}, resp)
	if err != nil {
		return JoinResult{}, err
	}
	return out.Res, out.Err
}

func (r *Runtime) handleJoin(req joinReq) {
	id := r.game.AllocateDogID()
	slot, d, err := r.game.JoinSession(req.MapID, id, req.Name)
	if err != nil {
		req.Resp <- joinResp{Err: err}
		return
	}
	s, _ := r.game.Session(slot)
	r.recordInput(world.InputRecord{Kind: world.InputJoin, DogID: uint64(id), Name: req.Name, MapID: req.MapID})
	r.stats.joins.Add(1)
	r.refreshGauges()
	r.audit(world.AuditEntry{Tick: r.tick, DogID: uint64(id), Name: d.Name, MapID: req.MapID, Slot: slot, Action: "JOIN"})
	req.Resp <- joinResp{Res: JoinResult{DogID: id, Slot: slot, Map: s.Map(), Pos: [2]float64{d.Pos.X, d.Pos.Y}}}
}

// Move points the dog in dir, or stops it when moving is false.
func (r *Runtime) Move(ctx context.Context, id world.DogID, dir world.Direction, moving bool) error {
	resp := make(chan error, 1)
	err, cerr := call(ctx, r.move, moveReq{DogID: id, Dir: dir, Moving: moving, Resp: resp}, resp)
	if cerr != nil {
		return cerr
	}
	return err
}

func (r *Runtime) handleMove(req moveReq) error {
	if err := r.game.MoveDog(req.DogID, req.Dir, req.Moving); err != nil {
		return err
	}
	move := ""
	if req.Moving {
		move = req.Dir.String()
	}
	r.recordInput(world.InputRecord{Kind: world.InputMove, DogID: uint64(req.DogID), Move: move})
	return nil
}

// State renders the session that holds the dog.
func (r *Runtime) State(ctx context.Context, id world.DogID) (protocol.StateMsg, error) {
	resp := make(chan stateResp, 1)
	out, err := call(ctx, r.state, stateReq{DogID: id, Resp: resp}, resp)
	if err != nil {
		return protocol.StateMsg{}, err
	}
	return out.Msg, out.Err
}

func (r *Runtime) handleState(req stateReq) {
	s, _, err := r.game.FindDog(req.DogID)
	if err != nil {
		req.Resp <- stateResp{Err: err}
		return
	}
	req.Resp <- stateResp{Msg: stateFor(r.tick, s, req.DogID)}
}

// Tick advances the game by dt. Only allowed when no ticker is running.
func (r *Runtime) Tick(ctx context.Context, dt time.Duration) (world.TickReport, error) {
	if !r.ManualTicks() {
		return world.TickReport{}, ErrManualTickDisabled
	}
	if dt < 0 {
		return world.TickReport{}, fmt.Errorf("negative time delta %v", dt)
	}
	resp := make(chan world.TickReport, 1)
	return call(ctx, r.tickReq, tickReq{Dt: dt, Resp: resp}, resp)
}

// SaveSnapshot writes the configured state file and returns the tick it
// captured.
func (r *Runtime) SaveSnapshot(ctx context.Context) (uint64, error) {
	resp := make(chan saveResp, 1)
	out, err := call(ctx, r.save, saveReq{Resp: resp}, resp)
	if err != nil {
		return 0, err
	}
	return out.Tick, out.Err
}
