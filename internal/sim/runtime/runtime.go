// Package runtime drives a world.Game from a single goroutine. Every read or
// write of the game goes through Run, so the game itself needs no locking.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"dogcourier.ai/internal/persistence/records"
	"dogcourier.ai/internal/persistence/snapshot"
	"dogcourier.ai/internal/protocol"
	"dogcourier.ai/internal/sim/world"
)

var ErrManualTickDisabled = errors.New("manual ticks are disabled while the ticker runs")

type Config struct {
	// TickPeriod of 0 means ticks only come from Tick.
	TickPeriod time.Duration
	// SavePeriod of 0 disables autosave. Measured in game time.
	SavePeriod     time.Duration
	StateFile      string
	RetirementTime time.Duration
	ConfigDigest   string
}

// Leaderboard receives retired dogs. Writes must be durable when
// SaveRetired returns nil.
type Leaderboard interface {
	SaveRetired(ctx context.Context, dogs []records.RetiredDog) error
	Top(ctx context.Context, offset, limit int) ([]records.RetiredDog, error)
}

type SnapshotIndex interface {
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

type Runtime struct {
	cfg    Config
	game   *world.Game
	logger *log.Logger

	board       Leaderboard
	tickLogger  world.TickLogger
	auditLogger world.AuditLogger
	snapIndex   SnapshotIndex

	join    chan joinReq
	move    chan moveReq
	state   chan stateReq
	tickReq chan tickReq
	save    chan saveReq

	// Owned by the Run goroutine.
	tick           uint64
	sinceSave      time.Duration
	inputSeq       uint64
	pendingInputs  []world.InputRecord
	pendingRetired []uint64

	stats stats
}

type stats struct {
	tick       atomic.Uint64
	sessions   atomic.Int64
	dogs       atomic.Int64
	loot       atomic.Int64
	joins      atomic.Uint64
	retired    atomic.Uint64
	saves      atomic.Uint64
	saveErrors atomic.Uint64
	stepNanos  atomic.Int64
}

// Stats is a point-in-time copy of the runtime counters.
type Stats struct {
	Tick       uint64
	Sessions   int64
	Dogs       int64
	Loot       int64
	Joins      uint64
	Retired    uint64
	Saves      uint64
	SaveErrors uint64
	StepMs     float64
}

// New wraps g; startTick is the tick the game was restored at (0 for a new
// game).
func New(g *world.Game, startTick uint64, cfg Config, logger *log.Logger) *Runtime {
	if logger == nil {
		logger = log.New(log.Writer(), "[runtime] ", log.LstdFlags)
	}
	r := &Runtime{
		cfg:     cfg,
		game:    g,
		logger:  logger,
		join:    make(chan joinReq, 64),
		move:    make(chan moveReq, 1024),
		state:   make(chan stateReq, 256),
		tickReq: make(chan tickReq),
		save:    make(chan saveReq, 4),
		tick:    startTick,
	}
	r.stats.tick.Store(startTick)
	r.refreshGauges()
	return r
}

func (r *Runtime) SetLeaderboard(b Leaderboard)           { r.board = b }
func (r *Runtime) SetTickLogger(l world.TickLogger)       { r.tickLogger = l }
func (r *Runtime) SetAuditLogger(l world.AuditLogger)     { r.auditLogger = l }
func (r *Runtime) SetSnapshotIndex(i SnapshotIndex)       { r.snapIndex = i }
func (r *Runtime) Config() Config                         { return r.cfg }
func (r *Runtime) Maps() []*world.Map                     { return r.game.Arena().Maps() }
func (r *Runtime) CurrentTick() uint64                    { return r.stats.tick.Load() }
func (r *Runtime) ManualTicks() bool                      { return r.cfg.TickPeriod <= 0 }
func (r *Runtime) LookupMap(id string) (*world.Map, bool) { return lookupMap(r.game.Arena(), id) }

// SetInputSeq continues input numbering after a restore. Call before Run.
func (r *Runtime) SetInputSeq(seq uint64) { r.inputSeq = seq }

func lookupMap(a *world.MapArena, id string) (*world.Map, bool) {
	h, ok := a.Lookup(id)
	if !ok {
		return nil, false
	}
	return a.Get(h), true
}

func (r *Runtime) Stats() Stats {
	return Stats{
		Tick:       r.stats.tick.Load(),
		Sessions:   r.stats.sessions.Load(),
		Dogs:       r.stats.dogs.Load(),
		Loot:       r.stats.loot.Load(),
		Joins:      r.stats.joins.Load(),
		Retired:    r.stats.retired.Load(),
		Saves:      r.stats.saves.Load(),
		SaveErrors: r.stats.saveErrors.Load(),
		StepMs:     float64(r.stats.stepNanos.Load()) / 1e6,
	}
}

// Run serves requests and advances the game until ctx is done. On the way
// out it writes a final snapshot when a state file is configured.
func (r *Runtime) Run(ctx context.Context) error {
	var tickC <-chan time.Time
	if r.cfg.TickPeriod > 0 {
		ticker := time.NewTicker(r.cfg.TickPeriod)
		defer ticker.Stop()
		tickC = ticker.C
	}
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			if r.cfg.StateFile != "" {
				if _, err := r.saveSnapshot(); err != nil {
					r.logger.Printf("final snapshot: %v", err)
				}
			}
			r.flushInputs()
			return ctx.Err()
		case req := <-r.join:
			r.handleJoin(req)
		case req := <-r.move:
			req.Resp <- r.handleMove(req)
		case req := <-r.state:
			r.handleState(req)
		case req := <-r.save:
			path, err := r.saveSnapshot()
			req.Resp <- saveResp{Tick: r.tick, Path: path, Err: err}
		case req := <-r.tickReq:
			req.Resp <- r.step(req.Dt)
		case now := <-tickC:
			dt := now.Sub(last)
			last = now
			r.step(dt)
		}
	}
}

// step advances one tick: simulation, retirement, tick log, autosave.
func (r *Runtime) step(dt time.Duration) world.TickReport {
	start := time.Now()
	rep := r.game.Tick(dt)
	r.tick++
	r.retireIdle()

	if r.tickLogger != nil {
		entry := world.TickLogEntry{
			Tick:    r.tick,
			Dt:      dt,
			Inputs:  r.pendingInputs,
			Retired: r.pendingRetired,
			Report:  rep,
			Digest:  r.game.StateDigest(r.tick),
		}
		if err := r.tickLogger.WriteTick(entry); err != nil {
			r.logger.Printf("tick log: %v", err)
		}
	}
	r.pendingInputs = nil
	r.pendingRetired = nil

	if r.cfg.SavePeriod > 0 && r.cfg.StateFile != "" {
		r.sinceSave += dt
		if r.sinceSave >= r.cfg.SavePeriod {
			r.sinceSave = 0
			if _, err := r.saveSnapshot(); err != nil {
				r.logger.Printf("autosave: %v", err)
			}
		}
	}

	r.stats.tick.Store(r.tick)
	r.stats.stepNanos.Store(int64(time.Since(start)))
	r.refreshGauges()
	return rep
}

// flushInputs logs inputs that no tick will pick up before the loop exits,
// so the input sequence in the tick log stays gapless across restarts.
func (r *Runtime) flushInputs() {
	if r.tickLogger == nil || len(r.pendingInputs) == 0 {
		return
	}
	entry := world.TickLogEntry{
		Tick:   r.tick,
		Flush:  true,
		Inputs: r.pendingInputs,
		Digest: r.game.StateDigest(r.tick),
	}
	if err := r.tickLogger.WriteTick(entry); err != nil {
		r.logger.Printf("tick log flush: %v", err)
	}
	r.pendingInputs = nil
}

func (r *Runtime) refreshGauges() {
	var sessions, dogs, loot int64
	for _, s := range r.game.Sessions() {
		if s == nil {
			continue
		}
		sessions++
		dogs += int64(s.DogCount())
		loot += int64(s.LootCount())
	}
	r.stats.sessions.Store(sessions)
	r.stats.dogs.Store(dogs)
	r.stats.loot.Store(loot)
}

// retireIdle records dogs that stood still too long and then removes them.
// If the leaderboard write fails nobody is retired this tick.
func (r *Runtime) retireIdle() {
	if r.cfg.RetirementTime <= 0 {
		return
	}
	idle := r.game.IdleDogs(r.cfg.RetirementTime)
	if len(idle) == 0 {
		return
	}
	if r.board != nil {
		rows := make([]records.RetiredDog, 0, len(idle))
		for _, it := range idle {
			rows = append(rows, records.RetiredDog{
				DogID:    uint64(it.Dog.ID),
				Name:     it.Dog.Name,
				MapID:    it.MapID,
				Score:    it.Dog.Score,
				PlayTime: it.Dog.LifeTime,
			})
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.board.SaveRetired(ctx, rows)
		cancel()
		if err != nil {
			r.logger.Printf("leaderboard: %v (retirement postponed)", err)
			return
		}
	}
	for _, it := range idle {
		d, err := r.game.RetireDog(it.Slot, it.Dog.ID)
		if err != nil {
			r.logger.Printf("retire dog %d: %v", it.Dog.ID, err)
			continue
		}
		r.stats.retired.Add(1)
		r.pendingRetired = append(r.pendingRetired, uint64(d.ID))
		r.audit(world.AuditEntry{Tick: r.tick, DogID: uint64(d.ID), Name: d.Name, MapID: it.MapID, Slot: it.Slot, Action: "RETIRE", Score: d.Score})
	}
}

// recordInput numbers an accepted input and queues it for the next tick log
// entry.
func (r *Runtime) recordInput(in world.InputRecord) {
	r.inputSeq++
	in.Seq = r.inputSeq
	r.pendingInputs = append(r.pendingInputs, in)
}

func (r *Runtime) audit(e world.AuditEntry) {
	if r.auditLogger == nil {
		return
	}
	if err := r.auditLogger.WriteAudit(e); err != nil {
		r.logger.Printf("audit: %v", err)
	}
}

func (r *Runtime) saveSnapshot() (string, error) {
	path := r.cfg.StateFile
	if path == "" {
		return "", fmt.Errorf("no state file configured")
	}
	// The snapshot carries only a seed, so restart the rng from a fresh one
	// to make the saved state resumable bit for bit.
	seed := r.game.NextSeed()
	r.game.Reseed(seed)
	r.recordInput(world.InputRecord{Kind: world.InputReseed, Seed: seed})

	snap := r.game.ExportSnapshot(r.tick)
	snap.Header.ConfigDigest = r.cfg.ConfigDigest
	snap.Header.InputSeq = r.inputSeq
	snap.Header.SavedAtUnix = time.Now().Unix()
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		r.stats.saveErrors.Add(1)
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	r.stats.saves.Add(1)
	if r.snapIndex != nil {
		r.snapIndex.RecordSnapshot(path, snap)
	}
	return path, nil
}

// Records reads the leaderboard. The store is safe for concurrent use, so
// this does not go through the Run goroutine.
func (r *Runtime) Records(ctx context.Context, offset, limit int) ([]records.RetiredDog, error) {
	if r.board == nil {
		return nil, nil
	}
	return r.board.Top(ctx, offset, limit)
}

// RecordsPage renders one leaderboard page as a RECORDS message. A page of
// zero items is empty.
func (r *Runtime) RecordsPage(ctx context.Context, reqID string, start, maxItems int) (protocol.RecordsMsg, error) {
	msg := protocol.RecordsMsg{Type: protocol.TypeRecords, ProtocolVersion: protocol.Version, ReqID: reqID, Records: []protocol.RecordEntry{}, NextStart: start}
	if maxItems == 0 {
		return msg, nil
	}
	rows, err := r.Records(ctx, start, maxItems)
	if err != nil {
		return msg, err
	}
	for _, d := range rows {
		msg.Records = append(msg.Records, protocol.RecordEntry{Name: d.Name, Score: d.Score, PlayTime: d.PlayTime.Seconds()})
	}
	msg.NextStart = start + len(rows)
	return msg, nil
}

func stateFor(tick uint64, s *world.GameSession, dogID world.DogID) protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		DogID:           uint64(dogID),
		MapID:           s.Map().ID,
		Session:         s.Slot(),
	}
	for _, d := range s.Dogs() {
		p := protocol.PlayerState{
			ID:    uint64(d.ID),
			Name:  d.Name,
			Pos:   [2]float64{d.Pos.X, d.Pos.Y},
			Speed: [2]float64{d.Speed.DX, d.Speed.DY},
			Dir:   d.Facing.String(),
			Score: d.Score,
		}
		for _, o := range d.Bag {
			p.Bag = append(p.Bag, protocol.BagItem{ID: uint64(o.ID), Type: o.Type})
		}
		msg.Players = append(msg.Players, p)
	}
	for _, l := range s.Loot() {
		msg.LostObjects = append(msg.LostObjects, protocol.LootState{ID: uint64(l.ID), Type: l.Type, Pos: [2]float64{l.Pos.X, l.Pos.Y}})
	}
	return msg
}
