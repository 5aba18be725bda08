package main

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	persistlog "dogcourier.ai/internal/persistence/log"
	"dogcourier.ai/internal/persistence/snapshot"
	"dogcourier.ai/internal/sim/catalogs"
	"dogcourier.ai/internal/sim/runtime"
	"dogcourier.ai/internal/sim/world"
)

const testGame = `{
  "maps": [
    {"id": "town", "name": "Town", "dogSpeed": 2, "maxPlayers": 2,
     "lootTypes": [{"name": "key", "file": "key.obj", "type": "obj", "value": 10}, {"name": "bone", "file": "bone.obj", "type": "obj", "value": 3}],
     "roads": [{"x0": 0, "y0": 0, "x1": 30}, {"x0": 30, "y0": 0, "y1": 20}],
     "offices": [{"id": "o1", "x": 30, "y": 20, "offsetX": 1, "offsetY": 0}]}
  ]
}`

type recordedRun struct {
	arena    *world.MapArena
	opts     world.Options
	ticksDir string
	snap     snapshot.SnapshotV1
}

// record plays 15 manual ticks with a save after the fifth.
func record(t *testing.T) recordedRun {
	t.Helper()
	cfg, err := catalogs.Parse([]byte(testGame), "game.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	arena, err := world.NewArena(cfg, 4)
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.snap")
	opts := world.Options{LootPeriod: 500 * time.Millisecond, LootProbability: 0.5, RandomizeSpawn: true, Seed: 3}

	tickLog := persistlog.NewTickLogger(dir)
	rt := runtime.New(world.NewGame(arena, opts), 0, runtime.Config{StateFile: statePath}, log.New(io.Discard, "", 0))
	rt.SetTickLogger(tickLog)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()

	bg := context.Background()
	a, _ := rt.Join(bg, "town", "a")
	_ = rt.Move(bg, a.DogID, world.Right, true)
	for i := 0; i < 5; i++ {
		_, _ = rt.Tick(bg, 400*time.Millisecond)
	}
	if _, err := rt.SaveSnapshot(bg); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(statePath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	b, _ := rt.Join(bg, "town", "b")
	c, _ := rt.Join(bg, "town", "c")
	_ = rt.Move(bg, b.DogID, world.Down, true)
	_ = rt.Move(bg, c.DogID, world.Right, true)
	for i := 0; i < 10; i++ {
		_, _ = rt.Tick(bg, 300*time.Millisecond)
	}

	cancel()
	<-done
	if err := tickLog.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}
	return recordedRun{arena: arena, opts: opts, ticksDir: filepath.Join(dir, "ticks"), snap: snap}
}

func TestReplayLog_FromStart(t *testing.T) {
	run := record(t)
	n, err := replayLog(world.NewGame(run.arena, run.opts), run.ticksDir, 0, 0, 0)
	if err != nil || n != 15 {
		t.Fatalf("replay: checked %d, err %v", n, err)
	}

	n, err = replayLog(world.NewGame(run.arena, run.opts), run.ticksDir, 0, 0, 8)
	if err != nil || n != 8 {
		t.Fatalf("replay to tick 8: checked %d, err %v", n, err)
	}
}

func TestReplayLog_FromSnapshot(t *testing.T) {
	run := record(t)
	g, err := world.RestoreGame(run.snap, run.arena, world.Options{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	n, err := replayLog(g, run.ticksDir, run.snap.Header.Tick, run.snap.Header.InputSeq, 0)
	if err != nil || n != 10 {
		t.Fatalf("replay: checked %d, err %v", n, err)
	}
}

func TestReplayLog_WrongStartingState(t *testing.T) {
	run := record(t)
	g, err := world.RestoreGame(run.snap, run.arena, world.Options{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	// The snapshot already contains inputs up to InputSeq.
	if _, err := replayLog(g, run.ticksDir, run.snap.Header.Tick, 0, 0); err == nil {
		t.Fatalf("expected an input sequence gap")
	}

	other := run.opts
	other.Seed = 4
	if _, err := replayLog(world.NewGame(run.arena, other), run.ticksDir, 0, 0, 0); err == nil {
		t.Fatalf("expected a digest mismatch with another seed")
	}

	if _, err := replayLog(world.NewGame(run.arena, run.opts), t.TempDir(), 0, 0, 0); err == nil {
		t.Fatalf("expected an error without tick logs")
	}
}

// session runs the runtime over g for five manual ticks with one new dog and
// then stops it the way the server does on shutdown.
func session(t *testing.T, g *world.Game, startTick, inputSeq uint64, dir, statePath, name string) {
	t.Helper()
	tickLog := persistlog.NewTickLogger(dir)
	rt := runtime.New(g, startTick, runtime.Config{StateFile: statePath}, log.New(io.Discard, "", 0))
	rt.SetTickLogger(tickLog)
	rt.SetInputSeq(inputSeq)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()

	bg := context.Background()
	j, err := rt.Join(bg, "town", name)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	_ = rt.Move(bg, j.DogID, world.Right, true)
	for i := 0; i < 5; i++ {
		_, _ = rt.Tick(bg, 400*time.Millisecond)
	}
	cancel()
	<-done
	if err := tickLog.Close(); err != nil {
		t.Fatalf("close tick log: %v", err)
	}
}

func TestReplayLog_AcrossRestart(t *testing.T) {
	cfg, err := catalogs.Parse([]byte(testGame), "game.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	arena, err := world.NewArena(cfg, 4)
	if err != nil {
		t.Fatalf("arena: %v", err)
	}
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.snap")
	opts := world.Options{LootPeriod: 500 * time.Millisecond, LootProbability: 0.5, RandomizeSpawn: true, Seed: 11}

	session(t, world.NewGame(arena, opts), 0, 0, dir, statePath, "a")
	snap, err := snapshot.ReadSnapshot(statePath)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	g, err := world.RestoreGame(snap, arena, world.Options{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	session(t, g, snap.Header.Tick, snap.Header.InputSeq, dir, statePath, "b")

	n, err := replayLog(world.NewGame(arena, opts), filepath.Join(dir, "ticks"), 0, 0, 0)
	if err != nil || n != 10 {
		t.Fatalf("replay from start: checked %d, err %v", n, err)
	}

	g, err = world.RestoreGame(snap, arena, world.Options{})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	n, err = replayLog(g, filepath.Join(dir, "ticks"), snap.Header.Tick, snap.Header.InputSeq, 0)
	if err != nil || n != 5 {
		t.Fatalf("replay from first save: checked %d, err %v", n, err)
	}
}
