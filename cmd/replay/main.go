package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	persistlog "dogcourier.ai/internal/persistence/log"
	"dogcourier.ai/internal/persistence/snapshot"
	"dogcourier.ai/internal/sim/catalogs"
	"dogcourier.ai/internal/sim/tuning"
	"dogcourier.ai/internal/sim/world"
)

func main() {
	var (
		configPath     = flag.String("config", "./configs/game.json", "game config the server ran with")
		tuningPath     = flag.String("tuning", "", "path to tuning.yaml (default: next to -config)")
		snapPath       = flag.String("snapshot", "", "state file to start from (default: a fresh game)")
		dataDir        = flag.String("data", "./data", "runtime data directory holding ticks/")
		seed           = flag.Int64("seed", 0, "seed of the fresh game (printed by the server at startup)")
		randomizeSpawn = flag.Bool("randomize_spawn", false, "fresh game spawns at random road points")
		toTick         = flag.Uint64("to_tick", 0, "stop after this tick (0: end of log)")
	)
	flag.Parse()

	cfg, err := catalogs.Load(*configPath)
	if err != nil {
		fail("load game config: %v", err)
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(filepath.Dir(*configPath), "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			fail("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}
	arena, err := world.NewArena(cfg, tune.SessionCapacity)
	if err != nil {
		fail("maps: %v", err)
	}

	var (
		g         *world.Game
		startTick uint64
		afterSeq  uint64
	)
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fail("read snapshot: %v", err)
		}
		if snap.Header.ConfigDigest != "" && snap.Header.ConfigDigest != cfg.Digest {
			fail("snapshot was saved with config digest %s, %s has %s", snap.Header.ConfigDigest, *configPath, cfg.Digest)
		}
		g, err = world.RestoreGame(snap, arena, world.Options{})
		if err != nil {
			fail("restore: %v", err)
		}
		startTick, afterSeq = snap.Header.Tick, snap.Header.InputSeq
		fmt.Printf("snapshot v%d tick=%d input_seq=%d sessions=%d next_dog=%d\n",
			snap.Header.Version, startTick, afterSeq, len(snap.Sessions), snap.NextDogID)
	} else {
		g = world.NewGame(arena, world.Options{
			LootPeriod:      time.Duration(cfg.LootGenerator.Period * float64(time.Second)),
			LootProbability: cfg.LootGenerator.Probability,
			RandomizeSpawn:  *randomizeSpawn,
			Seed:            *seed,
		})
	}

	checked, err := replayLog(g, filepath.Join(*dataDir, "ticks"), startTick, afterSeq, *toTick)
	if err != nil {
		fail("replay: %v (after %d ticks)", err, checked)
	}
	fmt.Printf("replay ok: checked=%d ticks from tick=%d\n", checked, startTick)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// errStop ends the walk once toTick is reached.
var errStop = errors.New("stop")

// replayLog feeds every tick log entry after startTick to g and checks the
// digest of each. Ticks and input sequence numbers must be contiguous; a gap
// means the log does not belong to this starting state.
func replayLog(g *world.Game, dir string, startTick, afterSeq, toTick uint64) (uint64, error) {
	files, err := persistlog.Files(dir, "ticks")
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no tick logs under %s", dir)
	}
	var (
		checked uint64
		tick    = startTick
		seq     = afterSeq
	)
	for _, path := range files {
		err := persistlog.ReadFile(path, func(line []byte) error {
			var e world.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if e.Tick < startTick || (e.Tick == startTick && !newInputs(e, seq)) {
				return nil
			}
			if toTick != 0 && e.Tick > toTick {
				return errStop
			}
			want := tick + 1
			if e.Flush {
				want = tick
			}
			if e.Tick != want {
				return fmt.Errorf("%s: expected tick %d, log has %d", filepath.Base(path), want, e.Tick)
			}
			for _, in := range e.Inputs {
				if in.Seq <= afterSeq {
					continue
				}
				if in.Seq != seq+1 {
					return fmt.Errorf("tick %d: expected input %d, log has %d", e.Tick, seq+1, in.Seq)
				}
				seq = in.Seq
			}
			got, err := g.ReplayTick(e, afterSeq)
			if err != nil {
				return err
			}
			if got != e.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", e.Tick, got, e.Digest)
			}
			if !e.Flush {
				tick = e.Tick
				checked++
			}
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}

// newInputs reports whether e carries inputs past seq. Entries at the
// starting tick matter only then: a flush written after the save that the
// replay starts from holds nothing new.
func newInputs(e world.TickLogEntry, seq uint64) bool {
	if !e.Flush {
		return false
	}
	for _, in := range e.Inputs {
		if in.Seq > seq {
			return true
		}
	}
	return false
}
