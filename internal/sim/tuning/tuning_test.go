package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := "tick_period_ms: 0\nrandomize_spawn_points: true\nsave_state_period_ms: 1500\nstate_file: data/state.bin\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.TickPeriod() != 0 || !tu.RandomizeSpawnPoints {
		t.Fatalf("overrides: %+v", tu)
	}
	if tu.SaveStatePeriod() != 1500*time.Millisecond || tu.StateFile != "data/state.bin" {
		t.Fatalf("save: %+v", tu)
	}
	if tu.SessionCapacity != Defaults().SessionCapacity || tu.ProtocolVersion != "1.0" || tu.ArchiveKeep != 24 || tu.ArchiveEveryTicks != 0 {
		t.Fatalf("defaults lost: %+v", tu)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	for i, raw := range []string{"tick_period_ms: -1\n", "session_capacity: 0\n", "archive_keep: -2\n", "tick_period_ms: [\n"} {
		path := filepath.Join(dir, "t.yaml")
		if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
