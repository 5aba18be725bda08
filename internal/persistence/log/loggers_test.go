package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"dogcourier.ai/internal/sim/world"
)

func TestTickLogger_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	for tick := uint64(1); tick <= 3; tick++ {
		if err := l.WriteTick(world.TickLogEntry{Tick: tick, Dt: 50 * time.Millisecond, Digest: "x"}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := Files(filepath.Join(dir, "ticks"), "ticks")
	if err != nil || len(files) != 1 {
		t.Fatalf("files: %v %v", files, err)
	}
	var ticks []uint64
	err = ReadFile(files[0], func(line []byte) error {
		var e world.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		ticks = append(ticks, e.Tick)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(ticks) != 3 || ticks[0] != 1 || ticks[2] != 3 {
		t.Fatalf("ticks: %v", ticks)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "audit")
	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	if err := w.Write(world.AuditEntry{Tick: 1, Action: "JOIN"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(world.AuditEntry{Tick: 2, Action: "RETIRE"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	files, err := Files(dir, "audit")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "audit-2024-05-01-10.jsonl.zst" {
		t.Fatalf("files: %v", files)
	}
}

func TestJSONLZstdWriter_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	for i := 0; i < 2; i++ {
		w := NewJSONLZstdWriter(dir, "ticks")
		w.now = fixed
		if err := w.Write(world.TickLogEntry{Tick: uint64(i)}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	files, _ := Files(dir, "ticks")
	n := 0
	if err := ReadFile(files[0], func([]byte) error { n++; return nil }); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n != 2 {
		t.Fatalf("lines: %d", n)
	}
}
