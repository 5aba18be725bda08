// Package archive keeps point-in-time copies of the state file so a later
// replay can start from any of them.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dogcourier.ai/internal/persistence/snapshot"
)

type Meta struct {
	Tick         uint64 `json:"tick"`
	InputSeq     uint64 `json:"input_seq"`
	Seed         int64  `json:"seed"`
	ConfigDigest string `json:"config_digest,omitempty"`
	Snapshot     string `json:"snapshot"`
	CreatedAt    string `json:"created_at"`
	Sessions     int    `json:"sessions"`
	Dogs         int    `json:"dogs"`
}

// ArchiveSnapshot copies snapshotPath into `dir/tick_<NNNNNNNNNN>/` next to a
// meta.json describing snap, and returns the copy's path.
func ArchiveSnapshot(dir, snapshotPath string, snap snapshot.SnapshotV1) (string, error) {
	archiveDir := filepath.Join(dir, fmt.Sprintf("tick_%010d", snap.Header.Tick))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := Meta{
		Tick:         snap.Header.Tick,
		InputSeq:     snap.Header.InputSeq,
		Seed:         snap.Seed,
		ConfigDigest: snap.Header.ConfigDigest,
		Snapshot:     filepath.Base(dst),
		CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, s := range snap.Sessions {
		if !s.Spent {
			meta.Sessions++
			meta.Dogs += len(s.Dogs)
		}
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// List returns the meta of every archive under dir, oldest first. Entries
// are keyed by directory, so Snapshot is rewritten to a path relative to dir.
func List(dir string) ([]Meta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Meta
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "tick_") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name(), "meta.json"))
		if err != nil {
			return nil, err
		}
		var m Meta
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%s/meta.json: %w", e.Name(), err)
		}
		m.Snapshot = filepath.Join(e.Name(), m.Snapshot)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

// Prune removes all but the newest keep archives. keep <= 0 keeps everything.
func Prune(dir string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	metas, err := List(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(metas)-removed > keep {
		m := metas[removed]
		if err := os.RemoveAll(filepath.Join(dir, filepath.Dir(m.Snapshot))); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Archiver archives the first saved snapshot at or past every multiple of
// everyTicks. It plugs into the runtime as a snapshot index.
type Archiver struct {
	dir    string
	every  uint64
	keep   int
	logger *log.Logger

	next uint64
}

func NewArchiver(dir string, everyTicks uint64, keep int, logger *log.Logger) *Archiver {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Archiver{dir: dir, every: everyTicks, keep: keep, logger: logger}
}

func (a *Archiver) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if a.every == 0 || snap.Header.Tick < a.next {
		return
	}
	a.next = (snap.Header.Tick/a.every + 1) * a.every
	dst, err := ArchiveSnapshot(a.dir, path, snap)
	if err != nil {
		a.logger.Printf("archive snapshot tick=%d: %v", snap.Header.Tick, err)
		return
	}
	a.logger.Printf("archived snapshot tick=%d to %s", snap.Header.Tick, dst)
	if n, err := Prune(a.dir, a.keep); err != nil {
		a.logger.Printf("prune archives: %v", err)
	} else if n > 0 {
		a.logger.Printf("pruned %d old archives", n)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
