package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	persistlog "dogcourier.ai/internal/persistence/log"
)

func logCmd(kind string, args []string) {
	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	since := fs.Uint64("since_tick", 0, "skip entries before this tick")
	dog := fs.Int64("dog", -1, "only entries for this dog (audit)")
	limit := fs.Int("limit", 0, "stop after this many entries (0: all)")
	_ = fs.Parse(args)

	n, err := dumpLog(os.Stdout, filepath.Join(*dataDir, kind), kind, logFilter{SinceTick: *since, DogID: *dog, Limit: *limit})
	if err != nil {
		fail(1, "%s: %v", kind, err)
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", n)
}

type logFilter struct {
	SinceTick uint64
	DogID     int64 // -1: any
	Limit     int
}

// errLimit stops ReadFile once the filter's limit is reached.
var errLimit = errors.New("limit reached")

// dumpLog copies matching JSON lines of every <prefix>-*.jsonl.zst under dir
// to w and returns how many were written.
func dumpLog(w io.Writer, dir, prefix string, f logFilter) (int, error) {
	files, err := persistlog.Files(dir, prefix)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, path := range files {
		err := persistlog.ReadFile(path, func(line []byte) error {
			var head struct {
				Tick  uint64 `json:"tick"`
				DogID *int64 `json:"dog_id"`
			}
			if err := json.Unmarshal(line, &head); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if head.Tick < f.SinceTick {
				return nil
			}
			if f.DogID >= 0 && (head.DogID == nil || *head.DogID != f.DogID) {
				return nil
			}
			if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
				return err
			}
			n++
			if f.Limit > 0 && n >= f.Limit {
				return errLimit
			}
			return nil
		})
		if errors.Is(err, errLimit) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
