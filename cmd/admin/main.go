// Command admin inspects a dogcourier server's data directory and talks to a
// running server's loopback admin endpoints.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"dogcourier.ai/internal/persistence/archive"
	"dogcourier.ai/internal/persistence/records"
	"dogcourier.ai/internal/persistence/snapshot"
)

const usage = `usage: admin <command> [flags]

commands:
  records   top retired dogs from the leaderboard db
  inspect   summarize a snapshot file
  archives  list archived snapshots
  ticks     dump the tick log
  audit     dump the join/retire audit log
  db        query the snapshot/audit index (snapshots|audits)
  state     GET /admin/v1/state from a running server
  snapshot  POST /admin/v1/snapshot to a running server
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "records":
		recordsCmd(args)
	case "inspect":
		inspectCmd(args)
	case "archives":
		archivesCmd(args)
	case "ticks":
		logCmd("ticks", args)
	case "audit":
		logCmd("audit", args)
	case "db":
		dbCmd(args)
	case "state":
		adminHTTPCmd("state", "GET", "/admin/v1/state", args)
	case "snapshot":
		adminHTTPCmd("snapshot", "POST", "/admin/v1/snapshot", args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func fail(code int, format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(code)
}

func defaultDB(dataDir, dbPath string) string {
	if p := strings.TrimSpace(dbPath); p != "" {
		return p
	}
	return filepath.Join(dataDir, "records.sqlite")
}

func recordsCmd(args []string) {
	fs := flag.NewFlagSet("records", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "leaderboard sqlite path (default: <data>/records.sqlite)")
	start := fs.Int("start", 0, "offset")
	limit := fs.Int("limit", 20, "rows (max 100)")
	asJSON := fs.Bool("json", false, "print JSON lines")
	_ = fs.Parse(args)

	store, err := records.OpenSQLite(defaultDB(*dataDir, *dbPath))
	if err != nil {
		fail(1, "open: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := store.Top(ctx, *start, *limit)
	if err != nil {
		fail(1, "query: %v", err)
	}
	if err := printRecords(os.Stdout, *start, rows, *asJSON); err != nil {
		fail(1, "print: %v", err)
	}
}

func printRecords(w io.Writer, start int, rows []records.RetiredDog, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tPLAY TIME\tMAP")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", start+i+1, r.Name, r.Score, r.PlayTime.Round(time.Millisecond), r.MapID)
	}
	return tw.Flush()
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	path := fs.String("snapshot", "", "snapshot file (required)")
	headerOnly := fs.Bool("header", false, "print only the header")
	_ = fs.Parse(args)
	if strings.TrimSpace(*path) == "" {
		fail(2, "missing -snapshot")
	}

	if *headerOnly {
		h, err := snapshot.ReadHeader(*path)
		if err != nil {
			fail(1, "read header: %v", err)
		}
		b, _ := json.MarshalIndent(h, "", "  ")
		fmt.Println(string(b))
		return
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fail(1, "read snapshot: %v", err)
	}
	b, _ := json.MarshalIndent(summarize(snap), "", "  ")
	fmt.Println(string(b))
}

func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, "archives")
	metas, err := archive.List(dir)
	if err != nil {
		fail(1, "list: %v", err)
	}
	if err := printArchives(os.Stdout, dir, metas); err != nil {
		fail(1, "print: %v", err)
	}
}

func printArchives(w io.Writer, dir string, metas []archive.Meta) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TICK	INPUT SEQ	SESSIONS	DOGS	CREATED	SNAPSHOT")
	for _, m := range metas {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%s\t%s\n", m.Tick, m.InputSeq, m.Sessions, m.Dogs, m.CreatedAt, filepath.Join(dir, m.Snapshot))
	}
	return tw.Flush()
}

type sessionSummary struct {
	Slot  int    `json:"slot"`
	MapID string `json:"map_id"`
	Spent bool   `json:"spent,omitempty"`
	Dogs  int    `json:"dogs"`
	Loot  int    `json:"loot"`
	Score int    `json:"score"`
}

type snapshotSummary struct {
	Header    snapshot.Header  `json:"header"`
	NextDogID uint64           `json:"next_dog_id"`
	Dogs      int              `json:"dogs"`
	Loot      int              `json:"loot"`
	Sessions  []sessionSummary `json:"sessions"`
}

func summarize(snap snapshot.SnapshotV1) snapshotSummary {
	out := snapshotSummary{Header: snap.Header, NextDogID: snap.NextDogID, Sessions: []sessionSummary{}}
	for _, s := range snap.Sessions {
		ss := sessionSummary{Slot: s.Slot, MapID: s.MapID, Spent: s.Spent, Dogs: len(s.Dogs), Loot: len(s.Loot)}
		for _, d := range s.Dogs {
			ss.Score += d.Score
		}
		out.Dogs += ss.Dogs
		out.Loot += ss.Loot
		out.Sessions = append(out.Sessions, ss)
	}
	return out
}
