package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd reads the snapshot and audit index tables directly; the leaderboard
// has its own command.
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite path (default: <data>/records.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	dog := fs.Int64("dog", -1, "dog id filter (audits)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	db, err := sql.Open("sqlite", defaultDB(*dataDir, *dbPath))
	if err != nil {
		fail(1, "open: %v", err)
	}
	defer db.Close()

	enc := json.NewEncoder(os.Stdout)
	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,sessions,dogs,loot,config_digest FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fail(1, "query: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64  `json:"tick"`
				Path     string `json:"path"`
				Sessions int    `json:"sessions"`
				Dogs     int    `json:"dogs"`
				Loot     int    `json:"loot"`
				Digest   string `json:"config_digest"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Sessions, &r.Dogs, &r.Loot, &r.Digest); err != nil {
				fail(1, "scan: %v", err)
			}
			_ = enc.Encode(r)
		}
		if err := rows.Err(); err != nil {
			fail(1, "rows: %v", err)
		}
	case "audits":
		query := `SELECT raw_json FROM audits ORDER BY tick DESC, seq DESC LIMIT ?`
		qargs := []any{*limit}
		if *dog >= 0 {
			query = `SELECT raw_json FROM audits WHERE dog_id=? ORDER BY tick DESC, seq DESC LIMIT ?`
			qargs = []any{*dog, *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fail(1, "query: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var raw string
			if err := rows.Scan(&raw); err != nil {
				fail(1, "scan: %v", err)
			}
			_ = enc.Encode(json.RawMessage(raw))
		}
		if err := rows.Err(); err != nil {
			fail(1, "rows: %v", err)
		}
	default:
		fail(2, "unknown query %q (snapshots|audits)", q)
	}
}
