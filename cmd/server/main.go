package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"dogcourier.ai/internal/persistence/archive"
	persistlog "dogcourier.ai/internal/persistence/log"
	"dogcourier.ai/internal/persistence/records"
	"dogcourier.ai/internal/persistence/snapshot"
	"dogcourier.ai/internal/sim/catalogs"
	"dogcourier.ai/internal/sim/runtime"
	"dogcourier.ai/internal/sim/tuning"
	"dogcourier.ai/internal/sim/world"
	"dogcourier.ai/internal/transport/httpapi"
	"dogcourier.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/game.json", "game config (maps, loot types)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: next to -config)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		dbPath     = flag.String("db", "", "leaderboard sqlite path (default: <data>/records.sqlite)")
		disableDB  = flag.Bool("disable_db", false, "run without the leaderboard/index database")

		stateFile      = flag.String("state_file", "", "snapshot file to restore from and save to (overrides tuning)")
		tickPeriod     = flag.Duration("tick_period", 0, "tick period; 0 enables manual ticks (overrides tuning)")
		savePeriod     = flag.Duration("save_period", 0, "autosave period in game time (overrides tuning)")
		randomizeSpawn = flag.Bool("randomize_spawn", false, "spawn dogs at random road points (overrides tuning)")
		seed           = flag.Int64("seed", 0, "rng seed (0: time based)")
	)
	flag.Parse()
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := catalogs.Load(*configPath)
	if err != nil {
		logger.Fatalf("load game config: %v", err)
	}
	logger.Printf("game config %s: %d maps digest=%s", *configPath, len(cfg.Maps), cfg.Digest)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(filepath.Dir(*configPath), "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if set["state_file"] {
		tune.StateFile = *stateFile
	}
	if set["tick_period"] {
		tune.TickPeriodMs = int(tickPeriod.Milliseconds())
	}
	if set["save_period"] {
		tune.SaveStatePeriodMs = int(savePeriod.Milliseconds())
	}
	if set["randomize_spawn"] {
		tune.RandomizeSpawnPoints = *randomizeSpawn
	}

	arena, err := world.NewArena(cfg, tune.SessionCapacity)
	if err != nil {
		logger.Fatalf("maps: %v", err)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	opts := world.Options{
		LootPeriod:      time.Duration(cfg.LootGenerator.Period * float64(time.Second)),
		LootProbability: cfg.LootGenerator.Probability,
		RandomizeSpawn:  tune.RandomizeSpawnPoints,
		Seed:            *seed,
	}

	// Fresh game, or resumed from the state file.
	var (
		game      *world.Game
		startTick uint64
		inputSeq  uint64
	)
	if tune.StateFile != "" {
		if _, err := os.Stat(tune.StateFile); err == nil {
			snap, err := snapshot.ReadSnapshot(tune.StateFile)
			if err != nil {
				logger.Fatalf("read snapshot: %v", err)
			}
			if snap.Header.ConfigDigest != "" && snap.Header.ConfigDigest != cfg.Digest {
				logger.Printf("snapshot was saved with a different game config (digest %s)", snap.Header.ConfigDigest)
			}
			game, err = world.RestoreGame(snap, arena, opts)
			if err != nil {
				logger.Fatalf("restore snapshot: %v", err)
			}
			startTick, inputSeq = snap.Header.Tick, snap.Header.InputSeq
			logger.Printf("resumed from %s tick=%d input_seq=%d", tune.StateFile, startTick, inputSeq)
		}
	}
	if game == nil {
		game = world.NewGame(arena, opts)
		logger.Printf("new game seed=%d randomize_spawn=%v", *seed, opts.RandomizeSpawn)
	}

	rt := runtime.New(game, startTick, runtime.Config{
		TickPeriod:     tune.TickPeriod(),
		SavePeriod:     tune.SaveStatePeriod(),
		StateFile:      tune.StateFile,
		RetirementTime: time.Duration(cfg.DogRetirementTime * float64(time.Second)),
		ConfigDigest:   cfg.Digest,
	}, logger)
	rt.SetInputSeq(inputSeq)
	if rt.ManualTicks() {
		logger.Printf("manual tick mode: POST /api/v1/game/tick advances the game")
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	tickLog := persistlog.NewTickLogger(*dataDir)
	auditLog := persistlog.NewAuditLogger(*dataDir)
	defer tickLog.Close()
	defer auditLog.Close()
	rt.SetTickLogger(tickLog)

	indexes := snapshotIndexes{}
	if tune.ArchiveEveryTicks > 0 {
		archiveLog := log.New(os.Stdout, "[archive] ", log.LstdFlags|log.Lmicroseconds)
		indexes = append(indexes, archive.NewArchiver(filepath.Join(*dataDir, "archives"), uint64(tune.ArchiveEveryTicks), tune.ArchiveKeep, archiveLog))
	}

	var store *records.Store
	if !*disableDB {
		p := strings.TrimSpace(*dbPath)
		if p == "" {
			p = filepath.Join(*dataDir, "records.sqlite")
		}
		store, err = records.OpenSQLite(p)
		if err != nil {
			logger.Fatalf("open records db: %v", err)
		}
		defer store.Close()
		rt.SetLeaderboard(store)
		indexes = append(indexes, store)
		rt.SetAuditLogger(multiAuditLogger{a: auditLog, b: store})
	} else {
		rt.SetAuditLogger(auditLog)
		logger.Printf("leaderboard disabled (-disable_db)")
	}

	rt.SetSnapshotIndex(indexes)

	ctx, cancel := signalContext()
	defer cancel()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("runtime stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, rt.Stats())
	})

	enableAdminHTTP := envBool("DC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("DC_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(struct {
				Tick  uint64        `json:"tick"`
				Stats runtime.Stats `json:"stats"`
			}{Tick: rt.CurrentTick(), Stats: rt.Stats()})
		})
		mux.HandleFunc("/admin/v1/snapshot", snapshotHandler(rt))
	} else {
		logger.Printf("admin endpoints disabled (DC_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	httpapi.NewServer(rt, logger).Register(mux)
	mux.HandleFunc("/v1/ws", ws.NewServer(rt, tune.StatePush(), logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	// Run saves the final snapshot on its way out.
	<-runDone
}

func snapshotHandler(rt *runtime.Runtime) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		tick, err := rt.SaveSnapshot(ctx)
		rw.Header().Set("Content-Type", "application/json")
		if err != nil {
			rw.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true, "tick": tick, "path": rt.Config().StateFile})
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}

type snapshotIndexes []runtime.SnapshotIndex

func (s snapshotIndexes) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	for _, idx := range s {
		idx.RecordSnapshot(path, snap)
	}
}
