package main

import (
	"fmt"
	"io"

	"dogcourier.ai/internal/sim/runtime"
)

// writeMetrics renders s in the Prometheus text exposition format.
func writeMetrics(w io.Writer, s runtime.Stats) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		fmt.Fprintf(w, "%s %v\n", name, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n", name, v)
	}

	gauge("dogcourier_tick", "Current game tick.", s.Tick)
	gauge("dogcourier_sessions", "Live game sessions.", s.Sessions)
	gauge("dogcourier_dogs", "Dogs currently playing.", s.Dogs)
	gauge("dogcourier_loot", "Loot lying on the roads.", s.Loot)
	gauge("dogcourier_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", s.StepMs))

	counter("dogcourier_joins_total", "Dogs that joined.", s.Joins)
	counter("dogcourier_retired_total", "Dogs retired for idling.", s.Retired)
	counter("dogcourier_snapshot_saves_total", "Snapshots written.", s.Saves)
	counter("dogcourier_snapshot_save_errors_total", "Snapshot writes that failed.", s.SaveErrors)
}
