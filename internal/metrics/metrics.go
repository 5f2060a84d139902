// Package metrics serves the application.metrics_addr HTTP endpoint: a
// plain-text snapshot of each stream's exchange-to-receive latency
// histogram plus its redundant-client drop counts. Deliberately
// stdlib-only (net/http), a narrow diagnostic surface distinct from the
// optional pyroscope-go continuous profiler wired in cmd/runner.
package metrics

import (
	"fmt"
	"net/http"
	"sort"

	"main/internal/timeutil"
)

// Source is anything that can report its current per-stream latency
// histograms and redundant-client drop counts; *pipeline.Engine
// satisfies this.
type Source interface {
	Histograms() map[string]*timeutil.Histogram
	Dropped() map[string]uint64
}

// Serve starts an HTTP server on addr exposing "/metrics" as a plain-text
// percentile dump across all sources. It runs until the listener errors
// (caller wires this into an errgroup or a log-and-continue goroutine);
// a non-nil, non-closed error should be logged by the caller.
func Serve(addr string, sources []Source) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeSnapshot(w, sources)
	})
	return http.ListenAndServe(addr, mux)
}

func writeSnapshot(w http.ResponseWriter, sources []Source) {
	type row struct {
		name  string
		stats timeutil.Stats
	}
	var rows []row
	for _, src := range sources {
		for name, h := range src.Histograms() {
			rows = append(rows, row{name: name, stats: h.Snapshot()})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, r := range rows {
		fmt.Fprintf(w, "%s count=%d p50_us=%d p90_us=%d p99_us=%d\n",
			r.name, r.stats.Count, r.stats.P50, r.stats.P90, r.stats.P99)
	}

	type dropRow struct {
		name    string
		dropped uint64
	}
	var drops []dropRow
	for _, src := range sources {
		for name, d := range src.Dropped() {
			drops = append(drops, dropRow{name: name, dropped: d})
		}
	}
	sort.Slice(drops, func(i, j int) bool { return drops[i].name < drops[j].name })
	for _, d := range drops {
		fmt.Fprintf(w, "%s dropped=%d\n", d.name, d.dropped)
	}
}
