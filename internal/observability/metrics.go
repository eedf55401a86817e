package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks harvest and scoring counters.
type Metrics struct {
	// Harvest metrics
	PagesOpened      atomic.Int64
	SelectorTimeouts atomic.Int64
	Reloads          atomic.Int64
	RowsExtracted    atomic.Int64
	RowsSkipped      atomic.Int64
	SourceFailures   atomic.Int64
	RecordsWritten   atomic.Int64

	// Scoring metrics
	NewsMatched atomic.Int64
	NewsUpdated atomic.Int64
	Rollbacks   atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

type sample struct {
	name  string
	help  string
	value int64
}

func (m *Metrics) samples() []sample {
	return []sample{
		{"trendpulse_pages_opened_total", "Total pages opened", m.PagesOpened.Load()},
		{"trendpulse_selector_timeouts_total", "Total selector waits that timed out", m.SelectorTimeouts.Load()},
		{"trendpulse_reloads_total", "Total page reloads", m.Reloads.Load()},
		{"trendpulse_rows_extracted_total", "Total rows turned into trend records", m.RowsExtracted.Load()},
		{"trendpulse_rows_skipped_total", "Total malformed rows skipped", m.RowsSkipped.Load()},
		{"trendpulse_source_failures_total", "Total sources that failed entirely", m.SourceFailures.Load()},
		{"trendpulse_records_written_total", "Total trend records written to snapshots", m.RecordsWritten.Load()},
		{"trendpulse_news_matched_total", "Total keyword to news record matches", m.NewsMatched.Load()},
		{"trendpulse_news_updated_total", "Total popularity updates committed", m.NewsUpdated.Load()},
		{"trendpulse_rollbacks_total", "Total scoring transactions rolled back", m.Rollbacks.Load()},
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for _, s := range m.samples() {
		fmt.Fprintf(w, "# HELP %s %s\n", s.name, s.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", s.name)
		fmt.Fprintf(w, "%s %d\n", s.name, s.value)
	}
}

// StartServer starts the metrics HTTP server. The returned function shuts
// it down.
func (m *Metrics) StartServer(port int, path string) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv.Shutdown
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_opened":      m.PagesOpened.Load(),
		"selector_timeouts": m.SelectorTimeouts.Load(),
		"reloads":           m.Reloads.Load(),
		"rows_extracted":    m.RowsExtracted.Load(),
		"rows_skipped":      m.RowsSkipped.Load(),
		"source_failures":   m.SourceFailures.Load(),
		"records_written":   m.RecordsWritten.Load(),
		"news_matched":      m.NewsMatched.Load(),
		"news_updated":      m.NewsUpdated.Load(),
		"rollbacks":         m.Rollbacks.Load(),
	}
}
