package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	m.Reloads.Add(2)
	m.NewsUpdated.Add(5)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	require.Contains(t, body, "# TYPE trendpulse_reloads_total counter\n")
	require.Contains(t, body, "trendpulse_reloads_total 2\n")
	require.Contains(t, body, "trendpulse_news_updated_total 5\n")
	require.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	snap := m.Snapshot()
	require.Equal(t, int64(2), snap["reloads"])
	require.Equal(t, int64(0), snap["rollbacks"])
}
