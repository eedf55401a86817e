package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TrendPulse/internal/config"
	"github.com/IshaanNene/TrendPulse/internal/observability"
)

func TestRedact(t *testing.T) {
	require.Equal(t, "", redact(""))
	require.Equal(t, "postgres://news:xxxxx@db:5432/news", redact("postgres://news:secret@db:5432/news"))
	require.Equal(t, "postgres://db/news", redact("postgres://db/news"))
}

func TestSetupLoggerLevels(t *testing.T) {
	verbose = false
	logger := setupLogger(&config.LoggingConfig{Level: "warn", Format: "json"})
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	verbose = true
	defer func() { verbose = false }()
	logger = setupLogger(&config.LoggingConfig{Level: "error", Format: "text"})
	require.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestScoreFlagsOverrideOnlyWhenSet(t *testing.T) {
	cmd := scoreCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--limit", "500"}))
	defer func() { scoreLimit, scoreWindow = 0, 0 }()

	cfg := config.DefaultConfig()
	cfg.Scoring.Window = 48 * time.Hour
	applyScoreFlags(cmd)(cfg)

	require.Equal(t, 500, cfg.Scoring.Limit)
	require.Equal(t, 48*time.Hour, cfg.Scoring.Window)
}

func TestHarvestFlags(t *testing.T) {
	cmd := harvestCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--fetcher", "http", "--no-news", "-o", "out/kw.json"}))
	defer func() { harvestFetcher, harvestNoNews, harvestOutput = "", false, "" }()

	cfg := config.DefaultConfig()
	applyHarvestFlags(cfg)

	require.Equal(t, "http", cfg.Browser.Type)
	require.False(t, cfg.Harvest.NewsPortal.Enabled)
	require.Equal(t, "out/kw.json", cfg.Storage.SnapshotPath)
	require.NoError(t, config.Validate(cfg))
}

func TestStopMetricsLogsCounters(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := observability.NewMetrics(logger)
	m.PagesOpened.Add(5)
	m.Rollbacks.Add(1)

	startMetrics(config.DefaultConfig(), logger, m)()

	out := buf.String()
	require.Contains(t, out, "run metrics")
	require.Contains(t, out, "pages_opened=5")
	require.Contains(t, out, "rollbacks=1")
}
