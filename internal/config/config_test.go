package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	require.Len(t, cfg.Harvest.Trends, 4)
	require.Equal(t, 2.0, cfg.Scoring.CategoryWeights["14"])
	require.Equal(t, 120*time.Second, cfg.Browser.NavigationTimeout)
	require.Equal(t, 10*time.Second, cfg.Browser.SelectorTimeout)
	require.Equal(t, 2, cfg.Harvest.ReloadAttempts)
	require.Equal(t, 3, cfg.Harvest.NewsPortal.Retries)
	require.Equal(t, 20, cfg.Harvest.NewsPortal.Limit)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trendpulse.yaml")
	yamlBody := `
harvest:
  reload_attempts: 1
  reload_cooldown: 2s
scoring:
  base_score: 20
  window: 24h
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	t.Setenv("TRENDPULSE_SCORING_LIMIT", "500")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/news")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Harvest.ReloadAttempts)
	require.Equal(t, 2*time.Second, cfg.Harvest.ReloadCooldown)
	require.Equal(t, 20.0, cfg.Scoring.BaseScore)
	require.Equal(t, 24*time.Hour, cfg.Scoring.Window)
	require.Equal(t, 500, cfg.Scoring.Limit)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "postgres://u:p@localhost:5432/news", cfg.Database.DSN)
	// untouched sections keep their defaults
	require.Equal(t, "news", cfg.Database.Table)
	require.NoError(t, Validate(cfg))
}

func TestLoadReplacesDefaultCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trendpulse.yaml")
	yamlBody := `
browser:
  extra_headers:
    DNT: "1"
harvest:
  trends:
    - category: "5"
      url: https://trends.example.com/5
scoring:
  category_weights:
    "5": 3.0
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"5": 3.0}, cfg.Scoring.CategoryWeights)
	require.Len(t, cfg.Browser.ExtraHeaders, 1)
	require.Equal(t, []TrendTarget{{Category: "5", URL: "https://trends.example.com/5"}}, cfg.Harvest.Trends)
}

func TestLoadKeepsDefaultCollectionsWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trendpulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Scoring.CategoryWeights, 4)
	require.Len(t, cfg.Harvest.Trends, 4)
	require.Equal(t, "keep-alive", cfg.Browser.ExtraHeaders["Connection"])
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "fetcher type", mutate: func(c *Config) { c.Browser.Type = "curl" }},
		{name: "selector kind", mutate: func(c *Config) { c.Harvest.Selectors.Kind = "regex" }},
		{name: "bad trend url", mutate: func(c *Config) { c.Harvest.Trends[0].URL = "ftp://x" }},
		{name: "news retries", mutate: func(c *Config) { c.Harvest.NewsPortal.Retries = 0 }},
		{name: "decay factor", mutate: func(c *Config) { c.Scoring.DecayFactor = 1 }},
		{name: "no scope", mutate: func(c *Config) { c.Scoring.Window = 0; c.Scoring.Limit = 0 }},
		{name: "negative weight", mutate: func(c *Config) { c.Scoring.CategoryWeights["3"] = -1 }},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			require.Error(t, Validate(cfg))
		})
	}
}
