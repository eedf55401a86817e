package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on the returned Config.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("TRENDPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The news archive DSN has historically come from DATABASE_URL.
	if err := v.BindEnv("database.dsn", "TRENDPULSE_DATABASE_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind database env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("trendpulse")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".trendpulse"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	resetCollections(v, cfg)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// resetCollections drops default maps and lists that the file or env
// sets, so they replace the defaults instead of being merged into them.
func resetCollections(v *viper.Viper, cfg *Config) {
	if v.IsSet("scoring.category_weights") {
		cfg.Scoring.CategoryWeights = nil
	}
	if v.IsSet("browser.extra_headers") {
		cfg.Browser.ExtraHeaders = nil
	}
	if v.IsSet("harvest.trends") {
		cfg.Harvest.Trends = nil
	}
}

// setDefaults registers scalar defaults so env overrides resolve.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("browser.type", cfg.Browser.Type)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.user_agent", cfg.Browser.UserAgent)
	v.SetDefault("browser.accept_language", cfg.Browser.AcceptLanguage)
	v.SetDefault("browser.referer", cfg.Browser.Referer)
	v.SetDefault("browser.navigation_timeout", cfg.Browser.NavigationTimeout)
	v.SetDefault("browser.selector_timeout", cfg.Browser.SelectorTimeout)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)

	v.SetDefault("proxy.enabled", cfg.Proxy.Enabled)
	v.SetDefault("proxy.rotation", cfg.Proxy.Rotation)

	v.SetDefault("harvest.reload_attempts", cfg.Harvest.ReloadAttempts)
	v.SetDefault("harvest.reload_cooldown", cfg.Harvest.ReloadCooldown)
	v.SetDefault("harvest.news_portal.enabled", cfg.Harvest.NewsPortal.Enabled)
	v.SetDefault("harvest.news_portal.url", cfg.Harvest.NewsPortal.URL)
	v.SetDefault("harvest.news_portal.limit", cfg.Harvest.NewsPortal.Limit)
	v.SetDefault("harvest.news_portal.retries", cfg.Harvest.NewsPortal.Retries)
	v.SetDefault("harvest.news_portal.retry_delay", cfg.Harvest.NewsPortal.RetryDelay)
	v.SetDefault("harvest.selectors.kind", cfg.Harvest.Selectors.Kind)

	v.SetDefault("storage.snapshot_path", cfg.Storage.SnapshotPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("scoring.base_score", cfg.Scoring.BaseScore)
	v.SetDefault("scoring.default_category", cfg.Scoring.DefaultCategory)
	v.SetDefault("scoring.default_rank", cfg.Scoring.DefaultRank)
	v.SetDefault("scoring.related_weight", cfg.Scoring.RelatedWeight)
	v.SetDefault("scoring.decay_factor", cfg.Scoring.DecayFactor)
	v.SetDefault("scoring.window", cfg.Scoring.Window)
	v.SetDefault("scoring.limit", cfg.Scoring.Limit)

	v.SetDefault("database.table", cfg.Database.Table)
	v.SetDefault("database.max_conns", cfg.Database.MaxConns)
	v.SetDefault("database.simple_protocol", cfg.Database.SimpleProtocol)
	v.SetDefault("database.statement_timeout", cfg.Database.StatementTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
