package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Browser.Type != "browser" && cfg.Browser.Type != "http" {
		return fmt.Errorf("browser.type must be 'browser' or 'http', got %q", cfg.Browser.Type)
	}
	if cfg.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if cfg.Browser.SelectorTimeout <= 0 {
		return fmt.Errorf("browser.selector_timeout must be > 0")
	}

	if cfg.Proxy.Enabled {
		if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
			return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
		}
		for _, proxyURL := range cfg.Proxy.URLs {
			if _, err := url.Parse(proxyURL); err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
			}
		}
	}

	if err := validateHarvest(&cfg.Harvest); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Storage.SnapshotPath) == "" {
		return fmt.Errorf("storage.snapshot_path must not be empty")
	}

	if err := ValidateScoring(&cfg.Scoring); err != nil {
		return err
	}

	if cfg.Database.Table == "" {
		return fmt.Errorf("database.table must not be empty")
	}
	if cfg.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be >= 1, got %d", cfg.Database.MaxConns)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

func validateHarvest(h *HarvestConfig) error {
	for i, target := range h.Trends {
		if target.Category == "" {
			return fmt.Errorf("harvest.trends[%d].category must not be empty", i)
		}
		if err := ValidateURL(target.URL); err != nil {
			return fmt.Errorf("harvest.trends[%d].url: %w", i, err)
		}
	}
	if h.NewsPortal.Enabled {
		if err := ValidateURL(h.NewsPortal.URL); err != nil {
			return fmt.Errorf("harvest.news_portal.url: %w", err)
		}
		if h.NewsPortal.Limit < 1 {
			return fmt.Errorf("harvest.news_portal.limit must be >= 1, got %d", h.NewsPortal.Limit)
		}
		if h.NewsPortal.Retries < 1 {
			return fmt.Errorf("harvest.news_portal.retries must be >= 1, got %d", h.NewsPortal.Retries)
		}
		if h.NewsPortal.RetryDelay < 0 {
			return fmt.Errorf("harvest.news_portal.retry_delay must be >= 0")
		}
	}
	if h.ReloadAttempts < 0 {
		return fmt.Errorf("harvest.reload_attempts must be >= 0, got %d", h.ReloadAttempts)
	}
	if h.ReloadCooldown < 0 {
		return fmt.Errorf("harvest.reload_cooldown must be >= 0")
	}
	if h.Selectors.Kind != "css" && h.Selectors.Kind != "xpath" {
		return fmt.Errorf("harvest.selectors.kind must be 'css' or 'xpath', got %q", h.Selectors.Kind)
	}
	if h.Selectors.TrendRow == "" || h.Selectors.HotKeyword == "" {
		return fmt.Errorf("harvest.selectors.trend_row and hot_keyword must be set")
	}
	return nil
}

// ValidateScoring checks the weight table and candidate scope.
func ValidateScoring(s *ScoringConfig) error {
	if s.BaseScore <= 0 {
		return fmt.Errorf("scoring.base_score must be > 0, got %v", s.BaseScore)
	}
	for category, w := range s.CategoryWeights {
		if w <= 0 {
			return fmt.Errorf("scoring.category_weights[%s] must be > 0, got %v", category, w)
		}
	}
	if s.RelatedWeight <= 0 {
		return fmt.Errorf("scoring.related_weight must be > 0, got %v", s.RelatedWeight)
	}
	if s.DecayFactor <= 0 || s.DecayFactor >= 1 {
		return fmt.Errorf("scoring.decay_factor must be in (0, 1), got %v", s.DecayFactor)
	}
	if s.DefaultRank < 1 {
		return fmt.Errorf("scoring.default_rank must be >= 1, got %d", s.DefaultRank)
	}
	if s.Window < 0 || s.Limit < 0 {
		return fmt.Errorf("scoring.window and scoring.limit must be >= 0")
	}
	if s.Window == 0 && s.Limit == 0 {
		return fmt.Errorf("scoring needs a candidate scope: set scoring.window, scoring.limit, or both")
	}
	return nil
}

// ValidateURL checks if a URL string is valid for fetching.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
