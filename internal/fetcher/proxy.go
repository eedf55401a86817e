package fetcher

import (
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/IshaanNene/TrendPulse/internal/config"
)

// ProxyManager rotates through the configured proxies.
type ProxyManager struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	logger   *slog.Logger
}

// NewProxyManager creates a new ProxyManager from configuration. Unparsable
// entries are skipped with a warning.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*url.URL, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		logger:   logger.With("component", "proxy_manager"),
	}

	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, u)
	}

	pm.logger.Info("proxy manager initialized", "count", len(pm.proxies), "rotation", cfg.Rotation)
	return pm
}

// ProxyFunc returns an http.Transport-compatible proxy function.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return pm.Next(), nil
	}
}

// Next returns the next proxy URL, or nil for a direct connection.
func (pm *ProxyManager) Next() *url.URL {
	if len(pm.proxies) == 0 {
		return nil
	}
	if pm.rotation == "random" {
		return pm.proxies[rand.Intn(len(pm.proxies))]
	}
	i := pm.index.Add(1) - 1
	return pm.proxies[int(i%int64(len(pm.proxies)))]
}

// Count returns the number of usable proxies.
func (pm *ProxyManager) Count() int {
	return len(pm.proxies)
}

// proxiesFor returns the proxy manager for cfg, or nil when proxying is off or
// none of the configured URLs is usable.
func proxiesFor(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	if !cfg.Enabled {
		return nil
	}
	pm := NewProxyManager(cfg, logger)
	if pm.Count() == 0 {
		logger.Warn("proxy enabled but no usable proxy URLs, connecting directly", "configured", len(cfg.URLs))
		return nil
	}
	return pm
}
