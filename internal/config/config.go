package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for TrendPulse.
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Proxy    ProxyConfig    `mapstructure:"proxy"    yaml:"proxy"`
	Harvest  HarvestConfig  `mapstructure:"harvest"  yaml:"harvest"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Scoring  ScoringConfig  `mapstructure:"scoring"  yaml:"scoring"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// BrowserConfig controls the page fetcher and the client identity it presents.
type BrowserConfig struct {
	Type              string            `mapstructure:"type"               yaml:"type"` // browser, http
	Headless          bool              `mapstructure:"headless"           yaml:"headless"`
	Bin               string            `mapstructure:"bin"                yaml:"bin"`
	UserAgent         string            `mapstructure:"user_agent"         yaml:"user_agent"`
	AcceptLanguage    string            `mapstructure:"accept_language"    yaml:"accept_language"`
	Referer           string            `mapstructure:"referer"            yaml:"referer"`
	ExtraHeaders      map[string]string `mapstructure:"extra_headers"      yaml:"extra_headers"`
	NavigationTimeout time.Duration     `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SelectorTimeout   time.Duration     `mapstructure:"selector_timeout"   yaml:"selector_timeout"`
	Stealth           bool              `mapstructure:"stealth"            yaml:"stealth"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Enabled  bool     `mapstructure:"enabled"  yaml:"enabled"`
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// HarvestConfig lists the harvest targets and the retry policy.
type HarvestConfig struct {
	Trends         []TrendTarget    `mapstructure:"trends"          yaml:"trends"`
	NewsPortal     NewsPortalConfig `mapstructure:"news_portal"     yaml:"news_portal"`
	ReloadAttempts int              `mapstructure:"reload_attempts" yaml:"reload_attempts"`
	ReloadCooldown time.Duration    `mapstructure:"reload_cooldown" yaml:"reload_cooldown"`
	Selectors      SelectorConfig   `mapstructure:"selectors"       yaml:"selectors"`
}

// TrendTarget is one (category, URL) pair on the search-trends site.
type TrendTarget struct {
	Category string `mapstructure:"category" yaml:"category"`
	URL      string `mapstructure:"url"      yaml:"url"`
}

// NewsPortalConfig configures the single news-portal source.
type NewsPortalConfig struct {
	Enabled    bool          `mapstructure:"enabled"     yaml:"enabled"`
	URL        string        `mapstructure:"url"         yaml:"url"`
	Limit      int           `mapstructure:"limit"       yaml:"limit"`
	Retries    int           `mapstructure:"retries"     yaml:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// SelectorConfig holds the DOM selectors for each semantic role.
type SelectorConfig struct {
	Kind             string `mapstructure:"kind"              yaml:"kind"` // css, xpath
	TrendRow         string `mapstructure:"trend_row"         yaml:"trend_row"`
	MainKeyword      string `mapstructure:"main_keyword"      yaml:"main_keyword"`
	RelatedKeyword   string `mapstructure:"related_keyword"   yaml:"related_keyword"`
	RelatedAttribute string `mapstructure:"related_attribute" yaml:"related_attribute"`
	HotKeyword       string `mapstructure:"hot_keyword"       yaml:"hot_keyword"`
	HotAttribute     string `mapstructure:"hot_attribute"     yaml:"hot_attribute"`
	HotLink          string `mapstructure:"hot_link"          yaml:"hot_link"`
}

// StorageConfig controls the snapshot file and the optional archive.
type StorageConfig struct {
	SnapshotPath    string `mapstructure:"snapshot_path"    yaml:"snapshot_path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// ScoringConfig holds the weight table and candidate scope.
type ScoringConfig struct {
	BaseScore       float64            `mapstructure:"base_score"       yaml:"base_score"`
	CategoryWeights map[string]float64 `mapstructure:"category_weights" yaml:"category_weights"`
	DefaultCategory string             `mapstructure:"default_category" yaml:"default_category"`
	DefaultRank     int                `mapstructure:"default_rank"     yaml:"default_rank"`
	RelatedWeight   float64            `mapstructure:"related_weight"   yaml:"related_weight"`
	DecayFactor     float64            `mapstructure:"decay_factor"     yaml:"decay_factor"`
	Window          time.Duration      `mapstructure:"window"           yaml:"window"`
	Limit           int                `mapstructure:"limit"            yaml:"limit"`
}

// DatabaseConfig describes the Postgres news archive.
type DatabaseConfig struct {
	DSN              string        `mapstructure:"dsn"               yaml:"dsn"`
	Table            string        `mapstructure:"table"             yaml:"table"`
	MaxConns         int           `mapstructure:"max_conns"         yaml:"max_conns"`
	SimpleProtocol   bool          `mapstructure:"simple_protocol"   yaml:"simple_protocol"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout" yaml:"statement_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

const trendsURL = "https://trends.google.com.tw/trending?geo=TW&hours=24&category="

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Type:           "browser",
			Headless:       true,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
			AcceptLanguage: "zh-TW,zh;q=0.9",
			Referer:        "https://www.google.com/",
			ExtraHeaders: map[string]string{
				"Connection": "keep-alive",
			},
			NavigationTimeout: 120 * time.Second,
			SelectorTimeout:   10 * time.Second,
			Stealth:           true,
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Rotation: "round_robin",
		},
		Harvest: HarvestConfig{
			Trends: []TrendTarget{
				{Category: "11", URL: trendsURL + "11"},
				{Category: "10", URL: trendsURL + "10"},
				{Category: "14", URL: trendsURL + "14"},
				{Category: "3", URL: trendsURL + "3"},
			},
			NewsPortal: NewsPortalConfig{
				Enabled:    true,
				URL:        "https://www.ltn.com.tw/",
				Limit:      20,
				Retries:    3,
				RetryDelay: 5 * time.Second,
			},
			ReloadAttempts: 2,
			ReloadCooldown: 8 * time.Second,
			Selectors: SelectorConfig{
				Kind:             "css",
				TrendRow:         "#trend-table > div.enOdEe-wZVHld-zg7Cn-haAclf > table > tbody:nth-child(3) > tr",
				MainKeyword:      ".mZ3RIc",
				RelatedKeyword:   `[data-idom-class="b5M0dd"]`,
				RelatedAttribute: "data-term",
				HotKeyword:       `[id^="hot_keyword_area_word_"]`,
				HotAttribute:     "data-desc",
				HotLink:          "a",
			},
		},
		Storage: StorageConfig{
			SnapshotPath:    "./output/trending_keywords.json",
			MongoDatabase:   "trendpulse",
			MongoCollection: "trend_snapshots",
		},
		Scoring: ScoringConfig{
			BaseScore: 10,
			CategoryWeights: map[string]float64{
				"11": 1.2,
				"10": 1.5,
				"14": 2.0,
				"3":  1.1,
			},
			DefaultCategory: "11",
			DefaultRank:     999,
			RelatedWeight:   1.0,
			DecayFactor:     0.5,
			Window:          48 * time.Hour,
		},
		Database: DatabaseConfig{
			Table:            "news",
			MaxConns:         2,
			StatementTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
