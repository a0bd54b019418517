// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs for a feed run.
type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Output   OutputConfig   `mapstructure:"output"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Render   RenderConfig   `mapstructure:"render"`
	Detector DetectorConfig `mapstructure:"detector"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig controls how the upstream XML feed is fetched.
type FeedConfig struct {
	URL            string        `mapstructure:"url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// OutputConfig sets where the generated feeds land.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// ScrapeConfig governs the product page enrichment stage.
type ScrapeConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	OriginRPS      float64       `mapstructure:"origin_rps"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RenderConfig configures the optional headless rendering subsystem.
type RenderConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
}

// DetectorConfig tunes the needs-JS heuristic for product pages.
type DetectorConfig struct {
	MinHTMLBytes    int      `mapstructure:"min_html_bytes"`
	RequiredMarkers []string `mapstructure:"required_markers"`
}

// ServerConfig controls the optional status/metrics HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDXML")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The deployment environment historically toggled scraping via
	// ENABLE_SCRAPING, so keep honoring it alongside the prefixed form.
	if err := v.BindEnv("scrape.enabled", "FEEDXML_SCRAPE_ENABLED", "ENABLE_SCRAPING"); err != nil {
		return Config{}, fmt.Errorf("bind scrape env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.url", "https://tienda.accu-chek.com.mx/Main/FeedXML")
	v.SetDefault("feed.user_agent", "feedxml-mx/2.0 (+https://github.com/feedsmith/feedxml-mx)")
	v.SetDefault("feed.request_timeout", "30s")
	v.SetDefault("output.dir", "output")
	v.SetDefault("scrape.enabled", true)
	v.SetDefault("scrape.max_concurrency", 3)
	v.SetDefault("scrape.origin_rps", 1.0)
	v.SetDefault("scrape.request_timeout", "10s")
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.timeout", "15s")
	v.SetDefault("render.max_concurrency", 2)
	v.SetDefault("detector.min_html_bytes", 2048)
	v.SetDefault("detector.required_markers", []string{"dataProd"})
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Feed.URL) == "" {
		return fmt.Errorf("feed.url must be set")
	}
	if c.Feed.UserAgent == "" {
		return fmt.Errorf("feed.user_agent must be set")
	}
	if c.Feed.RequestTimeout <= 0 {
		return fmt.Errorf("feed.request_timeout must be > 0")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir must be set")
	}
	if c.Scrape.MaxConcurrency <= 0 {
		return fmt.Errorf("scrape.max_concurrency must be > 0")
	}
	if c.Scrape.OriginRPS <= 0 {
		return fmt.Errorf("scrape.origin_rps must be > 0")
	}
	if c.Scrape.RequestTimeout <= 0 {
		return fmt.Errorf("scrape.request_timeout must be > 0")
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be > 0")
	}
	if c.Render.MaxConcurrency < 0 {
		return fmt.Errorf("render.max_concurrency must be >= 0")
	}
	if c.Detector.MinHTMLBytes < 0 {
		return fmt.Errorf("detector.min_html_bytes must be >= 0")
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("server.port must be a valid TCP port")
	}
	return nil
}
