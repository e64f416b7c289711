// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/mars-scraper/internal/browser"
	collyfetcher "github.com/JakeFAU/mars-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/mars-scraper/internal/scrape"
)

// Store and archive backends accepted by Validate.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	ArchiveMemory = "memory"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig        `mapstructure:"server"`
	Logging LoggingConfig       `mapstructure:"logging"`
	Browser browser.Config      `mapstructure:"browser"`
	HTTP    collyfetcher.Config `mapstructure:"http"`
	Store   StoreConfig         `mapstructure:"store"`
	Archive ArchiveConfig       `mapstructure:"archive"`
	Sources scrape.Config       `mapstructure:"sources"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// RequestTimeoutSeconds bounds every request, including a full /scrape.
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StoreConfig selects where the record lives.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig controls page snapshot archiving.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 300)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")

	v.SetDefault("browser.driver", browser.DriverChromedp)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.stealth", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.nav_timeout", "45s")
	v.SetDefault("browser.click_settle", "500ms")
	v.SetDefault("browser.domain_qps", 0)
	v.SetDefault("browser.max_sessions", 2)

	v.SetDefault("http.user_agent", "mars-scraper/1.0")
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.timeout", "15s")

	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "mars_records")
	v.SetDefault("store.max_conns", 4)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.provider", ArchiveLocal)
	v.SetDefault("archive.base_dir", "snapshots")
	v.SetDefault("archive.gcs_bucket", "")
	v.SetDefault("archive.prefix", "snapshots")

	v.SetDefault("sources.news.url", "https://mars.nasa.gov/news/")
	v.SetDefault("sources.news.slide_selector", "ul.item_list li.slide")
	v.SetDefault("sources.news.title_selector", "div.content_title")
	v.SetDefault("sources.news.teaser_selector", "div.article_teaser_body")
	v.SetDefault("sources.news.wait", "1s")

	v.SetDefault("sources.featured_image.url", "https://data-class-jpl-space.s3.amazonaws.com/JPL_Space/index.html")
	v.SetDefault("sources.featured_image.base_url", "https://data-class-jpl-space.s3.amazonaws.com/JPL_Space/")
	v.SetDefault("sources.featured_image.button.selector", "button")
	v.SetDefault("sources.featured_image.button.ordinal", 1)
	v.SetDefault("sources.featured_image.image_selector", "img.fancybox-image")

	v.SetDefault("sources.facts.url", "http://space-facts.com/mars/")

	v.SetDefault("sources.hemispheres.enabled", true)
	v.SetDefault("sources.hemispheres.url",
		"https://astrogeology.usgs.gov/search/results?q=hemisphere+enhanced&k1=target&v1=Mars")
	v.SetDefault("sources.hemispheres.base_url", "https://astrogeology.usgs.gov")
	v.SetDefault("sources.hemispheres.settle", "1s")
	v.SetDefault("sources.hemispheres.item_selector", "div.item")
	v.SetDefault("sources.hemispheres.thumbnail_selector", "img.thumb")
	v.SetDefault("sources.hemispheres.image.selector", "img")
	v.SetDefault("sources.hemispheres.image.ordinal", 5)
	v.SetDefault("sources.hemispheres.title_selector", "h2.title")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Browser.Driver {
	case browser.DriverChromedp, browser.DriverRod:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q",
			browser.DriverChromedp, browser.DriverRod, c.Browser.Driver)
	}
	if c.Browser.MaxSessions < 0 {
		return fmt.Errorf("browser.max_sessions must be >= 0")
	}
	if c.Browser.DomainQPS < 0 {
		return fmt.Errorf("browser.domain_qps must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err //nolint:wrapcheck
	}
	return nil
}

func (c Config) validateStore() error {
	switch c.Store.Driver {
	case StoreMemory:
		return nil
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.driver is %q", c.Store.Driver)
		}
		return nil
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
}

func (c Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	switch c.Archive.Provider {
	case ArchiveMemory:
	case ArchiveLocal:
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local provider")
		}
	case ArchiveGCS:
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("archive.provider %q is not supported", c.Archive.Provider)
	}
	return nil
}

// RequestTimeout converts the server timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout converts the shutdown grace period into a duration.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
