package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config values can be written as "5m" or
// "30s" in YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements custom YAML unmarshaling for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", str, err)
	}
	d.Duration = parsed
	return nil
}

// Config represents the main configuration structure
type Config struct {
	API      APIConfig      `yaml:"api"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Prefetch PrefetchConfig `yaml:"prefetch"`
	Server   ServerConfig   `yaml:"server"`
}

// APIConfig configures the remote content API.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
}

// CacheConfig configures the tiered cache.
type CacheConfig struct {
	GeneralMax  int      `yaml:"general_max"`
	ImageMax    int      `yaml:"image_max"`
	CategoryMax int      `yaml:"category_max"`
	DefaultTTL  Duration `yaml:"default_ttl"`
}

// StorageConfig selects the durable key-value store backend.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // redis, memory, none
	RedisURL string `yaml:"redis_url"`
	MemoryMB int    `yaml:"memory_mb"`
}

// PrefetchConfig configures the background prefetcher and TTL retuner.
type PrefetchConfig struct {
	Disabled           bool     `yaml:"disabled"`
	WarmupDelay        Duration `yaml:"warmup_delay"`
	RetuneInterval     Duration `yaml:"retune_interval"`
	QualityLogInterval Duration `yaml:"quality_log_interval"`
	DefaultCategory    int      `yaml:"default_category"`
	TTLGood            Duration `yaml:"ttl_good"`
	TTLNormal          Duration `yaml:"ttl_normal"`
	TTLPoor            Duration `yaml:"ttl_poor"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://news.example.com"
	}
	if c.API.PageSize <= 0 {
		c.API.PageSize = 6
	}

	if c.Cache.GeneralMax <= 0 {
		c.Cache.GeneralMax = 150
	}
	if c.Cache.ImageMax <= 0 {
		c.Cache.ImageMax = 300
	}
	if c.Cache.CategoryMax <= 0 {
		c.Cache.CategoryMax = 100
	}
	if c.Cache.DefaultTTL.Duration <= 0 {
		c.Cache.DefaultTTL.Duration = 5 * time.Minute
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.MemoryMB <= 0 {
		c.Storage.MemoryMB = 64
	}

	if c.Prefetch.WarmupDelay.Duration <= 0 {
		c.Prefetch.WarmupDelay.Duration = 5 * time.Second
	}
	if c.Prefetch.RetuneInterval.Duration <= 0 {
		c.Prefetch.RetuneInterval.Duration = 60 * time.Second
	}
	if c.Prefetch.QualityLogInterval.Duration <= 0 {
		c.Prefetch.QualityLogInterval.Duration = 30 * time.Second
	}
	if c.Prefetch.DefaultCategory <= 0 {
		c.Prefetch.DefaultCategory = 3
	}
	if c.Prefetch.TTLGood.Duration <= 0 {
		c.Prefetch.TTLGood.Duration = 2 * time.Minute
	}
	if c.Prefetch.TTLNormal.Duration <= 0 {
		c.Prefetch.TTLNormal.Duration = 5 * time.Minute
	}
	if c.Prefetch.TTLPoor.Duration <= 0 {
		c.Prefetch.TTLPoor.Duration = 15 * time.Minute
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
}
