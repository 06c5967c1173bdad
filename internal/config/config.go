// Package config loads the service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"stratos/internal/logger"
)

type AppConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
	LogPath    string `mapstructure:"log_path"`
}

type RulesConfig struct {
	// ConfigDir is the explicit descriptor override location. Empty means the
	// STRATOS_CONFIG_DIR environment variable (if set) takes its place.
	ConfigDir string `mapstructure:"config_dir"`
}

type DedupConfig struct {
	Backend       string        `mapstructure:"backend"` // memory | sqlite | redis
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	SqlitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
}

type ExecConfig struct {
	// MaxTimeout caps the per-request max_timeout, in seconds.
	MaxTimeout float64 `mapstructure:"max_timeout"`
	// GracePeriod bounds how long an abandoned (timed-out) strategy call may
	// hold its pair's serialization token during teardown.
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

type StrategiesConfig struct {
	// RegistryPath points at the YAML file declaring strategy instances.
	RegistryPath string `mapstructure:"registry_path"`
	// StorePath is the sqlite mirror of the instance registry. Empty disables
	// the mirror.
	StorePath string `mapstructure:"store_path"`
}

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Exec       ExecConfig       `mapstructure:"exec"`
	Strategies StrategiesConfig `mapstructure:"strategies"`
}

// Load reads a YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.ListenAddr == "" {
		c.App.ListenAddr = ":9880"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Dedup.Backend == "" {
		c.Dedup.Backend = "memory"
	}
	if c.Dedup.TTL <= 0 {
		c.Dedup.TTL = time.Hour
	}
	if c.Dedup.MaxEntries <= 0 {
		c.Dedup.MaxEntries = 100_000
	}
	if c.Dedup.SqlitePath == "" {
		c.Dedup.SqlitePath = "data/dedup.db"
	}
	if c.Dedup.RedisAddr == "" {
		c.Dedup.RedisAddr = "127.0.0.1:6379"
	}
	if c.Exec.MaxTimeout <= 0 {
		c.Exec.MaxTimeout = 30
	}
	if c.Exec.GracePeriod <= 0 {
		c.Exec.GracePeriod = 5 * time.Second
	}
	if c.Strategies.RegistryPath == "" {
		c.Strategies.RegistryPath = "configs/strategies.yaml"
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Dedup.Backend) {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("dedup.backend %q: must be memory, sqlite, or redis", c.Dedup.Backend)
	}
	if c.Exec.MaxTimeout > 300 {
		return fmt.Errorf("exec.max_timeout %v exceeds the 300s ceiling", c.Exec.MaxTimeout)
	}
	return nil
}

// Watch re-reads the config file on change and applies the log level. Only
// the log level is hot-applied; everything else requires a restart.
func Watch(path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("config: watch disabled, read failed: %v", err)
		return
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if level := v.GetString("app.log_level"); level != "" {
			logger.SetLevel(level)
			logger.Infof("config: log level set to %s (%s)", level, evt.Name)
		}
	})
	v.WatchConfig()
}
