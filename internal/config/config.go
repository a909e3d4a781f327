// Package config loads monitor settings from an optional YAML file, a .env
// file and VITA_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const dirName = ".vita"

type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Poll    PollConfig    `yaml:"poll"`
	Display DisplayConfig `yaml:"display"`
	Map     MapConfig     `yaml:"map"`
	Log     LogConfig     `yaml:"log"`
	Health  HealthConfig  `yaml:"health"`
}

type SourceConfig struct {
	URL     string        `yaml:"url" env:"VITA_SOURCE_URL" env-default:"http://localhost:8000"`
	File    string        `yaml:"file" env:"VITA_SOURCE_FILE"`
	Timeout time.Duration `yaml:"timeout" env:"VITA_SOURCE_TIMEOUT" env-default:"5s"`
	Retry   RetryConfig   `yaml:"retry"`
	Breaker BreakerConfig `yaml:"breaker"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env:"VITA_RETRY_MAX_ATTEMPTS" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"VITA_RETRY_INITIAL_DELAY" env-default:"250ms"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"VITA_RETRY_MAX_DELAY" env-default:"2s"`
}

type BreakerConfig struct {
	Failures int           `yaml:"failures" env:"VITA_BREAKER_FAILURES" env-default:"5"`
	OpenFor  time.Duration `yaml:"open_for" env:"VITA_BREAKER_OPEN_FOR" env-default:"30s"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval" env:"VITA_POLL_INTERVAL" env-default:"10s"`
}

// DisplayConfig selects the presentation mode. The zero value is the
// full-screen panel; windowed mode offers the collapse toggle.
type DisplayConfig struct {
	Windowed bool `yaml:"windowed" env:"VITA_WINDOWED"`
}

type MapConfig struct {
	RadiusMeters float64 `yaml:"radius_m" env:"VITA_MAP_RADIUS_M" env-default:"60"`
	InitialZoom  int     `yaml:"initial_zoom" env:"VITA_MAP_INITIAL_ZOOM" env-default:"18"`
	MinZoom      int     `yaml:"min_zoom" env:"VITA_MAP_MIN_ZOOM" env-default:"15"`
	MaxZoom      int     `yaml:"max_zoom" env:"VITA_MAP_MAX_ZOOM" env-default:"20"`
	CloseZoom    int     `yaml:"close_zoom" env:"VITA_MAP_CLOSE_ZOOM" env-default:"18"`
	WideZoom     int     `yaml:"wide_zoom" env:"VITA_MAP_WIDE_ZOOM" env-default:"15"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"VITA_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"VITA_LOG_FORMAT" env-default:"text"`
	File   string `yaml:"file" env:"VITA_LOG_FILE"`
}

type HealthConfig struct {
	Address string `yaml:"address" env:"VITA_HEALTH_ADDRESS"`
}

// Load reads configuration. An empty path falls back to VITA_CONFIG and then
// to environment variables only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	if path == "" {
		path = os.Getenv("VITA_CONFIG")
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(DataDir(), "vita.log")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints the tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Source.URL == "" && c.Source.File == "" {
		errs = append(errs, errors.New("source: url or file is required"))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, errors.New("source.timeout must be positive"))
	}
	if c.Source.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("source.retry.max_attempts must be at least 1"))
	}
	if c.Source.Breaker.Failures < 1 {
		errs = append(errs, errors.New("source.breaker.failures must be at least 1"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval must be positive"))
	}
	if c.Map.RadiusMeters <= 0 {
		errs = append(errs, errors.New("map.radius_m must be positive"))
	}
	m := c.Map
	if m.MinZoom > m.MaxZoom {
		errs = append(errs, fmt.Errorf("map.min_zoom %d above map.max_zoom %d", m.MinZoom, m.MaxZoom))
	}
	for name, z := range map[string]int{"initial_zoom": m.InitialZoom, "close_zoom": m.CloseZoom, "wide_zoom": m.WideZoom} {
		if z < m.MinZoom || z > m.MaxZoom {
			errs = append(errs, fmt.Errorf("map.%s %d outside [%d,%d]", name, z, m.MinZoom, m.MaxZoom))
		}
	}
	return errors.Join(errs...)
}

// DataDir returns ~/.vita, where the log file lives by default.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}
