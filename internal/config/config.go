package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPath       = "config/config.toml"
	defaultPort       = "8080"
	defaultMaxRows    = 50
	defaultMaxBytes   = 10 << 20
	defaultSessionTTL = 60
)

type ServiceConfig struct {
	BaseURL string `toml:"base_url"`
	// TimeoutSeconds of 0 means requests are not bounded.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type ServerConfig struct {
	Port string `toml:"port"`
	// Mode is passed to gin.SetMode: debug, release or test.
	Mode string `toml:"mode"`
}

type UploadConfig struct {
	// MaxRows caps how many CSV rows are loaded into one batch.
	MaxRows  int   `toml:"max_rows"`
	MaxBytes int64 `toml:"max_bytes"`
}

type SessionConfig struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Service ServiceConfig `toml:"service"`
	Server  ServerConfig  `toml:"server"`
	Upload  UploadConfig  `toml:"upload"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// Load reads the TOML file at path. A missing file yields defaults so the
// service can run from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyDefaults()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = defaultPort
	}
	if c.Upload.MaxRows <= 0 {
		c.Upload.MaxRows = defaultMaxRows
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = defaultMaxBytes
	}
	if c.Session.TTLMinutes <= 0 {
		c.Session.TTLMinutes = defaultSessionTTL
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("EXOSEEK_API_URL"); v != "" {
		c.Service.BaseURL = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("GIN_MODE"); v != "" {
		c.Server.Mode = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("UPLOAD_MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPLOAD_MAX_ROWS: %w", err)
		}
		c.Upload.MaxRows = n
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return fmt.Errorf("service.base_url is required")
	}
	if c.Upload.MaxRows <= 0 {
		return fmt.Errorf("upload.max_rows must be positive")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}
	if c.Service.TimeoutSeconds < 0 {
		return fmt.Errorf("service.timeout_seconds must not be negative")
	}
	return nil
}
