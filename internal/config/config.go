// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Sink    SinkConfig    `yaml:"sink"`
	RefData RefDataConfig `yaml:"refdata"`
	Prefs   PrefsConfig   `yaml:"prefs"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr" validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
	// SessionTTL closes wizard sessions left idle for longer.
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

type SinkConfig struct {
	Kind    string        `yaml:"kind" validate:"oneof=memory sqlite http"`
	Path    string        `yaml:"path" validate:"required_if=Kind sqlite"`
	URL     string        `yaml:"url" validate:"required_if=Kind http"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type RefDataConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url" validate:"omitempty,url"`
}

type PrefsConfig struct {
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			SessionTTL:   2 * time.Hour,
		},
		Log:  LogConfig{Level: "info", Format: "json"},
		Sink: SinkConfig{Kind: "memory", Timeout: 5 * time.Second},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	setFromEnv(&cfg.Log.Level, "LOG_LEVEL")
	setFromEnv(&cfg.Log.Format, "LOG_FORMAT")
	setFromEnv(&cfg.Sink.Kind, "SINK_KIND")
	setFromEnv(&cfg.Sink.Path, "SINK_PATH")
	setFromEnv(&cfg.Sink.URL, "SINK_URL")
	setFromEnv(&cfg.RefData.Path, "REFDATA_PATH")
	setFromEnv(&cfg.RefData.URL, "REFDATA_URL")
	setFromEnv(&cfg.Prefs.Path, "PREFS_PATH")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
