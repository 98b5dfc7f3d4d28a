// Package config loads the daemon configuration from an optional yaml file,
// with environment variables taking precedence over file values.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	HTTP      HTTPConfig      `yaml:"http"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Browser   BrowserConfig   `yaml:"browser"`
}

type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend string `yaml:"backend"`
	// Path is the root directory for the file backend.
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn"`
}

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type SchedulerConfig struct {
	TickSeconds int `yaml:"tick_seconds"`
}

type BrowserConfig struct {
	Headless bool `yaml:"headless"`
}

func Default() Config {
	return Config{
		Storage:   StorageConfig{Backend: "file", Path: "./storage"},
		HTTP:      HTTPConfig{Port: "8080"},
		Scheduler: SchedulerConfig{TickSeconds: 60},
		Browser:   BrowserConfig{Headless: true},
	}
}

// Load reads the config file at path when it exists, then applies env
// overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}

	if v := os.Getenv("SENTINEL_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("SENTINEL_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SENTINEL_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SENTINEL_HTTP_PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("SENTINEL_SCHEDULER_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scheduler.TickSeconds = n
		}
	}

	return cfg, nil
}
