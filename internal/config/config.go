package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the stage CLI.
type Config struct {
	DatabaseURL  string `env:"STAGE_DATABASE_URL" envDefault:"postgres://localhost:5432/statstage?sslmode=disable"`
	RedisURL     string `env:"STAGE_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	ProjectRoot  string `env:"STAGE_PROJECT_ROOT"`
	LogLevel     string `env:"STAGE_LOG_LEVEL" envDefault:"info"`
	Environment  string `env:"STAGE_ENVIRONMENT" envDefault:"development"`
	MetadataPath string `env:"STAGE_METADATA_PATH" envDefault:"stage.yaml"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}
	return cfg, nil
}
