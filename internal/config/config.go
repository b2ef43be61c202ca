package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"scrumboard/internal/board"
)

// Config holds the runtime configuration of the board service.
// Values come from .scrumboard.yaml, SCRUMBOARD_* env vars and CLI flags.
type Config struct {
	Addr         string `mapstructure:"addr"`
	DBPath       string `mapstructure:"db_path"`
	LogLevel     string `mapstructure:"log_level"`
	SprintPolicy string `mapstructure:"sprint_policy"`
	GinMode      string `mapstructure:"gin_mode"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("addr", ":8080")
	viper.SetDefault("db_path", "data/scrumboard.db")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("sprint_policy", "preserve")
	viper.SetDefault("gin_mode", "release")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := cfg.Policy(); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return Config{}, fmt.Errorf("gin mode %q: want debug, release or test", cfg.GinMode)
	}
	return cfg, nil
}

// Policy returns the configured sprint selection policy.
func (c Config) Policy() (board.SelectionPolicy, error) {
	return board.ParseSelectionPolicy(c.SprintPolicy)
}

// Level maps log_level onto a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
