package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable for the engine binaries. Values come from
// the environment (FORJA_ prefix), with an optional .env file for local
// development.
type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Backend contract consumed by the console client.
	BackendURL string `envconfig:"BACKEND_URL" default:"http://localhost:8000"`

	// Optional scoping for session discovery/creation.
	GameID int `envconfig:"GAME_ID"`
	RoomID int `envconfig:"ROOM_ID"`

	// Local backend (cmd/api).
	RedisURL string `envconfig:"REDIS_URL" default:"localhost:6379"`
	DataDir  string `envconfig:"DATA_DIR" default:"./data"`

	// Optional Ollama narrator for the local backend. Empty URL keeps
	// the scripted narrator.
	OllamaURL   string `envconfig:"OLLAMA_URL"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`

	// Whether interact responses should request synthesized audio.
	IncludeAudio bool `envconfig:"INCLUDE_AUDIO" default:"false"`
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("forja", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps the configured level string onto slog levels,
// defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
