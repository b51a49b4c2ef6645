package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration for the client.
type Config struct {
	API       APIConfig `yaml:"api"`
	StatePath string    `yaml:"state_path"`
	ViewsPath string    `yaml:"views_path"`
	LogLevel  string    `yaml:"log_level"`
}

// APIConfig controls the backend connection.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
}

// Timeout returns the per-call timeout duration.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Load reads configuration, lowest precedence first: defaults, the YAML
// file at path (skipped when absent), then SEBO_* environment variables
// (a .env file is honored when present).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// No file is fine; defaults and env carry it.
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.API.BaseURL = getEnv("SEBO_API_URL", cfg.API.BaseURL)
	cfg.API.TimeoutSeconds = getEnvAsInt("SEBO_TIMEOUT_SECONDS", cfg.API.TimeoutSeconds)
	cfg.API.RateLimitRPS = getEnvAsFloat("SEBO_RATE_LIMIT_RPS", cfg.API.RateLimitRPS)
	cfg.StatePath = getEnv("SEBO_STATE_PATH", cfg.StatePath)
	cfg.ViewsPath = getEnv("SEBO_VIEWS_PATH", cfg.ViewsPath)
	cfg.LogLevel = getEnv("SEBO_LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 10,
		},
		StatePath: filepath.Join(configDir(), "state.db"),
		ViewsPath: filepath.Join(configDir(), "views.cue"),
		LogLevel:  "warn",
	}
}

// DefaultPath is where the config file lives unless --config overrides it.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "sebo")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
