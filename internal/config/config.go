package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string
	TickInterval  time.Duration
}

// fileConfig mirrors the optional YAML overrides file. Environment variables
// win over file values so deployments can still patch a single knob.
type fileConfig struct {
	Port          string   `yaml:"port"`
	DBPath        string   `yaml:"db_path"`
	JWTSecret     string   `yaml:"jwt_secret"`
	TokenTTLHours int      `yaml:"token_ttl_hours"`
	CORSOrigins   []string `yaml:"cors_origins"`
	MigrationsDir string   `yaml:"migrations_dir"`
}

// Load builds the runtime configuration from defaults, an optional YAML file
// named by CONFIG_FILE, and environment variables, in that order.
func Load() (Config, error) {
	cfg := Config{
		Port:          "8080",
		DBPath:        "./data/pomodoro.db",
		JWTSecret:     "change-this-secret",
		TokenTTL:      72 * time.Hour,
		CORSOrigins:   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		MigrationsDir: "./migrations",
		TickInterval:  time.Second,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.TokenTTL = time.Duration(getEnvInt("TOKEN_TTL_HOURS", int(cfg.TokenTTL/time.Hour))) * time.Hour
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)

	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if file.Port != "" {
		cfg.Port = file.Port
	}
	if file.DBPath != "" {
		cfg.DBPath = file.DBPath
	}
	if file.JWTSecret != "" {
		cfg.JWTSecret = file.JWTSecret
	}
	if file.TokenTTLHours > 0 {
		cfg.TokenTTL = time.Duration(file.TokenTTLHours) * time.Hour
	}
	if len(file.CORSOrigins) > 0 {
		cfg.CORSOrigins = file.CORSOrigins
	}
	if file.MigrationsDir != "" {
		cfg.MigrationsDir = file.MigrationsDir
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
