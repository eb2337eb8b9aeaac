// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config holds runtime settings.
type Config struct {
	Addr             string
	CameraID         int
	ScanInterval     time.Duration
	Threshold        float64
	ModelURI         string
	ModelFallbackURI string
	ScriptPath       string
	DataDir          string
	WebDir           string
	HooksDir         string
	HookTimeout      time.Duration
	Tray             bool
	LogLevel         zerolog.Level
}

// Load reads env vars, applies defaults and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Addr:             os.Getenv("MOODPLAYER_ADDR"),
		ModelURI:         os.Getenv("MOODPLAYER_MODEL_URI"),
		ModelFallbackURI: os.Getenv("MOODPLAYER_MODEL_FALLBACK_URI"),
		ScriptPath:       os.Getenv("MOODPLAYER_SCRIPT"),
		DataDir:          os.Getenv("MOODPLAYER_DATA_DIR"),
		WebDir:           os.Getenv("MOODPLAYER_WEB_DIR"),
		HooksDir:         os.Getenv("MOODPLAYER_HOOKS_DIR"),
	}

	cfg.CameraID = getEnvInt("MOODPLAYER_CAMERA", 0)
	cfg.ScanInterval = getEnvDuration("MOODPLAYER_SCAN_INTERVAL", 1500*time.Millisecond)
	cfg.Threshold = getEnvFloat("MOODPLAYER_THRESHOLD", 0.3)
	cfg.Tray = getEnvBool("MOODPLAYER_TRAY", false)
	cfg.HookTimeout = getEnvDuration("MOODPLAYER_HOOK_TIMEOUT", 5*time.Second)

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ModelURI == "" {
		cfg.ModelURI = "/models"
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".moodplayer")
	}
	if cfg.HooksDir == "" {
		cfg.HooksDir = filepath.Join(cfg.DataDir, "hooks")
	}

	level := os.Getenv("MOODPLAYER_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return Config{}, fmt.Errorf("MOODPLAYER_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = parsed

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ScanInterval <= 0 {
		return errors.New("MOODPLAYER_SCAN_INTERVAL must be positive")
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return errors.New("MOODPLAYER_THRESHOLD must be in [0, 1)")
	}
	if c.CameraID < 0 {
		return errors.New("MOODPLAYER_CAMERA must not be negative")
	}
	if c.HookTimeout <= 0 {
		return errors.New("MOODPLAYER_HOOK_TIMEOUT must be positive")
	}
	return nil
}

// DBPath is the catalog database inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "moodplayer.db")
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
