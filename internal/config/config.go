package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration loaded from the environment
type Config struct {
	Port   string
	DBPath string

	// Data source
	DataURL            string // directory URL holding boundary GeoJSON files
	DataFallbackURL    string // GitHub contents API listing used when the HTML index yields nothing
	DataExt            string // extension of boundary files, e.g. ".geojson"
	BoundaryPrefix     string // file name prefix of boundary files
	TrajectoryPrefix   string // file name prefix of the matching trajectory files
	MaxConcurrentFetch int    // cap on parallel GeoJSON downloads during a catalog load

	// Periodic new-file check
	AutoCheckInterval  time.Duration
	ReloadMarkerWindow time.Duration // how long an automatic-reload marker stays valid

	// Threshold filter
	Thresholds       []string // allowed filter values, in display order
	DefaultThreshold string

	// Playback speed bounds in seconds per step
	SpeedMin     float64
	SpeedMax     float64
	SpeedDefault float64

	JWTSecret string // empty disables auth on mutating routes
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", ":8080"),
		DBPath:             getEnv("DB_PATH", "./data/cellwatch/cellwatch.db"),
		DataURL:            getEnv("DATA_URL", "http://localhost:8000/data/boundaries/"),
		DataFallbackURL:    getEnv("DATA_FALLBACK_URL", ""),
		DataExt:            getEnv("DATA_EXT", ".geojson"),
		BoundaryPrefix:     getEnv("BOUNDARY_PREFIX", "cells_"),
		TrajectoryPrefix:   getEnv("TRAJECTORY_PREFIX", "trajectories_"),
		MaxConcurrentFetch: getEnvInt("MAX_CONCURRENT_FETCH", 8),
		AutoCheckInterval:  getEnvDuration("AUTO_CHECK_INTERVAL", 60*time.Second),
		ReloadMarkerWindow: getEnvDuration("RELOAD_MARKER_WINDOW", 5*time.Minute),
		DefaultThreshold:   getEnv("DEFAULT_THRESHOLD", "2.5"),
		SpeedMin:           getEnvFloat("SPEED_MIN", 0.2),
		SpeedMax:           getEnvFloat("SPEED_MAX", 10),
		SpeedDefault:       getEnvFloat("SPEED_DEFAULT", 1),
		JWTSecret:          getEnv("JWT_SECRET", ""),
	}

	// Comma-separated list of allowed threshold values
	thresholds := getEnv("THRESHOLDS", "1.0,2.5,5.0,10.0")
	for _, t := range strings.Split(thresholds, ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.Thresholds = append(cfg.Thresholds, t)
		}
	}

	return cfg
}

// AllowsThreshold reports whether v is one of the configured filter values
func (c *Config) AllowsThreshold(v string) bool {
	for _, t := range c.Thresholds {
		if t == v {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
