// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits with an error.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration for the bid service.
type Config struct {
	Port                 string
	MetricsPort          string
	DatabaseURL          string
	RedisURL             string
	ReconcileIntervalHrs int // how often the bid_count audit fires
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("BID_PORT")
	if port == "" {
		port = "9000"
	}

	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9100"
	}

	interval := 6
	if s := os.Getenv("RECONCILE_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("RECONCILE_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	return &Config{
		Port:                 port,
		MetricsPort:          metricsPort,
		DatabaseURL:          dbURL,
		RedisURL:             redisURL,
		ReconcileIntervalHrs: interval,
	}, nil
}
