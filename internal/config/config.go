// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the monitor.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // empty disables the cross-process notify guard

	SearchURL  string // upstream search endpoint, pages appended as &page=N
	WebhookURL string
	GatewayURL string // chat gateway websocket address; empty disables the gateway
	BotToken   string

	PollInterval  time.Duration // live diff cadence
	SweepInterval time.Duration // bulk rebuild cadence
	SweepEnabled  bool

	// Scope for the bulk-rebuild sweep. Point it at a range that is not
	// being live-monitored: the sweep hard-deletes within its scope.
	SweepMinPrice int
	SweepMaxPrice int
	SweepLocation string

	FetchWorkers int
	FetchRPS     int
}

// Load reads the .env file (if any) and environment variables and
// returns a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		return nil, fmt.Errorf("WEBHOOK_URL is required")
	}

	pollMin, err := getEnvMinutes("POLL_INTERVAL_MIN", 5)
	if err != nil {
		return nil, err
	}
	sweepMin, err := getEnvMinutes("SWEEP_INTERVAL_MIN", 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   dbURL,
		RedisURL:      os.Getenv("REDIS_URL"),
		SearchURL:     getEnv("SEARCH_URL", "https://www.tori.fi/recommerce-search-page/api/search/SEARCH_ID_BAP_COMMON?q=artek"),
		WebhookURL:    webhookURL,
		GatewayURL:    os.Getenv("GATEWAY_URL"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		PollInterval:  pollMin,
		SweepInterval: sweepMin,
		SweepEnabled:  getEnv("SWEEP_ENABLED", "false") == "true",
		SweepMinPrice: getEnvInt("SWEEP_MIN_PRICE", 0),
		SweepMaxPrice: getEnvInt("SWEEP_MAX_PRICE", 1000000),
		SweepLocation: os.Getenv("SWEEP_LOCATION"),
		FetchWorkers:  getEnvInt("FETCH_WORKERS", 8),
		FetchRPS:      getEnvInt("FETCH_RPS", 4),
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func getEnvMinutes(key string, fallback int) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return time.Duration(fallback) * time.Minute, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return time.Duration(v) * time.Minute, nil
}
