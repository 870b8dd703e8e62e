package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-level settings for the API server. Database and
// Redis settings are loaded by their own packages.
type Config struct {
	APIPort          string
	MetricsAddr      string // empty disables the metrics server
	NATSURL          string // empty disables event publishing
	CatalogSource    string // "file" or "db"
	TrainsFile       string
	LogEventSubjects bool
}

// Load reads configuration from .env and the environment
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:     getenvDefault("API_PORT", "8080"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		NATSURL:     os.Getenv("NATS_URL"),
		TrainsFile:  getenvDefault("TRAINS_FILE", "trains.csv"),
	}

	source := strings.ToLower(getenvDefault("CATALOG_SOURCE", "file"))
	switch source {
	case "file", "db":
		cfg.CatalogSource = source
	default:
		return nil, fmt.Errorf("invalid CATALOG_SOURCE: %q (want file or db)", source)
	}

	if v := os.Getenv("LOG_EVENT_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogEventSubjects = true
		}
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
