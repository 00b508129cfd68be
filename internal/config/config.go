package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/coinjar/internal/blob"
)

// Snapshot backends for the settlement store.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendS3     = "s3"
)

var validBackends = []string{BackendSQLite, BackendFile, BackendS3}

type Config struct {
	// HTTP server
	Port string

	// Database
	DBPath string

	LogLevel string

	// Timezone used to bucket activity into calendar days and months.
	Timezone string

	// Settlement snapshot storage
	SnapshotBackend    string
	SnapshotDir        string
	SnapshotPassphrase string
	S3                 blob.S3Config

	// How often the background trigger checks for rollover and payment day.
	TriggerInterval time.Duration
}

// Load reads configuration from the environment. Callers that want a .env
// file loaded should do so first.
func Load() *Config {
	return &Config{
		Port:     getEnv("COINJAR_PORT", "8080"),
		DBPath:   getEnv("COINJAR_DB_PATH", "coinjar.db"),
		LogLevel: getEnv("COINJAR_LOG_LEVEL", "info"),
		Timezone: getEnv("COINJAR_TIMEZONE", "Local"),

		SnapshotBackend:    getEnv("COINJAR_SNAPSHOT_BACKEND", BackendSQLite),
		SnapshotDir:        getEnv("COINJAR_SNAPSHOT_DIR", "data"),
		SnapshotPassphrase: os.Getenv("COINJAR_SNAPSHOT_PASSPHRASE"),
		S3: blob.S3Config{
			Endpoint:  os.Getenv("COINJAR_S3_ENDPOINT"),
			Bucket:    os.Getenv("COINJAR_S3_BUCKET"),
			Region:    getEnv("COINJAR_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("COINJAR_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("COINJAR_S3_SECRET_KEY"),
			Prefix:    os.Getenv("COINJAR_S3_PREFIX"),
		},

		TriggerInterval: getEnvDuration("COINJAR_TRIGGER_INTERVAL", time.Hour),
	}
}

// Validate reports every problem with the configuration in one error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errs = append(errs, "database path cannot be empty")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if !slices.Contains(validBackends, c.SnapshotBackend) {
		errs = append(errs, fmt.Sprintf("invalid snapshot backend '%s': must be one of %v", c.SnapshotBackend, validBackends))
	}
	switch c.SnapshotBackend {
	case BackendFile:
		if c.SnapshotDir == "" {
			errs = append(errs, "snapshot directory cannot be empty when using file backend")
		}
	case BackendS3:
		if !c.S3.Configured() {
			errs = append(errs, "COINJAR_S3_BUCKET and credentials are required for s3 backend")
		}
	}

	if c.TriggerInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid trigger interval %v: must be at least 1 minute", c.TriggerInterval))
	} else if c.TriggerInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid trigger interval %v: must be at most 24 hours", c.TriggerInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Location returns the configured timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
