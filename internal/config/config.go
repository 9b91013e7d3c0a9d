// Package config provides environment-aware configuration management
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	titanruntime "github.com/titan-aas/titan-aas/internal/runtime"
)

// Environment represents the deployment environment
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// BlobBackend identifies which object-storage backend externalized
// Blob/File payloads are written to.
type BlobBackend string

const (
	BlobBackendLocal BlobBackend = "local"
	BlobBackendS3    BlobBackend = "s3"
	BlobBackendGCS   BlobBackend = "gcs"
	BlobBackendAzure BlobBackend = "azure"
)

// Config holds all application configuration.
type Config struct {
	Env Environment

	// HTTP
	HTTPAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL      string
	DBMaxConnections int
	DBIdleTimeout    time.Duration

	// Cache
	RedisURL          string
	CacheEntityTTL    time.Duration
	CacheElementTTL   time.Duration
	CacheMaxAge       time.Duration
	CacheStaleRevalid time.Duration

	// Blob storage
	BlobStorageType     BlobBackend
	BlobInlineThreshold int64
	BlobChunkSize       int64
	BlobLocalPath       string
	BlobS3Bucket        string
	BlobS3Region        string
	BlobS3Endpoint      string
	BlobGCSBucket       string
	BlobAzureContainer  string
	BlobAzureAccount    string

	// Auth (optional; unset means anonymous full access)
	OIDCIssuer     string
	OIDCAudience   string
	OIDCRolesClaim string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Event pipeline / jobs
	EventBusBuffer       int
	JobWorkerConcurrency int
	JobPollInterval      time.Duration
	LeaderLeaseTTL       time.Duration

	// Features carried regardless of spec Non-goals
	MetricsEnabled bool
	MetricsPort    int
}

// Load loads configuration based on the TITAN_ENV environment variable.
func Load() (*Config, error) {
	envStr := os.Getenv("TITAN_ENV")
	if envStr == "" {
		envStr = string(titanruntime.Development)
	}

	parsedEnv, ok := titanruntime.ParseEnvironment(envStr)
	if !ok {
		return nil, fmt.Errorf("invalid TITAN_ENV: %s (must be development, testing, or production)", envStr)
	}
	env := Environment(parsedEnv)

	configFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(configFile); err != nil {
		// Config file is optional; only warn on non-"file not found" errors
		// (e.g. parse errors) to avoid noisy logs during tests and CI runs.
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Warning: Could not load %s: %v\n", configFile, err)
		}
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	var err error

	c.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	c.DatabaseURL = getEnv("DATABASE_URL", "")
	if c.DatabaseURL == "" && c.Env == Production {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	c.DBMaxConnections = getIntEnv("DB_MAX_CONNECTIONS", 20)
	c.DBIdleTimeout, err = getDurationEnv("DB_IDLE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return err
	}

	c.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")
	c.CacheEntityTTL, err = getDurationEnv("CACHE_ENTITY_TTL", time.Hour)
	if err != nil {
		return err
	}
	c.CacheElementTTL, err = getDurationEnv("CACHE_ELEMENT_TTL", 5*time.Minute)
	if err != nil {
		return err
	}
	c.CacheMaxAge, err = getDurationEnv("CACHE_MAX_AGE", time.Minute)
	if err != nil {
		return err
	}
	c.CacheStaleRevalid, err = getDurationEnv("CACHE_STALE_WHILE_REVALIDATE", 30*time.Second)
	if err != nil {
		return err
	}

	c.BlobStorageType = BlobBackend(strings.ToLower(getEnv("BLOB_STORAGE_TYPE", string(BlobBackendLocal))))
	switch c.BlobStorageType {
	case BlobBackendLocal, BlobBackendS3, BlobBackendGCS, BlobBackendAzure:
	default:
		return fmt.Errorf("invalid BLOB_STORAGE_TYPE: %s", c.BlobStorageType)
	}
	c.BlobInlineThreshold = getInt64Env("BLOB_INLINE_THRESHOLD", 64*1024)
	c.BlobChunkSize = getInt64Env("BLOB_CHUNK_SIZE", 8*1024*1024)
	c.BlobLocalPath = getEnv("BLOB_LOCAL_PATH", "./data/blobs")
	c.BlobS3Bucket = getEnv("BLOB_S3_BUCKET", "")
	c.BlobS3Region = getEnv("BLOB_S3_REGION", "us-east-1")
	c.BlobS3Endpoint = getEnv("BLOB_S3_ENDPOINT", "")
	c.BlobGCSBucket = getEnv("BLOB_GCS_BUCKET", "")
	c.BlobAzureContainer = getEnv("BLOB_AZURE_CONTAINER", "")
	c.BlobAzureAccount = getEnv("BLOB_AZURE_ACCOUNT", "")

	c.OIDCIssuer = getEnv("OIDC_ISSUER", "")
	c.OIDCAudience = getEnv("OIDC_AUDIENCE", "")
	c.OIDCRolesClaim = getEnv("OIDC_ROLES_CLAIM", "roles")

	c.RateLimitEnabled = getBoolEnv("ENABLE_RATE_LIMITING", true)
	c.RateLimitRequests = getIntEnv("RATE_LIMIT_REQUESTS", 100)
	c.RateLimitWindow, err = getDurationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return err
	}

	c.EventBusBuffer = getIntEnv("EVENT_BUS_BUFFER", 4096)
	c.JobWorkerConcurrency = getIntEnv("JOB_WORKER_CONCURRENCY", 4)
	c.JobPollInterval, err = getDurationEnv("JOB_POLL_INTERVAL", time.Second)
	if err != nil {
		return err
	}
	c.LeaderLeaseTTL, err = getDurationEnv("LEADER_LEASE_TTL", 15*time.Second)
	if err != nil {
		return err
	}

	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", true)
	c.MetricsPort = getIntEnv("METRICS_PORT", 9090)

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool { return c.Env == Development }

// IsTesting returns true if running in testing environment
func (c *Config) IsTesting() bool { return c.Env == Testing }

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool { return c.Env == Production }

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set in production")
		}
		if !c.RateLimitEnabled {
			return fmt.Errorf("ENABLE_RATE_LIMITING must be true in production")
		}
	}

	switch c.BlobStorageType {
	case BlobBackendS3:
		if c.BlobS3Bucket == "" {
			return fmt.Errorf("BLOB_S3_BUCKET is required when BLOB_STORAGE_TYPE=s3")
		}
	case BlobBackendGCS:
		if c.BlobGCSBucket == "" {
			return fmt.Errorf("BLOB_GCS_BUCKET is required when BLOB_STORAGE_TYPE=gcs")
		}
	case BlobBackendAzure:
		if c.BlobAzureContainer == "" || c.BlobAzureAccount == "" {
			return fmt.Errorf("BLOB_AZURE_CONTAINER and BLOB_AZURE_ACCOUNT are required when BLOB_STORAGE_TYPE=azure")
		}
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
