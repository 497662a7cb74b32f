package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ArtifactBackendFS = "fs"
	ArtifactBackendS3 = "s3"
)

type Config struct {
	Port        string
	DatabaseURL string

	ImportBaseDir           string
	ImportWorkers           int
	ImportChunkSize         int
	ImportJobLease          time.Duration
	ImportMaxAttempts       int
	ImportCheckpointEvery   int
	ImportMaxStoredFailures int

	StatusLookupTimeout time.Duration

	ArtifactBackend    string
	ArtifactDir        string
	ArtifactS3Bucket   string
	ArtifactS3Prefix   string
	ArtifactS3Endpoint string
	ArtifactPresignTTL time.Duration
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Load reads .env, .env.<ENVIRONMENT> and .env.local (each optional, later
// files win) and then builds the config from the process environment.
func Load() (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		ImportBaseDir:           getEnv("IMPORT_BASE_DIR", "."),
		ImportWorkers:           parseWorkerCount(),
		ImportChunkSize:         parseIntEnv("IMPORT_CHUNK_SIZE", 1000),
		ImportJobLease:          time.Duration(parseIntEnv("IMPORT_JOB_LEASE_SECONDS", 60)) * time.Second,
		ImportMaxAttempts:       parseIntEnv("IMPORT_MAX_ATTEMPTS", 5),
		ImportCheckpointEvery:   parseIntEnv("IMPORT_CHECKPOINT_EVERY", 10),
		ImportMaxStoredFailures: parseIntEnv("IMPORT_MAX_STORED_FAILURES", 100),

		StatusLookupTimeout: parseDurationEnv("STATUS_LOOKUP_TIMEOUT", 3*time.Second),

		ArtifactBackend:    strings.ToLower(getEnv("ARTIFACT_BACKEND", ArtifactBackendFS)),
		ArtifactDir:        getEnv("ARTIFACT_DIR", "./artifacts"),
		ArtifactS3Bucket:   os.Getenv("ARTIFACT_S3_BUCKET"),
		ArtifactS3Prefix:   os.Getenv("ARTIFACT_S3_PREFIX"),
		ArtifactS3Endpoint: os.Getenv("ARTIFACT_S3_ENDPOINT"),
		ArtifactPresignTTL: parseDurationEnv("ARTIFACT_PRESIGN_TTL", 0),
		AWSRegion:          os.Getenv("AWS_REGION"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	switch c.ArtifactBackend {
	case ArtifactBackendFS:
	case ArtifactBackendS3:
		if c.ArtifactS3Bucket == "" {
			errs = append(errs, errors.New("ARTIFACT_S3_BUCKET is required for the s3 artifact backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ARTIFACT_BACKEND %q", c.ArtifactBackend))
	}
	if c.StatusLookupTimeout <= 0 {
		errs = append(errs, errors.New("STATUS_LOOKUP_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("config: load .env: %w", err)
		}
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := ".env." + env
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return fmt.Errorf("config: load .env.local: %w", err)
		}
	}

	return nil
}

func parseWorkerCount() int {
	workers := parseIntEnv("IMPORT_WORKERS", 10)
	if workers <= 0 {
		return 10
	}
	if workers > 10 {
		return 10
	}
	return workers
}

func parseIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// parseDurationEnv accepts Go durations ("3s") and bare seconds ("3").
func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
