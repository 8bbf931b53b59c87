package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// WithEnv applies environment variable overrides using the provided prefix.
//
// Environment variable mapping:
//
//	PORT            - Server port (default: "8080")
//	ENVIRONMENT     - Runtime environment (default: "development")
//	DATABASE_URL    - Connection string. A "postgres://" prefix selects the
//	                  postgres repository; empty or "memory" selects in-memory.
//	STORAGE_TYPE    - "memory", "fs", or "s3"
//	FS_BASE_DIR     - Base directory for fs storage
//	FS_URL_PREFIX   - URL prefix under which fs storage is served
//	S3_REGION, S3_BUCKET, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY,
//	S3_ENDPOINT, S3_USE_PATH_STYLE, S3_PRESIGN_DURATION
//	PUBLIC_BASE_URL - Base URL serving uploaded images (CDN)
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//	IMAGE_DOMAINS   - Comma-separated domains whose images are tracked
//	JWT_SECRET      - HS256 signing secret
//	SWEEP_INTERVAL  - Go duration, how often the sweep runs
//	SWEEP_THRESHOLD - Go duration, pending_delete grace period
//	TASK_WORKERS, TASK_QUEUE_SIZE
func WithEnv(prefix string) Option {
	return func(c *ServerConfig) error {
		if v, ok := lookupEnv(prefix, "PORT"); ok && v != "" {
			c.Port = v
		}
		if v, ok := lookupEnv(prefix, "ENVIRONMENT"); ok && v != "" {
			c.Environment = v
		}

		if err := applyDatabaseEnv(prefix, c); err != nil {
			return err
		}
		if err := applyStorageEnv(prefix, c); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "REDIS_ADDR"); ok {
			c.RedisAddr = v
		}
		if v, ok := lookupEnv(prefix, "REDIS_PASSWORD"); ok {
			c.RedisPassword = v
		}
		if v, ok := lookupEnv(prefix, "REDIS_DB"); ok && v != "" {
			db, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid REDIS_DB: %w", err)
			}
			c.RedisDB = db
		}

		if v, ok := lookupEnv(prefix, "IMAGE_DOMAINS"); ok && v != "" {
			c.ImageDomains = splitAndTrim(v)
		}
		if v, ok := lookupEnv(prefix, "JWT_SECRET"); ok && v != "" {
			c.JWTSecret = v
		}

		if err := applyDurationEnv(prefix, "SWEEP_INTERVAL", &c.SweepInterval); err != nil {
			return err
		}
		if err := applyDurationEnv(prefix, "SWEEP_THRESHOLD", &c.SweepThreshold); err != nil {
			return err
		}

		if v, ok := lookupEnv(prefix, "TASK_WORKERS"); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid TASK_WORKERS: %w", err)
			}
			c.TaskWorkers = n
		}
		if v, ok := lookupEnv(prefix, "TASK_QUEUE_SIZE"); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid TASK_QUEUE_SIZE: %w", err)
			}
			c.TaskQueueSize = n
		}
		return nil
	}
}

func applyDatabaseEnv(prefix string, c *ServerConfig) error {
	dbURL, hasURL := lookupEnv(prefix, "DATABASE_URL")
	if !hasURL || dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}
	if strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}
	return fmt.Errorf("unsupported DATABASE_URL scheme: %s", dbURL)
}

func applyStorageEnv(prefix string, c *ServerConfig) error {
	if v, ok := lookupEnv(prefix, "STORAGE_TYPE"); ok && v != "" {
		c.StorageType = v
	}
	if v, ok := lookupEnv(prefix, "FS_BASE_DIR"); ok {
		c.FSBaseDir = v
	}
	if v, ok := lookupEnv(prefix, "FS_URL_PREFIX"); ok {
		c.FSURLPrefix = v
	}
	if v, ok := lookupEnv(prefix, "PUBLIC_BASE_URL"); ok {
		c.PublicBaseURL = v
	}

	if v, ok := lookupEnv(prefix, "S3_REGION"); ok {
		c.S3.Region = v
	}
	if v, ok := lookupEnv(prefix, "S3_BUCKET"); ok {
		c.S3.Bucket = v
	}
	if v, ok := lookupEnv(prefix, "S3_ACCESS_KEY_ID"); ok {
		c.S3.AccessKeyID = v
	}
	if v, ok := lookupEnv(prefix, "S3_SECRET_ACCESS_KEY"); ok {
		c.S3.SecretAccessKey = v
	}
	if v, ok := lookupEnv(prefix, "S3_ENDPOINT"); ok {
		c.S3.Endpoint = v
	}
	if v, ok := lookupEnv(prefix, "S3_USE_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid S3_USE_PATH_STYLE: %w", err)
		}
		c.S3.UsePathStyle = b
	}
	if v, ok := lookupEnv(prefix, "S3_PRESIGN_DURATION"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid S3_PRESIGN_DURATION: %w", err)
		}
		c.S3.PresignDuration = n
	}
	return nil
}

func applyDurationEnv(prefix, key string, dst *time.Duration) error {
	v, ok := lookupEnv(prefix, key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func splitAndTrim(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
