// Package config assembles a running service from declarative settings.
// Options layer on top of library defaults; WithEnv maps environment
// variables onto the same fields.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/cache"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/contentdiff"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/notify"
	repomemory "github.com/zhanpoint/dream-log/pkg/dreamlog/repo/memory"
	repopg "github.com/zhanpoint/dream-log/pkg/dreamlog/repo/postgres"
	fsstorage "github.com/zhanpoint/dream-log/pkg/dreamlog/storage/fs"
	memorystorage "github.com/zhanpoint/dream-log/pkg/dreamlog/storage/memory"
	s3storage "github.com/zhanpoint/dream-log/pkg/dreamlog/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseType:   "memory",
		StorageType:    "memory",
		JWTSecret:      "dev-secret-change-me",
		SweepInterval:  time.Hour,
		SweepThreshold: 24 * time.Hour,
		TaskWorkers:    4,
		TaskQueueSize:  256,
	}
}

// ServerConfig represents server configuration for the dream-log service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	StorageType   string // "memory", "fs", "s3"
	FSBaseDir     string
	FSURLPrefix   string
	S3            S3Config
	PublicBaseURL string

	// Redis backs the cache and the notification broker. Empty means
	// in-process fallbacks.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Image tracking: only URLs under these domains are treated as
	// attachments. Empty means every embedded image is tracked.
	ImageDomains []string

	// Auth
	JWTSecret string

	// Background work
	SweepInterval  time.Duration
	SweepThreshold time.Duration
	TaskWorkers    int
	TaskQueueSize  int
}

// S3Config carries the S3-compatible storage settings.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	PresignDuration int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	switch c.DatabaseType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("filesystem base directory is required")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
	if c.SweepInterval <= 0 || c.SweepThreshold <= 0 {
		return errors.New("sweep interval and threshold must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// BuildRepository creates a Repository based on the configuration
func (c *ServerConfig) BuildRepository(ctx context.Context) (dreamlog.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := repopg.InitSchema(ctx, pool); err != nil {
			return nil, err
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// BuildBlobStore creates a BlobStore based on the configuration
func (c *ServerConfig) BuildBlobStore() (dreamlog.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		if c.PublicBaseURL != "" {
			return memorystorage.New(memorystorage.WithBaseURL(c.PublicBaseURL)), nil
		}
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FSBaseDir,
			URLPrefix: c.FSURLPrefix,
		})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			PresignDuration: c.S3.PresignDuration,
			PublicBaseURL:   c.PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}

// BuildRedis connects a Redis client, or returns nil when Redis is not
// configured.
func (c *ServerConfig) BuildRedis(ctx context.Context) (*redis.Client, error) {
	if c.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// BuildCache assembles the cache stack: Redis primary with in-memory
// degraded mode, or a bare in-memory cache without Redis.
func (c *ServerConfig) BuildCache(client *redis.Client, logger *slog.Logger) cache.Cache {
	if client == nil {
		return cache.NewMemory()
	}
	return cache.NewFallback(cache.NewRedis(client), cache.NewMemory(), logger)
}

// BuildNotifier picks the notification transport: Redis pub/sub when
// available, otherwise the in-process hub. Both the publisher and the
// subscriber sides share one broker so single-node deployments still see
// their own events.
func (c *ServerConfig) BuildNotifier(client *redis.Client, logger *slog.Logger) (dreamlog.Publisher, dreamlog.Subscriber) {
	if client == nil {
		hub := notify.NewHub(logger)
		return notify.NewRetryingPublisher(hub, logger), hub
	}
	broker := notify.NewRedisBroker(client, logger)
	return notify.NewRetryingPublisher(broker, logger), broker
}

// BuildService creates a Service instance from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, store dreamlog.BlobStore, logger *slog.Logger) (dreamlog.Service, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	return c.BuildServiceWith(repo, store, logger)
}

// BuildServiceWith assembles the service around pre-built dependencies.
func (c *ServerConfig) BuildServiceWith(repo dreamlog.Repository, store dreamlog.BlobStore, logger *slog.Logger) (dreamlog.Service, error) {
	options := []dreamlog.Option{
		dreamlog.WithRepository(repo),
		dreamlog.WithBlobStore(store),
		dreamlog.WithExtractor(contentdiff.NewExtractor(c.ImageDomains...)),
		dreamlog.WithEventSink(dreamlog.NewProvisioningEventSink(store)),
	}
	if logger != nil {
		options = append(options, dreamlog.WithLogger(logger))
	}
	return dreamlog.New(options...)
}
