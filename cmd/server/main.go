package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/zhanpoint/dream-log/internal/api"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/auth"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/config"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/objectkey"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/tasks"
)

// EnvConfig maps the process environment onto server settings.
type EnvConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL string `env:"DATABASE_URL" env-default:""`

	StorageType   string `env:"STORAGE_TYPE" env-default:"memory"`
	FSBaseDir     string `env:"FS_BASE_DIR" env-default:"./data/images"`
	FSURLPrefix   string `env:"FS_URL_PREFIX" env-default:"/media"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" env-default:""`

	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET" env-default:""`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`

	RedisAddr     string `env:"REDIS_ADDR" env-default:""`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	ImageDomains string `env:"IMAGE_DOMAINS" env-default:""`
	JWTSecret    string `env:"JWT_SECRET" env-default:"dev-secret-change-me"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" env-default:"1h"`
	SweepThreshold time.Duration `env:"SWEEP_THRESHOLD" env-default:"24h"`
	TaskWorkers    int           `env:"TASK_WORKERS" env-default:"4"`
	TaskQueueSize  int           `env:"TASK_QUEUE_SIZE" env-default:"256"`
}

func (e EnvConfig) apply(c *config.ServerConfig) error {
	c.Port = e.Port
	c.Environment = e.Environment
	if e.DatabaseURL != "" {
		c.DatabaseType = "postgres"
		c.DatabaseURL = e.DatabaseURL
	}
	c.StorageType = e.StorageType
	c.FSBaseDir = e.FSBaseDir
	c.FSURLPrefix = e.FSURLPrefix
	c.PublicBaseURL = e.PublicBaseURL
	c.S3 = config.S3Config{
		Region:          e.S3Region,
		Bucket:          e.S3Bucket,
		AccessKeyID:     e.S3AccessKeyID,
		SecretAccessKey: e.S3SecretAccessKey,
		Endpoint:        e.S3Endpoint,
		UsePathStyle:    e.S3UsePathStyle,
	}
	c.RedisAddr = e.RedisAddr
	c.RedisPassword = e.RedisPassword
	c.RedisDB = e.RedisDB
	if e.ImageDomains != "" {
		for _, d := range strings.Split(e.ImageDomains, ",") {
			if d = strings.TrimSpace(d); d != "" {
				c.ImageDomains = append(c.ImageDomains, d)
			}
		}
	}
	c.JWTSecret = e.JWTSecret
	c.SweepInterval = e.SweepInterval
	c.SweepThreshold = e.SweepThreshold
	c.TaskWorkers = e.TaskWorkers
	c.TaskQueueSize = e.TaskQueueSize
	return nil
}

func main() {
	_ = godotenv.Load()

	var envCfg EnvConfig
	if err := cleanenv.ReadEnv(&envCfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(envCfg.apply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cfg.BuildRedis(ctx)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn("redis not configured, using in-process cache and notifications")
	}

	store, err := cfg.BuildBlobStore()
	if err != nil {
		return err
	}

	repo, err := cfg.BuildRepository(ctx)
	if err != nil {
		return err
	}

	svc, err := cfg.BuildServiceWith(repo, store, logger)
	if err != nil {
		return err
	}
	if err := svc.SeedCategories(ctx); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	publisher, subscriber := cfg.BuildNotifier(redisClient, logger)
	codeCache := cfg.BuildCache(redisClient, logger)

	sender := auth.LogSender{Logger: logger}
	authenticator := auth.NewAuthenticator(
		svc,
		auth.NewTokenIssuer(cfg.JWTSecret),
		auth.NewCodeService(codeCache, sender, sender),
	)

	runner := tasks.NewRunner(tasks.DefaultPolicy(), logger)
	queue := tasks.NewQueue(runner, cfg.TaskWorkers, cfg.TaskQueueSize, logger)
	defer queue.Close()

	uploadWorker := tasks.NewUploadWorker(repo, store, publisher, objectkey.New(), logger)
	deleteWorker := tasks.NewDeleteWorker(store, publisher, logger)

	sweeper := tasks.NewSweeper(svc, cfg.SweepInterval, cfg.SweepThreshold, logger)
	go sweeper.Run(ctx)

	server := api.NewServer(svc, authenticator, subscriber, queue, uploadWorker, deleteWorker, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
