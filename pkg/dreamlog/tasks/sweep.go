package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// DefaultSweepThreshold is how long a record stays in pending_delete before
// the sweep purges it.
const DefaultSweepThreshold = 24 * time.Hour

// DefaultSweepInterval is how often the sweep runs.
const DefaultSweepInterval = time.Hour

// Sweeper periodically purges image records whose grace period has expired.
type Sweeper struct {
	service   dreamlog.Service
	interval  time.Duration
	threshold time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a periodic sweeper. Zero interval or threshold fall back
// to the defaults.
func NewSweeper(service dreamlog.Service, interval, threshold time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if threshold <= 0 {
		threshold = DefaultSweepThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		service:   service,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("image sweeper started",
		"interval", s.interval, "threshold", s.threshold)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("image sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep delegates to the service, which does its own result logging.
func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.service.SweepExpiredImages(ctx, s.threshold); err != nil {
		s.logger.Error("image sweep failed", "error", err)
	}
}
