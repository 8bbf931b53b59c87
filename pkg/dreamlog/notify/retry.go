package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

const (
	defaultPublishAttempts = 3
	defaultPublishDelay    = 100 * time.Millisecond
)

// RetryingPublisher wraps a publisher with the standard delivery policy: a
// few quick retries, then drop the event and log. Image updates are advisory;
// a lost update must never fail the operation that produced it.
type RetryingPublisher struct {
	inner    dreamlog.Publisher
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// NewRetryingPublisher wraps inner with retry-then-drop delivery.
func NewRetryingPublisher(inner dreamlog.Publisher, logger *slog.Logger) *RetryingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingPublisher{
		inner:    inner,
		attempts: defaultPublishAttempts,
		delay:    defaultPublishDelay,
		logger:   logger,
	}
}

// Publish attempts delivery up to the attempt limit. It returns nil even when
// all attempts fail; the drop is logged.
func (p *RetryingPublisher) Publish(ctx context.Context, event dreamlog.Event) error {
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if lastErr = p.inner.Publish(ctx, event); lastErr == nil {
			return nil
		}
		if attempt < p.attempts {
			select {
			case <-time.After(p.delay):
			case <-ctx.Done():
				p.logger.Warn("dropping event, context ended during retry",
					"channel", ChannelName(event.DreamID),
					"status", event.Status,
					"error", lastErr)
				return nil
			}
		}
	}
	p.logger.Warn("dropping event after repeated publish failures",
		"channel", ChannelName(event.DreamID),
		"status", event.Status,
		"attempts", p.attempts,
		"error", lastErr)
	return nil
}
