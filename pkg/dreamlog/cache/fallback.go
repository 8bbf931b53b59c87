package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Fallback routes to a primary cache and degrades to a secondary one when the
// primary errors out. Misses (ErrNotFound) are answers, not failures, and do
// not trigger the fallback. Values written during an outage live only in the
// secondary; that is acceptable for short-lived entries like verification
// codes.
type Fallback struct {
	primary   Cache
	secondary Cache
	logger    *slog.Logger
}

// NewFallback wraps primary with a degraded-mode secondary.
func NewFallback(primary, secondary Cache, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (c *Fallback) Get(ctx context.Context, key string) (string, error) {
	value, err := c.primary.Get(ctx, key)
	if err == nil || errors.Is(err, ErrNotFound) {
		return value, err
	}
	c.logger.Warn("primary cache unavailable, using fallback", "op", "get", "error", err)
	return c.secondary.Get(ctx, key)
}

func (c *Fallback) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.primary.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("primary cache unavailable, using fallback", "op", "set", "error", err)
		return c.secondary.Set(ctx, key, value, ttl)
	}
	return nil
}

func (c *Fallback) Delete(ctx context.Context, key string) error {
	// Delete from both so an entry written during an outage cannot survive.
	perr := c.primary.Delete(ctx, key)
	if perr != nil {
		c.logger.Warn("primary cache unavailable, using fallback", "op", "delete", "error", perr)
	}
	serr := c.secondary.Delete(ctx, key)
	if perr != nil && serr != nil {
		return perr
	}
	return nil
}

func (c *Fallback) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := c.primary.TTL(ctx, key)
	if err == nil || errors.Is(err, ErrNotFound) {
		return ttl, err
	}
	c.logger.Warn("primary cache unavailable, using fallback", "op", "ttl", "error", err)
	return c.secondary.TTL(ctx, key)
}
