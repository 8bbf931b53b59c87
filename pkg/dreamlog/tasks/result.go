// Package tasks runs the background work behind the image lifecycle: direct
// uploads, storage deletes, and the periodic sweep of expired soft-deleted
// records. Each task reports a tagged Result; the Runner turns Retryable
// results into bounded retries with backoff and gives every attempt chain a
// hard time limit.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind classifies a task outcome.
type Kind int

const (
	// KindOK means the task finished and must not run again.
	KindOK Kind = iota
	// KindRetryable means the task hit a transient failure and may be retried.
	KindRetryable
	// KindFatal means retrying cannot help; the task is done and failed.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the tagged outcome of one task attempt.
type Result struct {
	Kind Kind
	Err  error
}

// OK reports success.
func OK() Result { return Result{Kind: KindOK} }

// Retryable reports a transient failure.
func Retryable(err error) Result { return Result{Kind: KindRetryable, Err: err} }

// Fatal reports a permanent failure.
func Fatal(err error) Result { return Result{Kind: KindFatal, Err: err} }

// RetryPolicy bounds how a task is retried. BaseDelay doubles per attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	TimeLimit   time.Duration
}

// DefaultPolicy mirrors the worker defaults: three retries after the first
// attempt, short exponential backoff, five minutes wall clock for the whole
// attempt chain.
func DefaultPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		TimeLimit:   5 * time.Minute,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Runner executes tasks under a retry policy.
type Runner struct {
	policy RetryPolicy
	logger *slog.Logger
}

// NewRunner creates a task runner.
func NewRunner(policy RetryPolicy, logger *slog.Logger) *Runner {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{policy: policy, logger: logger}
}

// Run executes task until it returns OK or Fatal, the attempt budget is
// spent, or the time limit passes. The final error is nil only for OK.
func (r *Runner) Run(ctx context.Context, name string, task func(context.Context) Result) error {
	if r.policy.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.TimeLimit)
		defer cancel()
	}

	var last Result
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		last = task(ctx)
		switch last.Kind {
		case KindOK:
			if attempt > 1 {
				r.logger.Info("task recovered", "task", name, "attempt", attempt)
			}
			return nil
		case KindFatal:
			r.logger.Error("task failed permanently", "task", name, "attempt", attempt, "error", last.Err)
			return last.Err
		}

		if attempt == r.policy.MaxAttempts {
			break
		}
		r.logger.Warn("task attempt failed, retrying",
			"task", name, "attempt", attempt, "error", last.Err)
		select {
		case <-time.After(r.policy.delay(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("task %s: %w (last error: %v)", name, ctx.Err(), last.Err)
		}
	}

	r.logger.Error("task exhausted retries", "task", name, "attempts", r.policy.MaxAttempts, "error", last.Err)
	return fmt.Errorf("task %s: retries exhausted: %w", name, last.Err)
}
