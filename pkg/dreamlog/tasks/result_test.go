package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, TimeLimit: time.Second}
}

func TestRunnerSuccessFirstTry(t *testing.T) {
	runner := NewRunner(testPolicy(), nil)

	calls := 0
	err := runner.Run(context.Background(), "noop", func(ctx context.Context) Result {
		calls++
		return OK()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunnerRetriesTransientFailures(t *testing.T) {
	runner := NewRunner(testPolicy(), nil)

	calls := 0
	err := runner.Run(context.Background(), "flaky", func(ctx context.Context) Result {
		calls++
		if calls < 3 {
			return Retryable(errors.New("timeout"))
		}
		return OK()
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunnerStopsOnFatal(t *testing.T) {
	runner := NewRunner(testPolicy(), nil)
	fatal := errors.New("bad input")

	calls := 0
	err := runner.Run(context.Background(), "doomed", func(ctx context.Context) Result {
		calls++
		return Fatal(fatal)
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "fatal results must not be retried")
}

func TestRunnerExhaustsAttempts(t *testing.T) {
	runner := NewRunner(testPolicy(), nil)

	calls := 0
	err := runner.Run(context.Background(), "hopeless", func(ctx context.Context) Result {
		calls++
		return Retryable(errors.New("still down"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunnerHonorsTimeLimit(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 100, BaseDelay: 50 * time.Millisecond, TimeLimit: 100 * time.Millisecond}
	runner := NewRunner(policy, nil)

	start := time.Now()
	err := runner.Run(context.Background(), "slow", func(ctx context.Context) Result {
		return Retryable(errors.New("down"))
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPolicyDelayDoubles(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second}
	assert.Equal(t, time.Second, policy.delay(1))
	assert.Equal(t, 2*time.Second, policy.delay(2))
	assert.Equal(t, 4*time.Second, policy.delay(3))
}

func TestQueueRunsJobs(t *testing.T) {
	runner := NewRunner(testPolicy(), nil)
	queue := NewQueue(runner, 2, 8, nil)

	done := make(chan struct{})
	err := queue.Enqueue(Job{
		Name: "signal",
		Run: func(ctx context.Context) Result {
			close(done)
			return OK()
		},
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
	queue.Close()
}

func TestQueueRejectsAfterClose(t *testing.T) {
	runner := NewRunner(testPolicy(), nil)
	queue := NewQueue(runner, 1, 1, nil)
	queue.Close()
	queue.Close()

	err := queue.Enqueue(Job{Name: "late", Run: func(ctx context.Context) Result { return OK() }})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
