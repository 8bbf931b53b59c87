package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

type flakyPublisher struct {
	failures int
	calls    int
}

func (p *flakyPublisher) Publish(ctx context.Context, event dreamlog.Event) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func TestRetryingPublisherRecovers(t *testing.T) {
	inner := &flakyPublisher{failures: 2}
	pub := NewRetryingPublisher(inner, nil)
	pub.delay = time.Millisecond

	err := pub.Publish(context.Background(), dreamlog.Event{DreamID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingPublisherDropsAfterExhaustion(t *testing.T) {
	inner := &flakyPublisher{failures: 100}
	pub := NewRetryingPublisher(inner, nil)
	pub.delay = time.Millisecond

	// Failure to deliver is swallowed; the producing operation must not fail.
	err := pub.Publish(context.Background(), dreamlog.Event{DreamID: uuid.New()})
	assert.NoError(t, err)
	assert.Equal(t, defaultPublishAttempts, inner.calls)
}

func TestRetryingPublisherFirstTrySucceeds(t *testing.T) {
	inner := &flakyPublisher{}
	pub := NewRetryingPublisher(inner, nil)

	require.NoError(t, pub.Publish(context.Background(), dreamlog.Event{DreamID: uuid.New()}))
	assert.Equal(t, 1, inner.calls)
}
