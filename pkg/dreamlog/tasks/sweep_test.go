package tasks

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	repomemory "github.com/zhanpoint/dream-log/pkg/dreamlog/repo/memory"
	storagememory "github.com/zhanpoint/dream-log/pkg/dreamlog/storage/memory"
)

func TestSweeperPurgesExpiredRecords(t *testing.T) {
	ctx := context.Background()
	repo := repomemory.New()
	store := storagememory.New()

	svc, err := dreamlog.New(
		dreamlog.WithRepository(repo),
		dreamlog.WithBlobStore(store),
	)
	require.NoError(t, err)

	user := &dreamlog.User{ID: uuid.New(), Username: "dreamer", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(ctx, user))

	key := "users/" + user.ID.String() + "/dreams/old.png"
	_, err = store.Upload(ctx, key, strings.NewReader("bytes"))
	require.NoError(t, err)

	markedAt := time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, repo.CreateImage(ctx, &dreamlog.ImageRecord{
		ID:                uuid.New(),
		UserID:            user.ID,
		URL:               "https://img.example.com/users/a/old.png",
		FileKey:           key,
		Status:            dreamlog.ImageStatusPendingDelete,
		MarkedForDeleteAt: &markedAt,
		CreatedAt:         markedAt,
	}))

	sweeper := NewSweeper(svc, time.Hour, DefaultSweepThreshold, nil)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(runCtx)
	}()

	// The sweeper runs once on startup; wait for the record to disappear.
	require.Eventually(t, func() bool {
		records, err := repo.ListImagesByUser(ctx, user.ID)
		return err == nil && len(records) == 0
	}, 2*time.Second, 10*time.Millisecond, "expired record was not purged")

	assert.False(t, store.Exists(key), "stored object must be deleted")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

// The service logs the sweep result itself; the sweeper must not log the same
// line again.
func TestSweeperLogsResultOnce(t *testing.T) {
	ctx := context.Background()
	repo := repomemory.New()
	store := storagememory.New()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	svc, err := dreamlog.New(
		dreamlog.WithRepository(repo),
		dreamlog.WithBlobStore(store),
		dreamlog.WithLogger(logger),
	)
	require.NoError(t, err)

	user := &dreamlog.User{ID: uuid.New(), Username: "dreamer", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateUser(ctx, user))

	markedAt := time.Now().UTC().Add(-25 * time.Hour)
	require.NoError(t, repo.CreateImage(ctx, &dreamlog.ImageRecord{
		ID:                uuid.New(),
		UserID:            user.ID,
		URL:               "https://img.example.com/users/a/old.png",
		FileKey:           "users/a/old.png",
		Status:            dreamlog.ImageStatusPendingDelete,
		MarkedForDeleteAt: &markedAt,
		CreatedAt:         markedAt,
	}))

	sweeper := NewSweeper(svc, time.Hour, DefaultSweepThreshold, logger)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		sweeper.Run(runCtx)
	}()

	require.Eventually(t, func() bool {
		records, err := repo.ListImagesByUser(ctx, user.ID)
		return err == nil && len(records) == 0
	}, 2*time.Second, 10*time.Millisecond, "expired record was not purged")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "image sweep finished"))
}
