package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

func newTestUser(t *testing.T, repo *Repository) *dreamlog.User {
	t.Helper()
	user := &dreamlog.User{
		ID:        uuid.New(),
		Username:  "dreamer" + uuid.NewString()[:6],
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

func newTestImage(userID uuid.UUID, dreamID *uuid.UUID, url string) *dreamlog.ImageRecord {
	return &dreamlog.ImageRecord{
		ID:        uuid.New(),
		UserID:    userID,
		DreamID:   dreamID,
		URL:       url,
		FileKey:   "users/" + userID.String() + "/dreams/" + uuid.NewString()[:8],
		Status:    dreamlog.ImageStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func TestUserOperations(t *testing.T) {
	ctx := context.Background()
	repo := New()

	user := &dreamlog.User{
		ID:          uuid.New(),
		Username:    "moonwalker",
		PhoneNumber: "13912345678",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.CreateUser(ctx, user))

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "moonwalker", got.Username)
	})

	t.Run("get by username", func(t *testing.T) {
		got, err := repo.GetUserByUsername(ctx, "moonwalker")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("get by phone", func(t *testing.T) {
		got, err := repo.GetUserByPhone(ctx, "13912345678")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		err := repo.CreateUser(ctx, &dreamlog.User{ID: uuid.New(), Username: "moonwalker"})
		assert.ErrorIs(t, err, dreamlog.ErrDuplicateUsername)
	})

	t.Run("duplicate phone rejected", func(t *testing.T) {
		err := repo.CreateUser(ctx, &dreamlog.User{
			ID:          uuid.New(),
			Username:    "othername",
			PhoneNumber: "13912345678",
		})
		assert.ErrorIs(t, err, dreamlog.ErrDuplicatePhone)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := repo.GetUser(ctx, uuid.New())
		assert.ErrorIs(t, err, dreamlog.ErrUserNotFound)
	})
}

func TestDreamOperations(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)

	dream := &dreamlog.Dream{
		ID:        uuid.New(),
		UserID:    user.ID,
		Title:     "Flying over the city",
		Content:   "<p>I was flying.</p>",
		DreamDate: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateDream(ctx, dream))

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := repo.GetDream(ctx, dream.ID)
		require.NoError(t, err)
		got.Title = "mutated"

		again, err := repo.GetDream(ctx, dream.ID)
		require.NoError(t, err)
		assert.Equal(t, "Flying over the city", again.Title)
	})

	t.Run("update", func(t *testing.T) {
		dream.Title = "Flying over the sea"
		require.NoError(t, repo.UpdateDream(ctx, dream))

		got, err := repo.GetDream(ctx, dream.ID)
		require.NoError(t, err)
		assert.Equal(t, "Flying over the sea", got.Title)
	})

	t.Run("list orders newest first", func(t *testing.T) {
		older := &dreamlog.Dream{
			ID:        uuid.New(),
			UserID:    user.ID,
			Title:     "Old dream",
			DreamDate: time.Now().UTC().Add(-48 * time.Hour),
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.CreateDream(ctx, older))

		dreams, err := repo.ListDreams(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, dreams, 2)
		assert.Equal(t, dream.ID, dreams[0].ID)
		assert.Equal(t, older.ID, dreams[1].ID)
	})

	t.Run("update missing dream", func(t *testing.T) {
		err := repo.UpdateDream(ctx, &dreamlog.Dream{ID: uuid.New()})
		assert.ErrorIs(t, err, dreamlog.ErrDreamNotFound)
	})
}

func TestDeleteDreamNullsImageReferences(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)

	dream := &dreamlog.Dream{ID: uuid.New(), UserID: user.ID, Title: "t", DreamDate: time.Now().UTC()}
	require.NoError(t, repo.CreateDream(ctx, dream))

	img := newTestImage(user.ID, &dream.ID, "https://img.example.com/users/a/one.png")
	require.NoError(t, repo.CreateImage(ctx, img))

	require.NoError(t, repo.DeleteDream(ctx, dream.ID))

	got, err := repo.GetImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DreamID, "surviving image record must lose its dream reference")

	_, err = repo.GetDream(ctx, dream.ID)
	assert.ErrorIs(t, err, dreamlog.ErrDreamNotFound)
}

func TestSleepPatternUpsert(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	first := &dreamlog.SleepPattern{
		ID:           uuid.New(),
		UserID:       user.ID,
		Date:         day,
		SleepQuality: 3,
	}
	require.NoError(t, repo.UpsertSleepPattern(ctx, first))

	// Same user and day replaces the existing record.
	second := &dreamlog.SleepPattern{
		ID:           uuid.New(),
		UserID:       user.ID,
		Date:         day,
		SleepQuality: 5,
	}
	require.NoError(t, repo.UpsertSleepPattern(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert must keep the original id")

	patterns, err := repo.ListSleepPatterns(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 5, patterns[0].SleepQuality)
}

func TestImageOperations(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)

	img := newTestImage(user.ID, nil, "https://img.example.com/users/a/one.png")
	require.NoError(t, repo.CreateImage(ctx, img))

	t.Run("duplicate url for same user rejected", func(t *testing.T) {
		dup := newTestImage(user.ID, nil, img.URL)
		assert.ErrorIs(t, repo.CreateImage(ctx, dup), dreamlog.ErrDuplicateImageURL)
	})

	t.Run("same url for another user allowed", func(t *testing.T) {
		other := newTestUser(t, repo)
		assert.NoError(t, repo.CreateImage(ctx, newTestImage(other.ID, nil, img.URL)))
	})

	t.Run("lookup by user and url", func(t *testing.T) {
		got, err := repo.GetImageByUserAndURL(ctx, user.ID, img.URL)
		require.NoError(t, err)
		assert.Equal(t, img.ID, got.ID)
	})

	t.Run("update reindexes url", func(t *testing.T) {
		updated := *img
		updated.URL = "https://img.example.com/users/a/renamed.png"
		require.NoError(t, repo.UpdateImage(ctx, &updated))

		_, err := repo.GetImageByUserAndURL(ctx, user.ID, img.URL)
		assert.ErrorIs(t, err, dreamlog.ErrImageNotFound)

		got, err := repo.GetImageByUserAndURL(ctx, user.ID, updated.URL)
		require.NoError(t, err)
		assert.Equal(t, img.ID, got.ID)
	})

	t.Run("delete removes url index", func(t *testing.T) {
		require.NoError(t, repo.DeleteImage(ctx, img.ID))
		_, err := repo.GetImage(ctx, img.ID)
		assert.ErrorIs(t, err, dreamlog.ErrImageNotFound)
	})
}

func TestListExpiredPendingDelete(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)
	now := time.Now().UTC()

	mark := func(url string, markedAgo time.Duration) *dreamlog.ImageRecord {
		img := newTestImage(user.ID, nil, url)
		img.Status = dreamlog.ImageStatusPendingDelete
		markedAt := now.Add(-markedAgo)
		img.MarkedForDeleteAt = &markedAt
		require.NoError(t, repo.CreateImage(ctx, img))
		return img
	}

	oldest := mark("https://img.example.com/users/a/oldest.png", 72*time.Hour)
	older := mark("https://img.example.com/users/a/older.png", 30*time.Hour)
	mark("https://img.example.com/users/a/fresh.png", time.Hour)

	active := newTestImage(user.ID, nil, "https://img.example.com/users/a/active.png")
	require.NoError(t, repo.CreateImage(ctx, active))

	expired, err := repo.ListExpiredPendingDelete(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, oldest.ID, expired[0].ID, "oldest marked first")
	assert.Equal(t, older.ID, expired[1].ID)
}

func TestUpsertImageByDreamPosition(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)
	dreamID := uuid.New()
	pos := 0

	first := newTestImage(user.ID, &dreamID, "https://img.example.com/users/a/first.png")
	first.Position = &pos

	res, err := repo.UpsertImageByDreamPosition(ctx, first)
	require.NoError(t, err)
	assert.True(t, res.Created)

	t.Run("same slot updates in place", func(t *testing.T) {
		replacement := newTestImage(user.ID, &dreamID, "https://img.example.com/users/a/second.png")
		replacement.Position = &pos

		res, err := repo.UpsertImageByDreamPosition(ctx, replacement)
		require.NoError(t, err)
		assert.False(t, res.Created)
		assert.Equal(t, first.ID, res.Record.ID, "slot keeps its original record")
		assert.Equal(t, replacement.URL, res.Record.URL)

		stats, err := repo.CountImagesByStatus(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Total)
	})

	t.Run("different position creates", func(t *testing.T) {
		pos1 := 1
		next := newTestImage(user.ID, &dreamID, "https://img.example.com/users/a/third.png")
		next.Position = &pos1

		res, err := repo.UpsertImageByDreamPosition(ctx, next)
		require.NoError(t, err)
		assert.True(t, res.Created)
	})

	t.Run("missing slot fields rejected", func(t *testing.T) {
		bad := newTestImage(user.ID, nil, "https://img.example.com/users/a/bad.png")
		_, err := repo.UpsertImageByDreamPosition(ctx, bad)
		assert.ErrorIs(t, err, dreamlog.ErrValidation)
	})
}

func TestCountImagesByStatus(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)

	for i := 0; i < 3; i++ {
		img := newTestImage(user.ID, nil, "https://img.example.com/users/a/active-"+uuid.NewString()[:4]+".png")
		require.NoError(t, repo.CreateImage(ctx, img))
	}
	marked := newTestImage(user.ID, nil, "https://img.example.com/users/a/marked.png")
	marked.Status = dreamlog.ImageStatusPendingDelete
	require.NoError(t, repo.CreateImage(ctx, marked))

	stats, err := repo.CountImagesByStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, dreamlog.ImageStats{Total: 4, Active: 3, PendingDelete: 1}, stats)
}

func TestCategoriesAndTags(t *testing.T) {
	ctx := context.Background()
	repo := New()
	user := newTestUser(t, repo)

	t.Run("ensure category is idempotent", func(t *testing.T) {
		cat := &dreamlog.DreamCategory{ID: uuid.New(), Name: dreamlog.CategoryLucid, ColorCode: "#6366f1"}
		require.NoError(t, repo.EnsureCategory(ctx, cat))
		require.NoError(t, repo.EnsureCategory(ctx, &dreamlog.DreamCategory{ID: uuid.New(), Name: dreamlog.CategoryLucid}))

		cats, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, cat.ID, cats[0].ID)
	})

	t.Run("list tags filters private tags of others", func(t *testing.T) {
		other := newTestUser(t, repo)
		mine := &dreamlog.Tag{ID: uuid.New(), Name: "ocean", Type: dreamlog.TagTypeCustom, CreatedBy: &user.ID}
		theirs := &dreamlog.Tag{ID: uuid.New(), Name: "secret", Type: dreamlog.TagTypeCustom, CreatedBy: &other.ID}
		public := &dreamlog.Tag{ID: uuid.New(), Name: "flying", Type: dreamlog.TagTypeSymbol, IsPublic: true}
		require.NoError(t, repo.CreateTag(ctx, mine))
		require.NoError(t, repo.CreateTag(ctx, theirs))
		require.NoError(t, repo.CreateTag(ctx, public))

		tags, err := repo.ListTags(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, tags, 2)
		assert.Equal(t, "flying", tags[0].Name)
		assert.Equal(t, "ocean", tags[1].Name)
	})
}
