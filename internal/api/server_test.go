package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/auth"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/cache"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/notify"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/objectkey"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/repo/memory"
	memorystorage "github.com/zhanpoint/dream-log/pkg/dreamlog/storage/memory"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/tasks"
)

type serverFixture struct {
	server        *Server
	service       dreamlog.Service
	authenticator *auth.Authenticator
	router        http.Handler
}

func setupServerTest(t *testing.T) *serverFixture {
	t.Helper()

	repo := memory.New()
	store := memorystorage.New(memorystorage.WithBaseURL("https://img.example.com"))
	svc, err := dreamlog.New(
		dreamlog.WithRepository(repo),
		dreamlog.WithBlobStore(store),
	)
	require.NoError(t, err)

	sender := auth.LogSender{}
	authenticator := auth.NewAuthenticator(
		svc,
		auth.NewTokenIssuer("test-secret"),
		auth.NewCodeService(cache.NewMemory(), sender, sender),
	)

	hub := notify.NewHub(nil)
	publisher := notify.NewRetryingPublisher(hub, nil)

	runner := tasks.NewRunner(tasks.DefaultPolicy(), nil)
	queue := tasks.NewQueue(runner, 1, 16, nil)
	t.Cleanup(queue.Close)

	uploadWorker := tasks.NewUploadWorker(repo, store, publisher, objectkey.New(), nil)
	deleteWorker := tasks.NewDeleteWorker(store, publisher, nil)

	server := NewServer(svc, authenticator, hub, queue, uploadWorker, deleteWorker, nil)
	return &serverFixture{
		server:        server,
		service:       svc,
		authenticator: authenticator,
		router:        server.Router(),
	}
}

// newSession registers an account directly against the service and mints a
// token pair for it.
func (f *serverFixture) newSession(t *testing.T, username string) (*dreamlog.User, *auth.TokenPair) {
	t.Helper()

	hash, err := auth.HashPassword("secret-password")
	require.NoError(t, err)

	user, err := f.service.RegisterUser(context.Background(), dreamlog.RegisterUserRequest{
		Username:     username,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	pair, err := f.authenticator.Tokens().Issue(user.ID, user.Username)
	require.NoError(t, err)
	return user, pair
}

func (f *serverFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := setupServerTest(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := setupServerTest(t)

	rec := f.do(t, http.MethodGet, "/api/v1/dreams/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/dreams/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshTokenRejectedOnProtectedRoute(t *testing.T) {
	f := setupServerTest(t)
	_, pair := f.newSession(t, "dreamer1")

	rec := f.do(t, http.MethodGet, "/api/v1/dreams/", pair.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWithPassword(t *testing.T) {
	f := setupServerTest(t)
	f.newSession(t, "dreamer1")

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Username: "dreamer1",
		Password: "secret-password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "dreamer1", session.User.Username)
	assert.NotEmpty(t, session.Tokens.AccessToken)

	t.Run("wrong password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
			Username: "dreamer1",
			Password: "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
			Username: "nobody99",
			Password: "secret-password",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRegisterRejectsBadCode(t *testing.T) {
	f := setupServerTest(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{
		Username:    "dreamer1",
		PhoneNumber: "13812345678",
		Password:    "secret-password",
		Code:        "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDreamEndpoints(t *testing.T) {
	f := setupServerTest(t)
	_, pair := f.newSession(t, "dreamer1")
	token := pair.AccessToken

	rec := f.do(t, http.MethodPost, "/api/v1/dreams/", token, CreateDreamBody{
		Title:     "Flying",
		Content:   "<p>above the clouds</p>",
		DreamDate: time.Now().UTC().Add(-time.Hour),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dream dreamlog.Dream
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dream))
	assert.NotEqual(t, uuid.Nil, dream.ID)

	t.Run("list", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/dreams/", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var dreams []*dreamlog.Dream
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dreams))
		assert.Len(t, dreams, 1)
	})

	t.Run("get", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/dreams/%s", dream.ID), token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("patch", func(t *testing.T) {
		title := "Falling"
		rec := f.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/dreams/%s", dream.ID), token, UpdateDreamBody{
			Title: &title,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var updated dreamlog.Dream
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
		assert.Equal(t, "Falling", updated.Title)
	})

	t.Run("other user cannot read a private dream", func(t *testing.T) {
		_, otherPair := f.newSession(t, "dreamer2")
		rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/dreams/%s", dream.ID), otherPair.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("favorite toggle", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/dreams/%s/favorite", dream.ID), token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var favored dreamlog.Dream
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &favored))
		assert.True(t, favored.IsFavorite)
	})

	t.Run("statistics", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/v1/dreams/statistics", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var stats dreamlog.DreamStatistics
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.Total)
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/dreams/%s", dream.ID), token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/dreams/%s", dream.ID), token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPresignEndpoint(t *testing.T) {
	f := setupServerTest(t)
	_, pair := f.newSession(t, "dreamer1")

	rec := f.do(t, http.MethodPost, "/api/v1/images/presign", pair.AccessToken, PresignBody{
		FileName:    "moon.png",
		ContentType: "image/png",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var grant dreamlog.PresignedUpload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	assert.NotEmpty(t, grant.UploadURL)
	assert.NotEmpty(t, grant.FileKey)

	t.Run("unsupported content type", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/images/presign", pair.AccessToken, PresignBody{
			FileName:    "report.pdf",
			ContentType: "application/pdf",
		})
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestTagAndSleepEndpoints(t *testing.T) {
	f := setupServerTest(t)
	_, pair := f.newSession(t, "dreamer1")
	token := pair.AccessToken

	rec := f.do(t, http.MethodPost, "/api/v1/tags/", token, CreateTagBody{
		Name: "ocean",
		Type: dreamlog.TagTypeSymbol,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/tags/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var tags []*dreamlog.Tag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tags))
	assert.Len(t, tags, 1)

	sleepTime := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	rec = f.do(t, http.MethodPut, "/api/v1/sleep/", token, RecordSleepBody{
		Date:         time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Bedtime:      sleepTime,
		SleepTime:    &sleepTime,
		WakeTime:     sleepTime.Add(8 * time.Hour),
		SleepQuality: 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pattern dreamlog.SleepPattern
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pattern))
	require.NotNil(t, pattern.TotalSleep)
}
