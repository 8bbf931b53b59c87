// Package api exposes the dream journal over HTTP: account and session
// endpoints, dream CRUD with inline image reconciliation, presigned and
// direct uploads, and a live event stream for image processing updates.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/auth"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/tasks"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Server wires the journal service and its background workers into an HTTP
// router.
type Server struct {
	service       dreamlog.Service
	authenticator *auth.Authenticator
	subscriber    dreamlog.Subscriber
	queue         *tasks.Queue
	uploadWorker  *tasks.UploadWorker
	deleteWorker  *tasks.DeleteWorker
	logger        *slog.Logger
}

// NewServer creates the HTTP server wiring.
func NewServer(
	service dreamlog.Service,
	authenticator *auth.Authenticator,
	subscriber dreamlog.Subscriber,
	queue *tasks.Queue,
	uploadWorker *tasks.UploadWorker,
	deleteWorker *tasks.DeleteWorker,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:       service,
		authenticator: authenticator,
		subscriber:    subscriber,
		queue:         queue,
		uploadWorker:  uploadWorker,
		deleteWorker:  deleteWorker,
		logger:        logger,
	}
}

// Router builds the route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", s.authRoutes())

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(s.authenticator.Tokens().JWTAuth()))
			r.Use(s.requireUser)

			r.Mount("/dreams", s.dreamRoutes())
			r.Mount("/images", s.imageRoutes())
			r.Mount("/categories", s.categoryRoutes())
			r.Mount("/tags", s.tagRoutes())
			r.Mount("/sleep", s.sleepRoutes())
		})
	})
	return r
}

// requireUser rejects requests without a valid access token and stores the
// subject user id on the context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			respondError(w, r, auth.ErrInvalidToken)
			return
		}
		userID, err := auth.SubjectFromClaims(claims)
		if err != nil {
			respondError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestUserID(r *http.Request) uuid.UUID {
	userID, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return userID
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}
