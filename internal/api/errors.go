package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/auth"
)

// ErrorResponse is the JSON body for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, dreamlog.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, dreamlog.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, dreamlog.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrCodeMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, dreamlog.ErrNotDreamOwner):
		return http.StatusForbidden
	case errors.Is(err, dreamlog.ErrDreamNotFound),
		errors.Is(err, dreamlog.ErrUserNotFound),
		errors.Is(err, dreamlog.ErrImageNotFound),
		errors.Is(err, dreamlog.ErrTagNotFound),
		errors.Is(err, dreamlog.ErrCategoryNotFound),
		errors.Is(err, dreamlog.ErrSleepPatternNotFound):
		return http.StatusNotFound
	case errors.Is(err, dreamlog.ErrDuplicateUsername),
		errors.Is(err, dreamlog.ErrDuplicatePhone),
		errors.Is(err, dreamlog.ErrDuplicateImageURL):
		return http.StatusConflict
	case errors.Is(err, auth.ErrCodeThrottled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
