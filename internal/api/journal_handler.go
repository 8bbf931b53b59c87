package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// CreateTagBody is the request body for creating a tag
type CreateTagBody struct {
	Name     string           `json:"name"`
	Type     dreamlog.TagType `json:"type,omitempty"`
	IsPublic bool             `json:"is_public"`
}

// RecordSleepBody is the request body for recording one night of sleep
type RecordSleepBody struct {
	Date         time.Time  `json:"date"`
	Bedtime      time.Time  `json:"bedtime"`
	SleepTime    *time.Time `json:"sleep_time,omitempty"`
	WakeTime     time.Time  `json:"wake_time"`
	SleepQuality int        `json:"sleep_quality"`
	Awakenings   int        `json:"awakenings"`
	Notes        string     `json:"notes,omitempty"`
}

func (s *Server) categoryRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.listCategories)
	return r
}

func (s *Server) tagRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.createTag)
	r.Get("/", s.listTags)
	return r
}

func (s *Server) sleepRoutes() chi.Router {
	r := chi.NewRouter()
	r.Put("/", s.recordSleep)
	r.Get("/", s.listSleepPatterns)
	return r
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if categories == nil {
		categories = []*dreamlog.DreamCategory{}
	}
	render.JSON(w, r, categories)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var body CreateTagBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	userID := requestUserID(r)
	tag, err := s.service.CreateTag(r.Context(), dreamlog.CreateTagRequest{
		Name:      body.Name,
		Type:      body.Type,
		CreatedBy: &userID,
		IsPublic:  body.IsPublic,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, tag)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.ListTags(r.Context(), requestUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if tags == nil {
		tags = []*dreamlog.Tag{}
	}
	render.JSON(w, r, tags)
}

func (s *Server) recordSleep(w http.ResponseWriter, r *http.Request) {
	var body RecordSleepBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pattern, err := s.service.RecordSleepPattern(r.Context(), dreamlog.RecordSleepRequest{
		UserID:       requestUserID(r),
		Date:         body.Date,
		Bedtime:      body.Bedtime,
		SleepTime:    body.SleepTime,
		WakeTime:     body.WakeTime,
		SleepQuality: body.SleepQuality,
		Awakenings:   body.Awakenings,
		Notes:        body.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, pattern)
}

func (s *Server) listSleepPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := s.service.ListSleepPatterns(r.Context(), requestUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if patterns == nil {
		patterns = []*dreamlog.SleepPattern{}
	}
	render.JSON(w, r, patterns)
}
