package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/tasks"
)

// CreateDreamBody is the request body for creating a dream
type CreateDreamBody struct {
	Title          string                  `json:"title"`
	Content        string                  `json:"content"`
	Interpretation string                  `json:"interpretation,omitempty"`
	PersonalNotes  string                  `json:"personal_notes,omitempty"`
	DreamDate      time.Time               `json:"dream_date"`
	LucidityLevel  int                     `json:"lucidity_level"`
	MoodInDream    dreamlog.Mood           `json:"mood_in_dream,omitempty"`
	SleepQuality   *int                    `json:"sleep_quality,omitempty"`
	IsRecurring    bool                    `json:"is_recurring"`
	Vividness      *int                    `json:"vividness,omitempty"`
	Categories     []dreamlog.CategoryName `json:"categories,omitempty"`
	TagIDs         []uuid.UUID             `json:"tag_ids,omitempty"`
	Privacy        dreamlog.Privacy        `json:"privacy,omitempty"`
}

// UpdateDreamBody is the request body for updating a dream. Absent fields are
// left unchanged.
type UpdateDreamBody struct {
	Title          *string                 `json:"title,omitempty"`
	Content        *string                 `json:"content,omitempty"`
	Interpretation *string                 `json:"interpretation,omitempty"`
	PersonalNotes  *string                 `json:"personal_notes,omitempty"`
	DreamDate      *time.Time              `json:"dream_date,omitempty"`
	LucidityLevel  *int                    `json:"lucidity_level,omitempty"`
	MoodInDream    *dreamlog.Mood          `json:"mood_in_dream,omitempty"`
	SleepQuality   *int                    `json:"sleep_quality,omitempty"`
	IsRecurring    *bool                   `json:"is_recurring,omitempty"`
	Vividness      *int                    `json:"vividness,omitempty"`
	Categories     []dreamlog.CategoryName `json:"categories,omitempty"`
	TagIDs         []uuid.UUID             `json:"tag_ids,omitempty"`
	Privacy        *dreamlog.Privacy       `json:"privacy,omitempty"`
}

func (s *Server) dreamRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.createDream)
	r.Get("/", s.listDreams)
	r.Get("/statistics", s.dreamStatistics)
	r.Get("/{id}", s.getDream)
	r.Patch("/{id}", s.updateDream)
	r.Delete("/{id}", s.deleteDream)
	r.Post("/{id}/favorite", s.toggleFavorite)
	r.Get("/{id}/events", s.streamDreamEvents)
	return r
}

func (s *Server) createDream(w http.ResponseWriter, r *http.Request) {
	var body CreateDreamBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dream, err := s.service.CreateDream(r.Context(), dreamlog.CreateDreamRequest{
		UserID:         requestUserID(r),
		Title:          body.Title,
		Content:        body.Content,
		Interpretation: body.Interpretation,
		PersonalNotes:  body.PersonalNotes,
		DreamDate:      body.DreamDate,
		LucidityLevel:  body.LucidityLevel,
		MoodInDream:    body.MoodInDream,
		SleepQuality:   body.SleepQuality,
		IsRecurring:    body.IsRecurring,
		Vividness:      body.Vividness,
		Categories:     body.Categories,
		TagIDs:         body.TagIDs,
		Privacy:        body.Privacy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, dream)
}

func (s *Server) getDream(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid dream ID", http.StatusBadRequest)
		return
	}

	dream, err := s.service.GetDream(r.Context(), requestUserID(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, dream)
}

func (s *Server) listDreams(w http.ResponseWriter, r *http.Request) {
	dreams, err := s.service.ListDreams(r.Context(), requestUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if dreams == nil {
		dreams = []*dreamlog.Dream{}
	}
	render.JSON(w, r, dreams)
}

func (s *Server) updateDream(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid dream ID", http.StatusBadRequest)
		return
	}

	var body UpdateDreamBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	dream, err := s.service.UpdateDream(r.Context(), dreamlog.UpdateDreamRequest{
		ID:             id,
		UserID:         requestUserID(r),
		Title:          body.Title,
		Content:        body.Content,
		Interpretation: body.Interpretation,
		PersonalNotes:  body.PersonalNotes,
		DreamDate:      body.DreamDate,
		LucidityLevel:  body.LucidityLevel,
		MoodInDream:    body.MoodInDream,
		SleepQuality:   body.SleepQuality,
		IsRecurring:    body.IsRecurring,
		Vividness:      body.Vividness,
		Categories:     body.Categories,
		TagIDs:         body.TagIDs,
		Privacy:        body.Privacy,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, dream)
}

func (s *Server) deleteDream(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid dream ID", http.StatusBadRequest)
		return
	}

	marked, err := s.service.DeleteDream(r.Context(), requestUserID(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The stored objects go out through the delete worker; the records
	// themselves stay pending_delete until the sweep purges them.
	if len(marked) > 0 && s.queue != nil {
		keys := make([]string, 0, len(marked))
		for _, record := range marked {
			keys = append(keys, record.FileKey)
		}
		req := tasks.DeleteRequest{DreamID: id, FileKeys: keys}
		err := s.queue.Enqueue(tasks.Job{
			Name: fmt.Sprintf("delete-images:%s", id),
			Run: func(ctx context.Context) tasks.Result {
				return s.deleteWorker.Process(ctx, req)
			},
		})
		if err != nil {
			s.logger.Error("failed to queue image deletion", "dream_id", id, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid dream ID", http.StatusBadRequest)
		return
	}

	dream, err := s.service.ToggleFavorite(r.Context(), requestUserID(r), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, dream)
}

func (s *Server) dreamStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.DreamStatistics(r.Context(), requestUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
