package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/tasks"
)

const maxUploadBytes = 20 << 20 // per request

// PresignBody is the request body for issuing a direct-upload grant
type PresignBody struct {
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	DreamID     *uuid.UUID `json:"dream_id,omitempty"`
}

func (s *Server) imageRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/presign", s.presignUpload)
	r.Post("/upload", s.uploadImages)
	r.Get("/stats", s.imageStats)
	return r
}

func (s *Server) presignUpload(w http.ResponseWriter, r *http.Request) {
	var body PresignBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	grant, err := s.service.PresignUpload(r.Context(), dreamlog.PresignUploadRequest{
		UserID:      requestUserID(r),
		DreamID:     body.DreamID,
		FileName:    body.FileName,
		ContentType: body.ContentType,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, grant)
}

// uploadImages accepts a multipart form with an "images" file list plus a
// "dream_id" field and hands the batch to the upload worker. The response is
// 202; progress flows through the dream's event stream.
func (s *Server) uploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	dreamID, err := uuid.Parse(r.FormValue("dream_id"))
	if err != nil {
		http.Error(w, "invalid dream ID", http.StatusBadRequest)
		return
	}

	// Ownership check before accepting work for the dream.
	if _, err := s.service.GetDream(r.Context(), requestUserID(r), dreamID); err != nil {
		respondError(w, r, err)
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		http.Error(w, "no images in request", http.StatusBadRequest)
		return
	}

	req := tasks.UploadRequest{
		UserID:  requestUserID(r),
		DreamID: dreamID,
	}
	for i, header := range files {
		file, err := header.Open()
		if err != nil {
			http.Error(w, "unreadable upload", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			http.Error(w, "unreadable upload", http.StatusBadRequest)
			return
		}
		req.Images = append(req.Images, tasks.UploadImage{
			FileName: header.Filename,
			Data:     data,
			Position: i,
		})
	}

	err = s.queue.Enqueue(tasks.Job{
		Name: fmt.Sprintf("upload-images:%s", dreamID),
		Run: func(ctx context.Context) tasks.Result {
			return s.uploadWorker.Process(ctx, req)
		},
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"dream_id": dreamID,
		"queued":   len(req.Images),
	})
}

func (s *Server) imageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.ImageStats(r.Context(), requestUserID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	render.JSON(w, r, stats)
}
