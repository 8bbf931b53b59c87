package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// streamDreamEvents bridges the notification channel onto a Server-Sent
// Events response, so editors see upload and delete progress live.
func (s *Server) streamDreamEvents(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		http.Error(w, "invalid dream ID", http.StatusBadRequest)
		return
	}

	// Only the owner (or a viewer of a public dream) may listen.
	if _, err := s.service.GetDream(r.Context(), requestUserID(r), id); err != nil {
		respondError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, cancel, err := s.subscriber.Subscribe(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("failed to encode event", "dream_id", id, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: image-update\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
