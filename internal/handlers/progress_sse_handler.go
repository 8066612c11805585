package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

// keepaliveInterval is how often an SSE comment is sent to hold the
// connection open through proxies.
const keepaliveInterval = 30 * time.Second

// ProgressSSEHandler streams per-job progress events over Server-Sent Events.
type ProgressSSEHandler struct {
	bus    interfaces.ProgressBus
	logger arbor.ILogger
}

func NewProgressSSEHandler(bus interfaces.ProgressBus, logger arbor.ILogger) *ProgressSSEHandler {
	return &ProgressSSEHandler{bus: bus, logger: logger}
}

// StreamHandler serves GET /api/documents/{id}/progress. A new subscriber
// receives the latest event immediately, then live updates until the job
// reaches a terminal state or the client disconnects.
func (h *ProgressSSEHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathID(r.URL.Path, "/api/documents")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing document ID")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.bus.Subscribe(jobID)
	defer sub.Unsubscribe()

	h.logger.Debug().Str("job_id", jobID).Msg("SSE progress stream opened")

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug().Str("job_id", jobID).Msg("SSE client disconnected")
			return
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		case event, open := <-sub.Events():
			if !open {
				// Terminal event was delivered; the stream is complete.
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to marshal progress event")
				continue
			}
			fmt.Fprintf(w, "event: progress\n")
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// LatestHandler serves GET /api/documents/{id}/progress/latest for one-shot
// polling clients.
func (h *ProgressSSEHandler) LatestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := PathID(r.URL.Path, "/api/documents")
	event, ok := h.bus.Latest(jobID)
	if !ok {
		WriteError(w, http.StatusNotFound, "No progress recorded")
		return
	}
	WriteJSON(w, http.StatusOK, event)
}
