package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/probo/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const wsWriteTimeout = 10 * time.Second

// ProgressWSHandler streams per-job progress events over a WebSocket.
type ProgressWSHandler struct {
	bus    interfaces.ProgressBus
	logger arbor.ILogger
}

func NewProgressWSHandler(bus interfaces.ProgressBus, logger arbor.ILogger) *ProgressWSHandler {
	return &ProgressWSHandler{bus: bus, logger: logger}
}

// StreamHandler serves GET /ws/documents/{id}. Events are written as JSON
// text messages; the connection closes after the terminal event.
func (h *ProgressWSHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	jobID := PathID(r.URL.Path, "/ws/documents")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "Missing document ID")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe(jobID)
	defer sub.Unsubscribe()

	h.logger.Debug().Str("job_id", jobID).Msg("WebSocket progress stream opened")

	// Drain client frames so close messages and pings are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Unsubscribe()
				return
			}
		}
	}()

	for event := range sub.Events() {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug().Err(err).Str("job_id", jobID).Msg("WebSocket write failed")
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "verification complete"))
}
