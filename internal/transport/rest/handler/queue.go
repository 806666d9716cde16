package handler

import (
	"encoding/json"
	"net/http"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/rest/middleware"
)

// QueueHandler is the REST mirror of the queue surface; the same operations
// ride the WebSocket protocol for interactive clients.
type QueueHandler struct {
	match *service.MatchService
}

func NewQueueHandler(match *service.MatchService) *QueueHandler {
	return &QueueHandler{match: match}
}

type joinQueueRequest struct {
	Difficulty model.Difficulty `json:"difficulty"`
	Mode       string           `json:"mode,omitempty"`
}

// Join enqueues the caller and attempts an immediate pairing. A nil position
// in the response means the caller was paired straight away.
func (h *QueueHandler) Join(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	var req joinQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	position, err := h.match.JoinQueue(r.Context(), session.ID, req.Difficulty, req.Mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"matched":  position == nil,
		"position": position,
	})
}

// Leave releases the caller's queue slot. Idempotent.
func (h *QueueHandler) Leave(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	removed := h.match.LeaveQueue(r.Context(), session.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": removed})
}

// Position reports the caller's current rank and wait.
func (h *QueueHandler) Position(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	position, ok := h.match.Position(session.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "not in queue")
		return
	}
	writeJSON(w, http.StatusOK, position)
}

// Counts is the public queue-depth endpoint.
func (h *QueueHandler) Counts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.match.QueueCounts())
}
