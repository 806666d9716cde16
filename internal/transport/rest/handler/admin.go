package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
)

// AdminHandler is the operator surface: queue introspection and eviction,
// room oversight, session resets.
type AdminHandler struct {
	queues   *service.QueueService
	sessions *service.SessionService
	rooms    *service.RoomService
	match    *service.MatchService
}

func NewAdminHandler(queues *service.QueueService, sessions *service.SessionService, rooms *service.RoomService, match *service.MatchService) *AdminHandler {
	return &AdminHandler{queues: queues, sessions: sessions, rooms: rooms, match: match}
}

func (h *AdminHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queues.Stats())
}

func (h *AdminHandler) QueueContents(w http.ResponseWriter, r *http.Request) {
	difficulty := model.Difficulty(mux.Vars(r)["difficulty"])
	entries, err := h.queues.Contents(difficulty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"difficulty": difficulty,
		"entries":    entries,
	})
}

func (h *AdminHandler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	difficulty := model.Difficulty(mux.Vars(r)["difficulty"])
	cleared, err := h.match.ClearQueue(r.Context(), difficulty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"difficulty": difficulty,
		"cleared":    len(cleared),
	})
}

func (h *AdminHandler) ClearAllQueues(w http.ResponseWriter, r *http.Request) {
	cleared := h.match.ClearAllQueues(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"cleared": len(cleared)})
}

func (h *AdminHandler) ActiveRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.rooms.ActiveRooms(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (h *AdminHandler) TerminateRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	room, err := h.rooms.Terminate(r.Context(), roomID, model.EndAdminTerminated)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *AdminHandler) ResetSessions(w http.ResponseWriter, r *http.Request) {
	reset := h.sessions.ResetAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"reset": len(reset)})
}

func (h *AdminHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Stats(r.Context()))
}
