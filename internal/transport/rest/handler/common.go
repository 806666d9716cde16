package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/harikrishna-au/codetogetherfull/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDifficulty), errors.Is(err, service.ErrInvalidLanguage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrRoomClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotParticipant), errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrIdentityRejected):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
