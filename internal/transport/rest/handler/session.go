package handler

import (
	"encoding/json"
	"net/http"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/rest/middleware"
)

// SessionHandler serves login, logout and introspection for the session
// lifecycle.
type SessionHandler struct {
	auth     *service.AuthService
	sessions *service.SessionService
	rooms    *service.RoomService
	match    *service.MatchService
}

func NewSessionHandler(auth *service.AuthService, sessions *service.SessionService, rooms *service.RoomService, match *service.MatchService) *SessionHandler {
	return &SessionHandler{auth: auth, sessions: sessions, rooms: rooms, match: match}
}

// Login exchanges either an identity-provider credential or an anonymous
// user id for a fresh session and its signed credential. A new login
// invalidates any prior active session for the same user.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var identity *model.Identity
	if req.Credential != "" {
		verified, err := h.auth.VerifyIdentity(r.Context(), req.Credential)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		identity = verified
	} else {
		if req.UserID == "" {
			writeError(w, http.StatusBadRequest, "credential or userId required")
			return
		}
		identity = &model.Identity{UserID: req.UserID, Name: "Anonymous User"}
		if req.UserData != nil {
			if req.UserData.Name != "" {
				identity.Name = req.UserData.Name
			}
			identity.Email = req.UserData.Email
			identity.Avatar = req.UserData.Avatar
		}
	}

	session, err := h.sessions.Create(r.Context(), identity.UserID, model.UserData{
		Name:   identity.Name,
		Email:  identity.Email,
		Avatar: identity.Avatar,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.auth.IssueToken(session)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}

	writeJSON(w, http.StatusOK, model.LoginResponse{
		SessionID: session.ID,
		Token:     token,
		User:      *identity,
	})
}

// Logout tears the session down: queue slot released, room membership
// removed, record destroyed.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())

	h.match.LeaveQueue(r.Context(), session.ID)
	if _, err := h.rooms.RemoveParticipant(r.Context(), session.ID, model.EndUserLeft); err != nil && err != service.ErrRoomNotFound && err != service.ErrRoomClosed {
		writeServiceError(w, err)
		return
	}
	destroyed := h.sessions.Destroy(r.Context(), session.ID)

	writeJSON(w, http.StatusOK, map[string]bool{"success": destroyed})
}

// Me returns the caller's live session record.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, session)
}
