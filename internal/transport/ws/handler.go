package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // code buffers ride on this channel
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler authenticates WebSocket handshakes, binds each connection to its
// session, dispatches the inbound event protocol to the registries, and
// fans resulting state changes back out through the hub.
type Handler struct {
	hub      *Hub
	auth     *service.AuthService
	sessions *service.SessionService
	rooms    *service.RoomService
	match    *service.MatchService

	grace       time.Duration
	graceMu     sync.Mutex
	graceTimers map[string]*time.Timer // sessionId -> pending mark-inactive
}

func NewHandler(hub *Hub, auth *service.AuthService, sessions *service.SessionService, rooms *service.RoomService, match *service.MatchService, grace time.Duration) *Handler {
	return &Handler{
		hub:         hub,
		auth:        auth,
		sessions:    sessions,
		rooms:       rooms,
		match:       match,
		grace:       grace,
		graceTimers: make(map[string]*time.Timer),
	}
}

// ServeWS handles GET /v1/ws. The signed session credential rides in the
// token query param; a missing, unparseable, or inactive credential rejects
// the handshake before the upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	session := h.sessions.Get(r.Context(), claims.SessionID)
	if session == nil {
		http.Error(w, "session not found or inactive", http.StatusUnauthorized)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	// a reconnect within the grace window keeps the session's bindings
	h.cancelGrace(session.ID)
	h.sessions.Heartbeat(context.Background(), session.ID)

	conn := &Connection{
		SessionID: session.ID,
		UserID:    session.UserID,
		Send:      make(chan []byte, 256),
		Hub:       h.hub,
	}
	h.hub.Register(conn)

	// seed the new client with current queue depths
	h.hub.BroadcastToSession(session.ID, EvtQueueCounts, h.match.QueueCounts().ByDifficulty)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		// a false return means a newer connection replaced this one and the
		// session must stay intact
		wasCurrent := h.hub.Unregister(conn)
		wsConn.Close()
		if wasCurrent {
			h.handleDisconnect(conn)
		}
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error for %s: %v", conn.SessionID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(conn, "malformed message")
			continue
		}
		h.dispatch(conn, &msg)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound event. Every room-scoped event re-checks that
// the bound session is a participant before any mutation.
func (h *Handler) dispatch(conn *Connection, msg *Message) {
	ctx := context.Background()

	switch msg.Event {
	case EvtJoinQueue, EvtRejoinQueue:
		var p joinQueuePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		position, err := h.match.JoinQueue(ctx, conn.SessionID, p.Difficulty, p.Mode)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.hub.BroadcastToSession(conn.SessionID, EvtQueueJoined, queueJoinedPayload{
			Success:    true,
			Difficulty: p.Difficulty,
			Position:   position,
		})
		h.broadcastQueueCounts()

	case EvtLeaveQueue:
		removed := h.match.LeaveQueue(ctx, conn.SessionID)
		h.hub.BroadcastToSession(conn.SessionID, EvtQueueLeft, map[string]bool{"success": removed})
		h.broadcastQueueCounts()

	case EvtJoinRoom:
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		h.joinRoom(ctx, conn, p.RoomID)

	case EvtCodeChange:
		var p codeChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		if err := h.rooms.UpdateCode(ctx, p.RoomID, conn.SessionID, p.Code); err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.notifyOther(ctx, p.RoomID, conn.SessionID, EvtCodeChange, codeChangedPayload{
			Code:      p.Code,
			ChangedBy: conn.SessionID,
		})

	case EvtLanguageChange:
		var p languageChangePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		if err := h.rooms.UpdateLanguage(ctx, p.RoomID, conn.SessionID, p.Language); err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.notifyOther(ctx, p.RoomID, conn.SessionID, EvtLanguageChange, languageChangedPayload{
			Language:  p.Language,
			ChangedBy: conn.SessionID,
		})

	case EvtChatMessage:
		var p chatMessagePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		stored, err := h.rooms.AppendChat(ctx, p.RoomID, conn.SessionID, p.Sender, p.Text)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		// chat goes to every participant, sender included, so both sides
		// observe the same ordering
		if room, err := h.rooms.Get(ctx, p.RoomID); err == nil {
			h.hub.BroadcastToSessions(room.ParticipantIDs(), EvtChatMessage, stored)
		}

	case EvtFetchChatHistory:
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		room, err := h.rooms.Get(ctx, p.RoomID)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		if room.Participant(conn.SessionID) == nil {
			h.sendError(conn, service.ErrNotParticipant.Error())
			return
		}
		h.hub.BroadcastToSession(conn.SessionID, EvtChatHistory, chatHistoryPayload{Messages: room.ChatHistory})

	case EvtTestResults:
		var p testResultsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			h.sendError(conn, "malformed payload")
			return
		}
		result, err := h.rooms.RecordTestResult(ctx, p.RoomID, conn.SessionID, p.Results)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.notifyOther(ctx, p.RoomID, conn.SessionID, EvtTestResults, testResultsBroadcast{
			Results:     result.Results,
			SubmittedBy: result.SubmittedBy,
		})

	case EvtLeaveRoom:
		h.leaveRoom(ctx, conn)

	case EvtHeartbeat:
		h.sessions.Heartbeat(ctx, conn.SessionID)
		h.hub.BroadcastToSession(conn.SessionID, EvtHeartbeatAck, struct{}{})

	default:
		h.sendError(conn, "unknown event")
	}
}

// joinRoom marks the caller ready in its room; when both sides are ready the
// room activates and both participants get roomReady.
func (h *Handler) joinRoom(ctx context.Context, conn *Connection, roomID string) {
	room, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	if room.Participant(conn.SessionID) == nil {
		h.sendError(conn, service.ErrNotParticipant.Error())
		return
	}

	room, activated, err := h.rooms.SetReady(ctx, conn.SessionID, true)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	if _, err := h.sessions.Transition(ctx, conn.SessionID, model.EventEnterRoom, service.TransitionData{}); err != nil && err != service.ErrInvalidTransition {
		log.Printf("enter-room transition failed for %s: %v", conn.SessionID, err)
	}

	h.hub.BroadcastToSession(conn.SessionID, EvtRoomJoined, roomStatePayload{Room: room})
	if activated {
		h.hub.BroadcastToSessions(room.ParticipantIDs(), EvtRoomReady, roomStatePayload{Room: room})
	}
}

func (h *Handler) leaveRoom(ctx context.Context, conn *Connection) {
	room, err := h.rooms.RemoveParticipant(ctx, conn.SessionID, model.EndUserLeft)
	if err != nil {
		h.hub.BroadcastToSession(conn.SessionID, EvtRoomLeft, map[string]bool{"success": false})
		return
	}
	if _, err := h.sessions.Transition(ctx, conn.SessionID, model.EventRoomEnded, service.TransitionData{}); err != nil && err != service.ErrInvalidTransition {
		log.Printf("room-ended transition failed for %s: %v", conn.SessionID, err)
	}
	h.hub.BroadcastToSessions(room.ParticipantIDs(), EvtUserLeft, userLeftPayload{
		SessionID: conn.SessionID,
		UserID:    conn.UserID,
	})
	h.hub.BroadcastToSession(conn.SessionID, EvtRoomLeft, map[string]bool{"success": true})
}

// handleDisconnect runs when a connection drops without replacement. Queue
// slots are released immediately (queues are presence-coupled); room
// bindings are kept through the grace window so a reconnect can restore
// them. Only when the window expires is the participant removed and the
// session force-inactivated.
func (h *Handler) handleDisconnect(conn *Connection) {
	ctx := context.Background()

	if h.match.LeaveQueue(ctx, conn.SessionID) {
		h.broadcastQueueCounts()
	}

	// tell the partner right away, even though the binding survives the
	// grace window
	if room, err := h.rooms.GetByParticipant(ctx, conn.SessionID); err == nil {
		if other, ok := room.OtherParticipant(conn.SessionID); ok {
			h.hub.BroadcastToSession(other, EvtUserLeft, userLeftPayload{
				SessionID: conn.SessionID,
				UserID:    conn.UserID,
			})
		}
	}

	h.graceMu.Lock()
	if t, ok := h.graceTimers[conn.SessionID]; ok {
		t.Stop()
	}
	h.graceTimers[conn.SessionID] = time.AfterFunc(h.grace, func() {
		h.graceMu.Lock()
		delete(h.graceTimers, conn.SessionID)
		h.graceMu.Unlock()

		if h.hub.Connected(conn.SessionID) {
			return
		}
		bg := context.Background()
		if _, err := h.rooms.RemoveParticipant(bg, conn.SessionID, model.EndDisconnect); err == nil {
			log.Printf("grace expired, removed %s from its room", conn.SessionID)
		}
		h.sessions.MarkInactive(bg, conn.SessionID)
	})
	h.graceMu.Unlock()
}

func (h *Handler) cancelGrace(sessionID string) {
	h.graceMu.Lock()
	defer h.graceMu.Unlock()
	if t, ok := h.graceTimers[sessionID]; ok {
		t.Stop()
		delete(h.graceTimers, sessionID)
	}
}

func (h *Handler) notifyOther(ctx context.Context, roomID, sessionID, event string, payload interface{}) {
	room, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		return
	}
	if other, ok := room.OtherParticipant(sessionID); ok {
		h.hub.BroadcastToSession(other, event, payload)
	}
}

func (h *Handler) broadcastQueueCounts() {
	h.hub.BroadcastToAll(EvtQueueCounts, h.match.QueueCounts().ByDifficulty)
}

// StartQueueCountsTicker pushes queue depths to every client on a fixed
// interval, independent of queue traffic, plus a position update to each
// session still waiting in a queue.
func (h *Handler) StartQueueCountsTicker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.broadcastQueueCounts()
				for _, sessionID := range h.hub.Sessions() {
					if position, ok := h.match.Position(sessionID); ok {
						h.hub.BroadcastToSession(sessionID, EvtQueuePosition, position)
					}
				}
			}
		}
	}()
}

func (h *Handler) sendError(conn *Connection, message string) {
	h.hub.BroadcastToSession(conn.SessionID, EvtError, errorPayload{Message: message})
}
