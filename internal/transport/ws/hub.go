package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub owns every live WebSocket connection, keyed by session id. A session
// holds at most one connection; a newer connection for the same session
// replaces the older one. The hub implements service.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection // sessionId -> connection

	broadcast chan *outbound
}

// Connection is one bound client connection.
type Connection struct {
	SessionID string
	UserID    string
	Send      chan []byte
	Hub       *Hub
}

type outbound struct {
	sessionIDs []string // nil means every connection
	msg        *Message
}

func NewHub() *Hub {
	h := &Hub{
		conns:     make(map[string]*Connection),
		broadcast: make(chan *outbound, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for out := range h.broadcast {
		data, err := json.Marshal(out.msg)
		if err != nil {
			log.Printf("broadcast marshal failed: %v", err)
			continue
		}
		h.mu.RLock()
		if out.sessionIDs == nil {
			for _, conn := range h.conns {
				conn.trySend(data)
			}
		} else {
			for _, id := range out.sessionIDs {
				if conn, ok := h.conns[id]; ok {
					conn.trySend(data)
				}
			}
		}
		h.mu.RUnlock()
	}
}

func (c *Connection) trySend(data []byte) {
	select {
	case c.Send <- data:
	default:
		// drop when the client's buffer is full
	}
}

// Register binds the connection to its session, kicking any stale connection
// the session still holds.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.conns[conn.SessionID]; ok && existing != conn {
		close(existing.Send)
		log.Printf("replacing connection for session %s", conn.SessionID)
	}
	h.conns[conn.SessionID] = conn
	log.Printf("session %s connected", conn.SessionID)
}

// Unregister removes the connection and reports whether it was still the
// session's current one. A false return means a newer connection already
// replaced it, so the session must not be torn down.
func (h *Hub) Unregister(conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.conns[conn.SessionID]; ok && existing == conn {
		delete(h.conns, conn.SessionID)
		close(conn.Send)
		log.Printf("session %s disconnected", conn.SessionID)
		return true
	}
	return false
}

// Sessions returns the ids of every connected session.
func (h *Hub) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	return ids
}

// Connected reports whether the session has a live connection.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[sessionID]
	return ok
}

// BroadcastToSession sends an event to one session (implements
// service.Broadcaster).
func (h *Hub) BroadcastToSession(sessionID string, event string, payload interface{}) {
	h.enqueue([]string{sessionID}, event, payload)
}

// BroadcastToSessions sends an event to a set of sessions, typically a
// room's participants (implements service.Broadcaster).
func (h *Hub) BroadcastToSessions(sessionIDs []string, event string, payload interface{}) {
	if len(sessionIDs) == 0 {
		return
	}
	h.enqueue(sessionIDs, event, payload)
}

// BroadcastToAll sends an event to every connected client (implements
// service.Broadcaster).
func (h *Hub) BroadcastToAll(event string, payload interface{}) {
	h.enqueue(nil, event, payload)
}

func (h *Hub) enqueue(sessionIDs []string, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("payload marshal failed for %s: %v", event, err)
		return
	}
	h.broadcast <- &outbound{
		sessionIDs: sessionIDs,
		msg:        &Message{Event: event, Payload: data},
	}
}
