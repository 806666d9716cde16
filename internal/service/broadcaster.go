package service

// Broadcaster fans registry state changes out to connected clients. The
// WebSocket hub implements it; keeping the interface here avoids an import
// cycle between the services and the transport.
type Broadcaster interface {
	BroadcastToSession(sessionID string, event string, payload interface{})
	BroadcastToSessions(sessionIDs []string, event string, payload interface{})
	BroadcastToAll(event string, payload interface{})
}

// noopBroadcaster stands in until a real hub is attached.
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToSession(string, string, interface{})    {}
func (noopBroadcaster) BroadcastToSessions([]string, string, interface{}) {}
func (noopBroadcaster) BroadcastToAll(string, interface{})                {}
