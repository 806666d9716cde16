package model

import "time"

type SessionState string

const (
	SessionUnassigned SessionState = "unassigned"
	SessionWaiting    SessionState = "waiting"
	SessionMatched    SessionState = "matched"
	SessionInSession  SessionState = "in-session"
)

// SessionEvent drives the session state machine.
type SessionEvent string

const (
	EventJoinQueue    SessionEvent = "joinQueue"
	EventLeaveQueue   SessionEvent = "leaveQueue"
	EventPaired       SessionEvent = "paired"
	EventEnterRoom    SessionEvent = "enterRoom"
	EventRoomEnded    SessionEvent = "roomEnded"
	EventMarkInactive SessionEvent = "markInactive"
)

type transition struct {
	from map[SessionState]bool
	to   SessionState
}

// sessionTransitions is the full transition table. Anything not listed here
// is rejected. JoinQueue is accepted from waiting so a re-join moves the
// queue slot instead of stranding the session; RoomEnded is accepted from
// matched as well as in-session so a session whose room terminates before it
// joined is not stranded.
var sessionTransitions = map[SessionEvent]transition{
	EventJoinQueue:  {from: states(SessionUnassigned, SessionWaiting), to: SessionWaiting},
	EventLeaveQueue: {from: states(SessionWaiting), to: SessionUnassigned},
	EventPaired:     {from: states(SessionWaiting), to: SessionMatched},
	EventEnterRoom:  {from: states(SessionMatched), to: SessionInSession},
	EventRoomEnded:  {from: states(SessionMatched, SessionInSession), to: SessionUnassigned},
	EventMarkInactive: {
		from: states(SessionUnassigned, SessionWaiting, SessionMatched, SessionInSession),
		to:   SessionUnassigned,
	},
}

func states(ss ...SessionState) map[SessionState]bool {
	m := make(map[SessionState]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// NextState returns the state the event leads to from the given state, or
// false when the transition is not allowed.
func NextState(from SessionState, event SessionEvent) (SessionState, bool) {
	t, ok := sessionTransitions[event]
	if !ok || !t.from[from] {
		return from, false
	}
	return t.to, true
}

// QueueInfo is recorded on a session while it waits in a matchmaking queue.
type QueueInfo struct {
	Difficulty Difficulty `json:"difficulty" bson:"difficulty"`
	Mode       string     `json:"mode,omitempty" bson:"mode,omitempty"`
	JoinedAt   time.Time  `json:"joinedAt" bson:"joinedAt"`
}

// UserData is the public display data attached to a session.
type UserData struct {
	Name   string `json:"name" bson:"name"`
	Email  string `json:"email,omitempty" bson:"email,omitempty"`
	Avatar string `json:"avatar,omitempty" bson:"avatar,omitempty"`
}

// Session is one logical client's lifecycle record, independent of any single
// connection. RoomID is set iff the state is matched or in-session; QueueInfo
// is set iff the state is waiting.
type Session struct {
	ID           string       `json:"sessionId" bson:"_id"`
	UserID       string       `json:"userId" bson:"userId"`
	UserData     UserData     `json:"userData" bson:"userData"`
	State        SessionState `json:"state" bson:"state"`
	RoomID       string       `json:"roomId,omitempty" bson:"roomId,omitempty"`
	QueueInfo    *QueueInfo   `json:"queueInfo,omitempty" bson:"queueInfo,omitempty"`
	IsActive     bool         `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	LastActivity time.Time    `json:"lastActivity" bson:"lastActivity"`
}

// Clone returns a copy safe to hand outside the registry.
func (s *Session) Clone() *Session {
	cp := *s
	if s.QueueInfo != nil {
		qi := *s.QueueInfo
		cp.QueueInfo = &qi
	}
	return &cp
}

// SessionStats is the admin view of the session table.
type SessionStats struct {
	Total   int                  `json:"total"`
	Active  int                  `json:"active"`
	ByState map[SessionState]int `json:"byState"`
}
