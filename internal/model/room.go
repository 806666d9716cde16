package model

import (
	"encoding/json"
	"time"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomActive     RoomStatus = "active"
	RoomCompleted  RoomStatus = "completed"
	RoomTerminated RoomStatus = "terminated"
)

// EndReason records why a room reached a terminal state.
type EndReason string

const (
	EndCompleted        EndReason = "completed"
	EndUserLeft         EndReason = "user-left"
	EndDisconnect       EndReason = "disconnect"
	EndAdminTerminated  EndReason = "admin-terminated"
	EndInactivity       EndReason = "inactivity"
	EndTimeLimitExpired EndReason = "time-limit-expired"
)

type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangGo         Language = "go"
)

func (l Language) IsValid() bool {
	switch l {
	case LangJavaScript, LangTypeScript, LangPython, LangJava, LangCPP, LangGo:
		return true
	}
	return false
}

// Participant is one of the two sessions bound to a room.
type Participant struct {
	SessionID    string    `json:"sessionId" bson:"sessionId"`
	Ready        bool      `json:"ready" bson:"ready"`
	LastActivity time.Time `json:"lastActivity" bson:"lastActivity"`
}

// ChatMessage is an append-only room chat entry, ordered by Seq within its
// room.
type ChatMessage struct {
	Seq       int       `json:"seq" bson:"seq"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	Sender    string    `json:"sender" bson:"sender"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// TestResult holds only the latest test submission for a room.
type TestResult struct {
	Results     json.RawMessage `json:"results" bson:"results"`
	SubmittedBy string          `json:"submittedBy" bson:"submittedBy"`
	SubmittedAt time.Time       `json:"submittedAt" bson:"submittedAt"`
}

// Room is a paired two-participant collaborative unit. Status is active iff
// both participants are ready; completed and terminated are terminal.
type Room struct {
	ID             string        `json:"roomId" bson:"_id"`
	Participants   []Participant `json:"participants" bson:"participants"`
	Difficulty     Difficulty    `json:"difficulty" bson:"difficulty"`
	ProblemRef     string        `json:"problemRef,omitempty" bson:"problemRef,omitempty"`
	Status         RoomStatus    `json:"status" bson:"status"`
	Code           string        `json:"code" bson:"code"`
	Language       Language      `json:"language" bson:"language"`
	ChatSeq        int           `json:"chatSeq" bson:"chatSeq"`
	ChatHistory    []ChatMessage `json:"chatHistory" bson:"chatHistory"`
	LastTestResult *TestResult   `json:"lastTestResult,omitempty" bson:"lastTestResult,omitempty"`
	EndReason      EndReason     `json:"endReason,omitempty" bson:"endReason,omitempty"`
	CreatedAt      time.Time     `json:"createdAt" bson:"createdAt"`
	EndedAt        *time.Time    `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// Terminal reports whether the room accepts no further mutation.
func (r *Room) Terminal() bool {
	return r.Status == RoomCompleted || r.Status == RoomTerminated
}

// Participant returns the participant entry for a session, or nil.
func (r *Room) Participant(sessionID string) *Participant {
	for i := range r.Participants {
		if r.Participants[i].SessionID == sessionID {
			return &r.Participants[i]
		}
	}
	return nil
}

// OtherParticipant returns the session id of the opposite participant.
func (r *Room) OtherParticipant(sessionID string) (string, bool) {
	for i := range r.Participants {
		if r.Participants[i].SessionID != sessionID {
			return r.Participants[i].SessionID, true
		}
	}
	return "", false
}

// ParticipantIDs returns the session ids currently bound to the room.
func (r *Room) ParticipantIDs() []string {
	ids := make([]string, 0, len(r.Participants))
	for i := range r.Participants {
		ids = append(ids, r.Participants[i].SessionID)
	}
	return ids
}

// AllReady reports whether every remaining participant has marked ready.
func (r *Room) AllReady() bool {
	if len(r.Participants) == 0 {
		return false
	}
	for i := range r.Participants {
		if !r.Participants[i].Ready {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand outside the registry.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Participants = append([]Participant(nil), r.Participants...)
	cp.ChatHistory = append([]ChatMessage(nil), r.ChatHistory...)
	if r.LastTestResult != nil {
		tr := *r.LastTestResult
		tr.Results = append(json.RawMessage(nil), r.LastTestResult.Results...)
		cp.LastTestResult = &tr
	}
	if r.EndedAt != nil {
		t := *r.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}

// RoomSummary is the admin view of a live room.
type RoomSummary struct {
	ID           string     `json:"roomId"`
	Difficulty   Difficulty `json:"difficulty"`
	Status       RoomStatus `json:"status"`
	Participants int        `json:"participants"`
	ProblemRef   string     `json:"problemRef,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
