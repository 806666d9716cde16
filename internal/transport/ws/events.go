package ws

import (
	"encoding/json"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// Client-to-server events.
const (
	EvtJoinQueue        = "joinQueue"
	EvtLeaveQueue       = "leaveQueue"
	EvtRejoinQueue      = "rejoinQueue"
	EvtJoinRoom         = "joinRoom"
	EvtLeaveRoom        = "leaveRoom"
	EvtCodeChange       = "codeChange"
	EvtLanguageChange   = "languageChange"
	EvtChatMessage      = "chatMessage"
	EvtFetchChatHistory = "fetchChatHistory"
	EvtTestResults      = "testResults"
	EvtHeartbeat        = "heartbeat"
)

// Server-to-client events.
const (
	EvtQueueJoined   = "queueJoined"
	EvtQueueLeft     = "queueLeft"
	EvtQueuePosition = "queuePosition"
	EvtQueueCounts   = "queueCounts"
	EvtMatchFound    = "matchFound"
	EvtRoomReady     = "roomReady"
	EvtRoomJoined    = "roomJoined"
	EvtRoomLeft      = "roomLeft"
	EvtRoomClosed    = "roomClosed"
	EvtUserLeft      = "userLeft"
	EvtChatHistory   = "chatHistory"
	EvtHeartbeatAck  = "heartbeatAck"
	EvtError         = "error"
)

// Message is the WebSocket envelope: an event name plus its payload.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinQueuePayload struct {
	Difficulty model.Difficulty `json:"difficulty"`
	Mode       string           `json:"mode,omitempty"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type codeChangePayload struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}

type languageChangePayload struct {
	RoomID   string         `json:"roomId"`
	Language model.Language `json:"language"`
}

type chatMessagePayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"message"`
	Sender string `json:"sender,omitempty"`
}

type testResultsPayload struct {
	RoomID  string          `json:"roomId"`
	Results json.RawMessage `json:"results"`
}

type queueJoinedPayload struct {
	Success    bool                 `json:"success"`
	Difficulty model.Difficulty     `json:"difficulty"`
	Position   *model.QueuePosition `json:"position,omitempty"`
}

type roomStatePayload struct {
	Room *model.Room `json:"room"`
}

type codeChangedPayload struct {
	Code      string `json:"code"`
	ChangedBy string `json:"changedBy"`
}

type languageChangedPayload struct {
	Language  model.Language `json:"language"`
	ChangedBy string         `json:"changedBy"`
}

type testResultsBroadcast struct {
	Results     json.RawMessage `json:"results"`
	SubmittedBy string          `json:"submittedBy"`
}

type chatHistoryPayload struct {
	Messages []model.ChatMessage `json:"messages"`
}

type userLeftPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
}

// RoomClosedPayload is exported because the roomClosed fanout is wired at
// composition time, outside this package.
type RoomClosedPayload struct {
	RoomID string          `json:"roomId"`
	Reason model.EndReason `json:"reason"`
}

type errorPayload struct {
	Message string `json:"message"`
}
