package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every matchmaking tier in a stable order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// QueueEntry is one session's slot in a difficulty queue. A session occupies
// at most one slot system-wide.
type QueueEntry struct {
	SessionID  string     `json:"sessionId"`
	Difficulty Difficulty `json:"difficulty"`
	Mode       string     `json:"mode,omitempty"`
	UserData   UserData   `json:"userData"`
	JoinedAt   time.Time  `json:"joinedAt"`
}

// QueuePosition is the answer to a position query: 1-based rank within the
// occupied queue, that queue's current size, and elapsed wait.
type QueuePosition struct {
	Position   int        `json:"position"`
	Difficulty Difficulty `json:"difficulty"`
	QueueSize  int        `json:"queueSize"`
	WaitTimeMs int64      `json:"waitTime"`
}

// DifficultyStats summarises one queue for the stats surface.
type DifficultyStats struct {
	Count             int   `json:"count"`
	AverageWaitTimeMs int64 `json:"averageWaitTime"`
	OldestWaitTimeMs  int64 `json:"oldestWaitTime"`
}

// QueueStats aggregates every difficulty queue.
type QueueStats struct {
	TotalUsers   int                            `json:"totalUsers"`
	ByDifficulty map[Difficulty]DifficultyStats `json:"byDifficulty"`
}

// QueueEntryView is the admin view of a queued session.
type QueueEntryView struct {
	SessionID  string   `json:"sessionId"`
	UserData   UserData `json:"userData"`
	Position   int      `json:"position"`
	WaitTimeMs int64    `json:"waitTime"`
}
