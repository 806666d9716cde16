package service

import (
	"context"
	"log"
	"time"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// MatchFound is the per-user notification payload sent when a pairing
// succeeds.
type MatchFound struct {
	RoomID     string           `json:"roomId"`
	Difficulty model.Difficulty `json:"difficulty"`
	Opponent   model.UserData   `json:"opponent"`
}

// MatchService orchestrates matchmaking across the queue set, the session
// registry and the room registry: enqueue, immediate pair attempt, room
// creation, session transitions, and per-user fanout.
type MatchService struct {
	queues      *QueueService
	sessions    *SessionService
	rooms       *RoomService
	content     ContentStore
	broadcaster Broadcaster
}

func NewMatchService(queues *QueueService, sessions *SessionService, rooms *RoomService, content ContentStore) *MatchService {
	return &MatchService{
		queues:      queues,
		sessions:    sessions,
		rooms:       rooms,
		content:     content,
		broadcaster: noopBroadcaster{},
	}
}

// SetBroadcaster attaches the gateway hub after construction.
func (s *MatchService) SetBroadcaster(b Broadcaster) {
	if b != nil {
		s.broadcaster = b
	}
}

// JoinQueue enqueues a live session and immediately attempts a pairing. When
// the session was paired straight away the returned position is nil.
func (s *MatchService) JoinQueue(ctx context.Context, sessionID string, difficulty model.Difficulty, mode string) (*model.QueuePosition, error) {
	session := s.sessions.Get(ctx, sessionID)
	if session == nil {
		return nil, ErrSessionNotFound
	}

	entry, err := s.queues.Enqueue(sessionID, difficulty, mode, session.UserData)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Transition(ctx, sessionID, model.EventJoinQueue, TransitionData{
		Queue: &model.QueueInfo{Difficulty: difficulty, Mode: mode, JoinedAt: entry.JoinedAt},
	}); err != nil {
		s.queues.Leave(sessionID)
		return nil, err
	}

	if first, second, ok := s.queues.TryPair(difficulty); ok {
		s.pair(ctx, first, second, difficulty)
	}

	position, _ := s.queues.Position(sessionID)
	return position, nil
}

// LeaveQueue removes the session from its queue and rolls the session state
// back to unassigned. The transition is attempted even when no queue slot
// was held, so a waiting session that somehow lost its slot can always
// recover through this path. Idempotent.
func (s *MatchService) LeaveQueue(ctx context.Context, sessionID string) bool {
	removed := s.queues.Leave(sessionID)
	if _, err := s.sessions.Transition(ctx, sessionID, model.EventLeaveQueue, TransitionData{}); err != nil && err != ErrInvalidTransition && err != ErrSessionNotFound {
		log.Printf("leave-queue transition failed for %s: %v", sessionID, err)
	}
	return removed
}

// pair turns two dequeued entries into a room. On any failure both entries
// go back to the front-adjacent position of their queue (re-enqueued).
func (s *MatchService) pair(ctx context.Context, first, second *model.QueueEntry, difficulty model.Difficulty) {
	problemRef, err := s.content.PickProblem(ctx, difficulty)
	if err != nil {
		log.Printf("problem pick failed for %s: %v", difficulty, err)
	}

	room, err := s.rooms.Create(ctx, first.SessionID, second.SessionID, difficulty, problemRef)
	if err != nil {
		log.Printf("room create failed, re-enqueueing %s and %s: %v", first.SessionID, second.SessionID, err)
		s.requeue(first)
		s.requeue(second)
		return
	}

	for _, pairing := range []struct {
		entry    *model.QueueEntry
		opponent *model.QueueEntry
	}{{first, second}, {second, first}} {
		if _, err := s.sessions.Transition(ctx, pairing.entry.SessionID, model.EventPaired, TransitionData{RoomID: room.ID}); err != nil {
			log.Printf("paired transition failed for %s: %v", pairing.entry.SessionID, err)
			continue
		}
		s.broadcaster.BroadcastToSession(pairing.entry.SessionID, "matchFound", MatchFound{
			RoomID:     room.ID,
			Difficulty: difficulty,
			Opponent:   pairing.opponent.UserData,
		})
	}

	log.Printf("match created: room %s for %s vs %s", room.ID, first.SessionID, second.SessionID)
}

func (s *MatchService) requeue(entry *model.QueueEntry) {
	if _, err := s.queues.Enqueue(entry.SessionID, entry.Difficulty, entry.Mode, entry.UserData); err != nil {
		log.Printf("re-enqueue failed for %s: %v", entry.SessionID, err)
	}
}

// QueueCounts exposes the queue stats used for the periodic broadcast.
func (s *MatchService) QueueCounts() model.QueueStats {
	return s.queues.Stats()
}

// Position proxies the queue position query.
func (s *MatchService) Position(sessionID string) (*model.QueuePosition, bool) {
	return s.queues.Position(sessionID)
}

// ClearQueue evicts one difficulty queue and rolls every evicted session
// back to unassigned (admin surface).
func (s *MatchService) ClearQueue(ctx context.Context, difficulty model.Difficulty) ([]string, error) {
	cleared, err := s.queues.Clear(difficulty)
	if err != nil {
		return nil, err
	}
	s.rollback(ctx, cleared)
	return cleared, nil
}

// ClearAllQueues evicts every queue (admin surface).
func (s *MatchService) ClearAllQueues(ctx context.Context) []string {
	cleared := s.queues.ClearAll()
	s.rollback(ctx, cleared)
	return cleared
}

// EvictStale applies queue staleness eviction plus the session rollback; it
// is the sweeper callback target.
func (s *MatchService) EvictStale(ctx context.Context, maxAge time.Duration) []string {
	evicted := s.queues.EvictStale(maxAge)
	s.rollback(ctx, evicted)
	return evicted
}

func (s *MatchService) rollback(ctx context.Context, sessionIDs []string) {
	for _, id := range sessionIDs {
		if _, err := s.sessions.Transition(ctx, id, model.EventLeaveQueue, TransitionData{}); err != nil && err != ErrInvalidTransition && err != ErrSessionNotFound {
			log.Printf("queue rollback transition failed for %s: %v", id, err)
		}
	}
}
