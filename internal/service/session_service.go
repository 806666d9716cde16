package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harikrishna-au/codetogetherfull/internal/cache"
	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/repository"
)

// TransitionData carries the per-event side-effect inputs for Transition.
type TransitionData struct {
	RoomID string
	Queue  *model.QueueInfo
}

// SessionService is the session registry: one record per logical user
// session, a validated lifecycle state machine, and liveness tracking. A
// single mutex serializes mutations so read-modify-write cycles against the
// store are atomic.
type SessionService struct {
	mu    sync.Mutex
	store repository.SessionStore
	cache cache.SessionCache // optional, best-effort
}

func NewSessionService(store repository.SessionStore, sessionCache cache.SessionCache) *SessionService {
	return &SessionService{store: store, cache: sessionCache}
}

// Create allocates a fresh session for the user, invalidating any prior
// active session for the same user id.
func (s *SessionService) Create(ctx context.Context, userID string, userData model.UserData) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, err := s.store.FindActiveSessionByUser(ctx, userID); err != nil {
		return nil, err
	} else if prev != nil {
		prev.IsActive = false
		prev.State = model.SessionUnassigned
		prev.RoomID = ""
		prev.QueueInfo = nil
		if err := s.store.UpsertSession(ctx, prev); err != nil {
			return nil, err
		}
		s.writeCache(ctx, prev)
		log.Printf("invalidated prior session %s for user %s", prev.ID, userID)
	}

	now := time.Now()
	session := &model.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		UserData:     userData,
		State:        model.SessionUnassigned,
		IsActive:     true,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.store.UpsertSession(ctx, session); err != nil {
		return nil, err
	}
	s.writeCache(ctx, session)

	log.Printf("session created: %s for user %s", session.ID, userID)
	return session, nil
}

// Get returns the live session or nil when absent or inactive.
func (s *SessionService) Get(ctx context.Context, sessionID string) *model.Session {
	session, err := s.store.FindSessionByToken(ctx, sessionID)
	if err != nil {
		log.Printf("session lookup failed for %s: %v", sessionID, err)
		return nil
	}
	if session == nil && s.cache != nil {
		if session, err = s.cache.Get(ctx, sessionID); err != nil {
			log.Printf("session cache lookup failed for %s: %v", sessionID, err)
			session = nil
		}
	}
	if session == nil || !session.IsActive {
		return nil
	}
	return session
}

// GetByUser returns the user's live session or nil.
func (s *SessionService) GetByUser(ctx context.Context, userID string) *model.Session {
	session, err := s.store.FindActiveSessionByUser(ctx, userID)
	if err != nil {
		log.Printf("session lookup failed for user %s: %v", userID, err)
		return nil
	}
	if session == nil && s.cache != nil {
		if session, err = s.cache.GetByUser(ctx, userID); err != nil {
			log.Printf("session cache lookup failed for user %s: %v", userID, err)
			session = nil
		}
	}
	if session == nil || !session.IsActive {
		return nil
	}
	return session
}

// Transition applies one state-machine event. Events outside the table
// return ErrInvalidTransition and leave the record untouched; every
// state-changing call also counts as a heartbeat.
func (s *SessionService) Transition(ctx context.Context, sessionID string, event model.SessionEvent, data TransitionData) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.FindSessionByToken(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.IsActive {
		return nil, ErrSessionNotFound
	}

	next, ok := model.NextState(session.State, event)
	if !ok {
		log.Printf("rejected transition %s from %s for session %s", event, session.State, sessionID)
		return nil, ErrInvalidTransition
	}

	session.State = next
	session.LastActivity = time.Now()
	switch event {
	case model.EventJoinQueue:
		session.QueueInfo = data.Queue
	case model.EventLeaveQueue:
		session.QueueInfo = nil
	case model.EventPaired:
		session.QueueInfo = nil
		session.RoomID = data.RoomID
	case model.EventRoomEnded:
		session.RoomID = ""
	case model.EventMarkInactive:
		session.RoomID = ""
		session.QueueInfo = nil
		session.IsActive = false
	}

	if err := s.store.UpsertSession(ctx, session); err != nil {
		return nil, err
	}
	s.writeCache(ctx, session)
	return session, nil
}

// Heartbeat refreshes lastActivity. Returns false for unknown or inactive
// sessions.
func (s *SessionService) Heartbeat(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.FindSessionByToken(ctx, sessionID)
	if err != nil || session == nil || !session.IsActive {
		return false
	}
	session.LastActivity = time.Now()
	if err := s.store.UpsertSession(ctx, session); err != nil {
		log.Printf("heartbeat write failed for %s: %v", sessionID, err)
		return false
	}
	s.writeCache(ctx, session)
	return true
}

// MarkInactive force-transitions the session to unassigned and clears its
// bindings. Valid from any state.
func (s *SessionService) MarkInactive(ctx context.Context, sessionID string) {
	if _, err := s.Transition(ctx, sessionID, model.EventMarkInactive, TransitionData{}); err != nil && err != ErrSessionNotFound {
		log.Printf("mark inactive failed for %s: %v", sessionID, err)
	}
}

// Destroy removes the session record entirely (explicit logout).
func (s *SessionService) Destroy(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.store.FindSessionByToken(ctx, sessionID)
	if err != nil || session == nil {
		return false
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		log.Printf("session delete failed for %s: %v", sessionID, err)
		return false
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, session); err != nil {
			log.Printf("session cache delete failed for %s: %v", sessionID, err)
		}
	}
	log.Printf("session destroyed: %s", sessionID)
	return true
}

// SweepInactive force-inactivates sessions idle past the threshold and
// returns the swept ids. cleanup, when set, runs per session before the
// transition so queue and room membership can be cleared first.
func (s *SessionService) SweepInactive(ctx context.Context, idleThreshold time.Duration, cleanup func(sessionID string)) []string {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		log.Printf("session sweep list failed: %v", err)
		return nil
	}

	cutoff := time.Now().Add(-idleThreshold)
	var swept []string
	for _, session := range sessions {
		if !session.IsActive || !session.LastActivity.Before(cutoff) {
			continue
		}
		if cleanup != nil {
			cleanup(session.ID)
		}
		s.MarkInactive(ctx, session.ID)
		swept = append(swept, session.ID)
	}
	if len(swept) > 0 {
		log.Printf("swept %d idle sessions", len(swept))
	}
	return swept
}

// StartSweeper runs SweepInactive on a fixed interval until ctx is done.
func (s *SessionService) StartSweeper(ctx context.Context, interval, idleThreshold time.Duration, cleanup func(sessionID string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepInactive(ctx, idleThreshold, cleanup)
			}
		}
	}()
}

// ResetAll force-inactivates every active session (admin surface).
func (s *SessionService) ResetAll(ctx context.Context) []string {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		log.Printf("session reset list failed: %v", err)
		return nil
	}
	var reset []string
	for _, session := range sessions {
		if !session.IsActive {
			continue
		}
		s.MarkInactive(ctx, session.ID)
		reset = append(reset, session.ID)
	}
	log.Printf("reset %d sessions", len(reset))
	return reset
}

// Stats returns counts by state over active sessions (admin surface).
func (s *SessionService) Stats(ctx context.Context) model.SessionStats {
	stats := model.SessionStats{ByState: make(map[model.SessionState]int)}
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		log.Printf("session stats list failed: %v", err)
		return stats
	}
	stats.Total = len(sessions)
	for _, session := range sessions {
		if session.IsActive {
			stats.Active++
			stats.ByState[session.State]++
		}
	}
	return stats
}

func (s *SessionService) writeCache(ctx context.Context, session *model.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session); err != nil {
		log.Printf("session cache write failed for %s: %v", session.ID, err)
	}
}
