package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/harikrishna-au/codetogetherfull/internal/cache"
	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/repository"
)

// RoomService is the room registry: lifecycle, participant readiness, and
// the shared code/language/chat/test-result state of every paired session.
// Mutations are serialized under one mutex; terminal rooms reject all
// further mutation.
type RoomService struct {
	mu    sync.Mutex
	store repository.RoomStore
	cache cache.RoomCache // optional, best-effort

	roomDuration time.Duration // fixed session length for active rooms
	retention    time.Duration // how long terminal rooms stay queryable

	timers map[string]*time.Timer // roomId -> duration timer

	onEnded func(room *model.Room) // fires after any terminal transition
}

func NewRoomService(store repository.RoomStore, roomCache cache.RoomCache, roomDuration, retention time.Duration) *RoomService {
	return &RoomService{
		store:        store,
		cache:        roomCache,
		roomDuration: roomDuration,
		retention:    retention,
		timers:       make(map[string]*time.Timer),
	}
}

// SetOnEnded registers the single callback invoked whenever a room reaches a
// terminal state, with the final room snapshot. The caller uses it to
// transition the bound sessions and notify participants.
func (s *RoomService) SetOnEnded(fn func(room *model.Room)) {
	s.onEnded = fn
}

// Create allocates a waiting room for two freshly paired sessions. Session
// exclusivity (neither session already bound to a room) is enforced by the
// session registry's paired transition, not re-checked here.
func (s *RoomService) Create(ctx context.Context, sessionA, sessionB string, difficulty model.Difficulty, problemRef string) (*model.Room, error) {
	if !difficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	room := &model.Room{
		ID: uuid.NewString(),
		Participants: []model.Participant{
			{SessionID: sessionA, LastActivity: now},
			{SessionID: sessionB, LastActivity: now},
		},
		Difficulty: difficulty,
		ProblemRef: problemRef,
		Status:     model.RoomWaiting,
		Language:   model.LangJavaScript,
		CreatedAt:  now,
	}
	if err := s.store.UpsertRoom(ctx, room); err != nil {
		return nil, err
	}
	s.writeCache(ctx, room)

	log.Printf("room created: %s for %s and %s (%s)", room.ID, sessionA, sessionB, difficulty)
	return room, nil
}

// Get returns the room or ErrRoomNotFound.
func (s *RoomService) Get(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil {
		log.Printf("room lookup failed for %s: %v", roomID, err)
		return nil, ErrRoomNotFound
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// GetByParticipant returns the live room the session is bound to, or
// ErrRoomNotFound.
func (s *RoomService) GetByParticipant(ctx context.Context, sessionID string) (*model.Room, error) {
	room, err := s.store.FindRoomByParticipant(ctx, sessionID)
	if err != nil {
		log.Printf("room lookup failed for participant %s: %v", sessionID, err)
		return nil, ErrRoomNotFound
	}
	if room == nil || room.Terminal() {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// SetReady marks the caller's participant ready. When both participants are
// ready the room transitions waiting -> active and the duration timer
// starts; activated reports whether this call caused that transition.
func (s *RoomService) SetReady(ctx context.Context, sessionID string, ready bool) (room *model.Room, activated bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err = s.liveRoomByParticipantLocked(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}

	p := room.Participant(sessionID)
	p.Ready = ready
	p.LastActivity = time.Now()

	if ready && room.Status == model.RoomWaiting && len(room.Participants) == 2 && room.AllReady() {
		room.Status = model.RoomActive
		activated = true
	}
	if err := s.store.UpsertRoom(ctx, room); err != nil {
		return nil, false, err
	}
	s.writeCache(ctx, room)

	if activated {
		s.startDurationTimerLocked(room.ID)
		log.Printf("room %s is now active", room.ID)
	}
	return room, activated, nil
}

// UpdateCode overwrites the shared code buffer, last writer wins.
func (s *RoomService) UpdateCode(ctx context.Context, roomID, sessionID, code string) error {
	return s.mutate(ctx, roomID, sessionID, func(room *model.Room) error {
		room.Code = code
		return nil
	})
}

// UpdateLanguage overwrites the shared editor language, last writer wins.
func (s *RoomService) UpdateLanguage(ctx context.Context, roomID, sessionID string, language model.Language) error {
	if !language.IsValid() {
		return ErrInvalidLanguage
	}
	return s.mutate(ctx, roomID, sessionID, func(room *model.Room) error {
		room.Language = language
		return nil
	})
}

// AppendChat appends a message with the next room-scoped sequence number and
// returns the stored message.
func (s *RoomService) AppendChat(ctx context.Context, roomID, sessionID, sender, text string) (*model.ChatMessage, error) {
	var stored model.ChatMessage
	err := s.mutate(ctx, roomID, sessionID, func(room *model.Room) error {
		room.ChatSeq++
		stored = model.ChatMessage{
			Seq:       room.ChatSeq,
			SessionID: sessionID,
			Sender:    sender,
			Text:      text,
			Timestamp: time.Now(),
		}
		room.ChatHistory = append(room.ChatHistory, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ChatHistory returns the room's ordered chat log.
func (s *RoomService) ChatHistory(ctx context.Context, roomID string) ([]model.ChatMessage, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.ChatHistory, nil
}

// RecordTestResult overwrites the room's latest test submission; no history
// is retained beyond it.
func (s *RoomService) RecordTestResult(ctx context.Context, roomID, sessionID string, results json.RawMessage) (*model.TestResult, error) {
	result := &model.TestResult{
		Results:     results,
		SubmittedBy: sessionID,
		SubmittedAt: time.Now(),
	}
	err := s.mutate(ctx, roomID, sessionID, func(room *model.Room) error {
		room.LastTestResult = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// End moves the room to completed. Ending an already-terminal room is a
// no-op returning the terminal snapshot.
func (s *RoomService) End(ctx context.Context, roomID string, reason model.EndReason) (*model.Room, error) {
	return s.finish(ctx, roomID, model.RoomCompleted, reason)
}

// Terminate moves the room to terminated (abnormal end). Idempotent.
func (s *RoomService) Terminate(ctx context.Context, roomID string, reason model.EndReason) (*model.Room, error) {
	return s.finish(ctx, roomID, model.RoomTerminated, reason)
}

func (s *RoomService) finish(ctx context.Context, roomID string, status model.RoomStatus, reason model.EndReason) (*model.Room, error) {
	s.mu.Lock()

	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil || room == nil {
		s.mu.Unlock()
		return nil, ErrRoomNotFound
	}
	if room.Terminal() {
		s.mu.Unlock()
		return room, nil
	}

	now := time.Now()
	room.Status = status
	room.EndReason = reason
	room.EndedAt = &now
	if err := s.store.UpsertRoom(ctx, room); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.writeCache(ctx, room)
	s.stopDurationTimerLocked(roomID)
	s.scheduleRetentionLocked(roomID)
	s.mu.Unlock()

	log.Printf("room %s ended: %s (%s)", roomID, status, reason)
	if s.onEnded != nil {
		s.onEnded(room.Clone())
	}
	return room, nil
}

// RemoveParticipant detaches one participant from its room. A room left with
// fewer than two participants is immediately terminated. The terminated
// room is returned so the caller can notify the remaining side.
func (s *RoomService) RemoveParticipant(ctx context.Context, sessionID string, reason model.EndReason) (*model.Room, error) {
	s.mu.Lock()

	room, err := s.liveRoomByParticipantLocked(ctx, sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	room.Participants = lo.Reject(room.Participants, func(p model.Participant, _ int) bool {
		return p.SessionID == sessionID
	})
	if err := s.store.UpsertRoom(ctx, room); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.writeCache(ctx, room)
	s.mu.Unlock()

	log.Printf("session %s removed from room %s", sessionID, room.ID)
	if len(room.Participants) <= 1 {
		return s.Terminate(ctx, room.ID, reason)
	}
	return room, nil
}

// ActiveRooms returns summaries of every waiting or active room (admin
// surface).
func (s *RoomService) ActiveRooms(ctx context.Context) []model.RoomSummary {
	rooms, err := s.store.ListRoomsByState(ctx, model.RoomWaiting, model.RoomActive)
	if err != nil {
		log.Printf("active rooms list failed: %v", err)
		return nil
	}
	return lo.Map(rooms, func(r *model.Room, _ int) model.RoomSummary {
		return model.RoomSummary{
			ID:           r.ID,
			Difficulty:   r.Difficulty,
			Status:       r.Status,
			Participants: len(r.Participants),
			ProblemRef:   r.ProblemRef,
			CreatedAt:    r.CreatedAt,
		}
	})
}

// SweepInactive terminates rooms whose age or most recent participant
// activity exceeds the threshold. Runs independently of request traffic.
func (s *RoomService) SweepInactive(ctx context.Context, idleThreshold time.Duration) []string {
	rooms, err := s.store.ListRoomsByState(ctx, model.RoomWaiting, model.RoomActive)
	if err != nil {
		log.Printf("room sweep list failed: %v", err)
		return nil
	}

	now := time.Now()
	var swept []string
	for _, room := range rooms {
		lastActivity := room.CreatedAt
		for _, p := range room.Participants {
			if p.LastActivity.After(lastActivity) {
				lastActivity = p.LastActivity
			}
		}
		if now.Sub(room.CreatedAt) > idleThreshold || now.Sub(lastActivity) > idleThreshold {
			if _, err := s.Terminate(ctx, room.ID, model.EndInactivity); err == nil {
				swept = append(swept, room.ID)
			}
		}
	}
	if len(swept) > 0 {
		log.Printf("swept %d inactive rooms", len(swept))
	}
	return swept
}

// StartSweeper runs SweepInactive on a fixed interval until ctx is done.
func (s *RoomService) StartSweeper(ctx context.Context, interval, idleThreshold time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepInactive(ctx, idleThreshold)
			}
		}
	}()
}

// mutate runs fn against a live room after the participant authorization
// check, refreshes the writer's activity, and persists the result.
func (s *RoomService) mutate(ctx context.Context, roomID, sessionID string, fn func(room *model.Room) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.store.FindRoom(ctx, roomID)
	if err != nil {
		log.Printf("room lookup failed for %s: %v", roomID, err)
		return ErrRoomNotFound
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.Terminal() {
		return ErrRoomClosed
	}
	p := room.Participant(sessionID)
	if p == nil {
		return ErrNotParticipant
	}

	if err := fn(room); err != nil {
		return err
	}
	p.LastActivity = time.Now()

	if err := s.store.UpsertRoom(ctx, room); err != nil {
		return err
	}
	s.writeCache(ctx, room)
	return nil
}

func (s *RoomService) liveRoomByParticipantLocked(ctx context.Context, sessionID string) (*model.Room, error) {
	room, err := s.store.FindRoomByParticipant(ctx, sessionID)
	if err != nil {
		log.Printf("room lookup failed for participant %s: %v", sessionID, err)
		return nil, ErrRoomNotFound
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if room.Terminal() {
		return nil, ErrRoomClosed
	}
	return room, nil
}

// startDurationTimerLocked arms the fixed session-length timer for a newly
// active room. Expiry force-terminates with time-limit-expired.
func (s *RoomService) startDurationTimerLocked(roomID string) {
	if s.roomDuration <= 0 {
		return
	}
	s.stopDurationTimerLocked(roomID)
	s.timers[roomID] = time.AfterFunc(s.roomDuration, func() {
		if _, err := s.Terminate(context.Background(), roomID, model.EndTimeLimitExpired); err != nil && err != ErrRoomNotFound {
			log.Printf("time-limit termination failed for room %s: %v", roomID, err)
		}
	})
}

func (s *RoomService) stopDurationTimerLocked(roomID string) {
	if t, ok := s.timers[roomID]; ok {
		t.Stop()
		delete(s.timers, roomID)
	}
}

// scheduleRetentionLocked purges a terminal room after the grace interval.
func (s *RoomService) scheduleRetentionLocked(roomID string) {
	if s.retention <= 0 {
		return
	}
	time.AfterFunc(s.retention, func() {
		if err := s.store.DeleteRoom(context.Background(), roomID); err != nil {
			log.Printf("room purge failed for %s: %v", roomID, err)
		}
		if s.cache != nil {
			if err := s.cache.Delete(context.Background(), roomID); err != nil {
				log.Printf("room cache purge failed for %s: %v", roomID, err)
			}
		}
	})
}

func (s *RoomService) writeCache(ctx context.Context, room *model.Room) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, room); err != nil {
		log.Printf("room cache write failed for %s: %v", room.ID, err)
	}
}
