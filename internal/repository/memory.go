package repository

import (
	"context"
	"sync"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// MemoryStore is the pure in-memory SessionStore and RoomStore. It hands out
// deep copies so callers can never mutate registry state by reference.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	byUser   map[string]string // userId -> sessionId of the active session
	rooms    map[string]*model.Room
	byMember map[string]string // sessionId -> roomId
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		byUser:   make(map[string]string),
		rooms:    make(map[string]*model.Room),
		byMember: make(map[string]string),
	}
}

func (s *MemoryStore) UpsertSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session.Clone()
	if session.IsActive {
		s.byUser[session.UserID] = session.ID
	} else if s.byUser[session.UserID] == session.ID {
		delete(s.byUser, session.UserID)
	}
	return nil
}

func (s *MemoryStore) FindSessionByToken(_ context.Context, token string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

func (s *MemoryStore) FindActiveSessionByUser(_ context.Context, userID string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUser[userID]
	if !ok {
		return nil, nil
	}
	session, ok := s.sessions[id]
	if !ok || !session.IsActive {
		return nil, nil
	}
	return session.Clone(), nil
}

func (s *MemoryStore) ListSessions(_ context.Context) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session.Clone())
	}
	return out, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		if s.byUser[session.UserID] == id {
			delete(s.byUser, session.UserID)
		}
		delete(s.sessions, id)
	}
	return nil
}

func (s *MemoryStore) UpsertRoom(_ context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.rooms[room.ID]; ok {
		for _, id := range prev.ParticipantIDs() {
			if s.byMember[id] == room.ID {
				delete(s.byMember, id)
			}
		}
	}
	s.rooms[room.ID] = room.Clone()
	if !room.Terminal() {
		for _, id := range room.ParticipantIDs() {
			s.byMember[id] = room.ID
		}
	}
	return nil
}

func (s *MemoryStore) FindRoom(_ context.Context, id string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, nil
	}
	return room.Clone(), nil
}

func (s *MemoryStore) FindRoomByParticipant(_ context.Context, sessionID string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomID, ok := s.byMember[sessionID]
	if !ok {
		return nil, nil
	}
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return room.Clone(), nil
}

func (s *MemoryStore) ListRoomsByState(_ context.Context, states ...model.RoomStatus) ([]*model.Room, error) {
	wanted := make(map[model.RoomStatus]bool, len(states))
	for _, st := range states {
		wanted[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Room
	for _, room := range s.rooms {
		if len(wanted) == 0 || wanted[room.Status] {
			out = append(out, room.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room, ok := s.rooms[id]; ok {
		for _, sid := range room.ParticipantIDs() {
			if s.byMember[sid] == id {
				delete(s.byMember, sid)
			}
		}
		delete(s.rooms, id)
	}
	return nil
}
