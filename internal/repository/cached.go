package repository

import (
	"context"
	"log"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// CachedSessionStore keeps an authoritative in-memory copy in front of a
// durable store. Reads hit memory first and reconcile misses from the durable
// store; durable writes are best-effort and never fail the in-memory
// transition.
type CachedSessionStore struct {
	mem     *MemoryStore
	durable SessionStore
}

func NewCachedSessionStore(mem *MemoryStore, durable SessionStore) *CachedSessionStore {
	return &CachedSessionStore{mem: mem, durable: durable}
}

func (s *CachedSessionStore) UpsertSession(ctx context.Context, session *model.Session) error {
	if err := s.mem.UpsertSession(ctx, session); err != nil {
		return err
	}
	if err := s.durable.UpsertSession(ctx, session); err != nil {
		log.Printf("session store write failed for %s: %v", session.ID, err)
	}
	return nil
}

func (s *CachedSessionStore) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	session, err := s.mem.FindSessionByToken(ctx, token)
	if err != nil || session != nil {
		return session, err
	}
	session, err = s.durable.FindSessionByToken(ctx, token)
	if err != nil {
		log.Printf("session store read failed for %s: %v", token, err)
		return nil, nil
	}
	if session != nil {
		_ = s.mem.UpsertSession(ctx, session)
	}
	return session, nil
}

func (s *CachedSessionStore) FindActiveSessionByUser(ctx context.Context, userID string) (*model.Session, error) {
	session, err := s.mem.FindActiveSessionByUser(ctx, userID)
	if err != nil || session != nil {
		return session, err
	}
	session, err = s.durable.FindActiveSessionByUser(ctx, userID)
	if err != nil {
		log.Printf("session store read failed for user %s: %v", userID, err)
		return nil, nil
	}
	if session != nil {
		_ = s.mem.UpsertSession(ctx, session)
	}
	return session, nil
}

func (s *CachedSessionStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	if rows, err := s.durable.ListSessions(ctx); err != nil {
		log.Printf("session store list failed: %v", err)
	} else {
		for _, row := range rows {
			if cached, _ := s.mem.FindSessionByToken(ctx, row.ID); cached == nil {
				_ = s.mem.UpsertSession(ctx, row)
			}
		}
	}
	return s.mem.ListSessions(ctx)
}

func (s *CachedSessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.mem.DeleteSession(ctx, id); err != nil {
		return err
	}
	if err := s.durable.DeleteSession(ctx, id); err != nil {
		log.Printf("session store delete failed for %s: %v", id, err)
	}
	return nil
}

// CachedRoomStore is the room-side counterpart of CachedSessionStore.
type CachedRoomStore struct {
	mem     *MemoryStore
	durable RoomStore
}

func NewCachedRoomStore(mem *MemoryStore, durable RoomStore) *CachedRoomStore {
	return &CachedRoomStore{mem: mem, durable: durable}
}

func (s *CachedRoomStore) UpsertRoom(ctx context.Context, room *model.Room) error {
	if err := s.mem.UpsertRoom(ctx, room); err != nil {
		return err
	}
	if err := s.durable.UpsertRoom(ctx, room); err != nil {
		log.Printf("room store write failed for %s: %v", room.ID, err)
	}
	return nil
}

func (s *CachedRoomStore) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.mem.FindRoom(ctx, id)
	if err != nil || room != nil {
		return room, err
	}
	room, err = s.durable.FindRoom(ctx, id)
	if err != nil {
		log.Printf("room store read failed for %s: %v", id, err)
		return nil, nil
	}
	if room != nil {
		_ = s.mem.UpsertRoom(ctx, room)
	}
	return room, nil
}

func (s *CachedRoomStore) FindRoomByParticipant(ctx context.Context, sessionID string) (*model.Room, error) {
	room, err := s.mem.FindRoomByParticipant(ctx, sessionID)
	if err != nil || room != nil {
		return room, err
	}
	room, err = s.durable.FindRoomByParticipant(ctx, sessionID)
	if err != nil {
		log.Printf("room store read failed for participant %s: %v", sessionID, err)
		return nil, nil
	}
	if room != nil {
		_ = s.mem.UpsertRoom(ctx, room)
	}
	return room, nil
}

func (s *CachedRoomStore) ListRoomsByState(ctx context.Context, states ...model.RoomStatus) ([]*model.Room, error) {
	if rows, err := s.durable.ListRoomsByState(ctx, states...); err != nil {
		log.Printf("room store list failed: %v", err)
	} else {
		for _, row := range rows {
			if cached, _ := s.mem.FindRoom(ctx, row.ID); cached == nil {
				_ = s.mem.UpsertRoom(ctx, row)
			}
		}
	}
	return s.mem.ListRoomsByState(ctx, states...)
}

func (s *CachedRoomStore) DeleteRoom(ctx context.Context, id string) error {
	if err := s.mem.DeleteRoom(ctx, id); err != nil {
		return err
	}
	if err := s.durable.DeleteRoom(ctx, id); err != nil {
		log.Printf("room store delete failed for %s: %v", id, err)
	}
	return nil
}
