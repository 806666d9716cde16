package repository

import (
	"context"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// SessionStore persists session records. Lookups return (nil, nil) when the
// record does not exist. The registries behave identically whether the store
// is pure memory or durable; only restart survivability differs.
type SessionStore interface {
	UpsertSession(ctx context.Context, session *model.Session) error
	// FindSessionByToken resolves the opaque session id carried in a signed
	// credential.
	FindSessionByToken(ctx context.Context, token string) (*model.Session, error)
	FindActiveSessionByUser(ctx context.Context, userID string) (*model.Session, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// RoomStore persists room records.
type RoomStore interface {
	UpsertRoom(ctx context.Context, room *model.Room) error
	FindRoom(ctx context.Context, id string) (*model.Room, error)
	FindRoomByParticipant(ctx context.Context, sessionID string) (*model.Room, error)
	ListRoomsByState(ctx context.Context, states ...model.RoomStatus) ([]*model.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}
