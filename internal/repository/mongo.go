package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

type mongoSessionStore struct {
	collection *mongo.Collection
}

// NewMongoSessionStore returns a durable SessionStore backed by the
// "sessions" collection.
func NewMongoSessionStore(db *mongo.Database) SessionStore {
	return &mongoSessionStore{collection: db.Collection("sessions")}
}

func (s *mongoSessionStore) UpsertSession(ctx context.Context, session *model.Session) error {
	_, err := s.collection.ReplaceOne(
		ctx,
		bson.M{"_id": session.ID},
		session,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *mongoSessionStore) FindSessionByToken(ctx context.Context, token string) (*model.Session, error) {
	var session model.Session
	err := s.collection.FindOne(ctx, bson.M{"_id": token}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *mongoSessionStore) FindActiveSessionByUser(ctx context.Context, userID string) (*model.Session, error) {
	var session model.Session
	err := s.collection.FindOne(ctx, bson.M{"userId": userID, "isActive": true}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *mongoSessionStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *mongoSessionStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

type mongoRoomStore struct {
	collection *mongo.Collection
}

// NewMongoRoomStore returns a durable RoomStore backed by the "rooms"
// collection.
func NewMongoRoomStore(db *mongo.Database) RoomStore {
	return &mongoRoomStore{collection: db.Collection("rooms")}
}

func (s *mongoRoomStore) UpsertRoom(ctx context.Context, room *model.Room) error {
	_, err := s.collection.ReplaceOne(
		ctx,
		bson.M{"_id": room.ID},
		room,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *mongoRoomStore) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *mongoRoomStore) FindRoomByParticipant(ctx context.Context, sessionID string) (*model.Room, error) {
	filter := bson.M{
		"participants.sessionId": sessionID,
		"status":                 bson.M{"$in": []model.RoomStatus{model.RoomWaiting, model.RoomActive}},
	}
	var room model.Room
	err := s.collection.FindOne(ctx, filter).Decode(&room)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *mongoRoomStore) ListRoomsByState(ctx context.Context, states ...model.RoomStatus) ([]*model.Room, error) {
	filter := bson.M{}
	if len(states) > 0 {
		filter["status"] = bson.M{"$in": states}
	}
	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *mongoRoomStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
