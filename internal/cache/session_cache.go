package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// SessionCache is a best-effort Redis mirror of the session table, used for
// cross-process lookup by token or by user. Misses return (nil, nil).
type SessionCache interface {
	Set(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	GetByUser(ctx context.Context, userID string) (*model.Session, error)
	Delete(ctx context.Context, session *model.Session) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    time.Hour,
	}
}

func sessionKey(id string) string { return "session:" + id }

func userKey(userID string) string { return "user-session:" + userID }

func (c *sessionCache) Set(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, sessionKey(session.ID), data, c.ttl).Err(); err != nil {
		return err
	}
	if session.IsActive {
		return c.client.Set(ctx, userKey(session.UserID), session.ID, c.ttl).Err()
	}
	return c.client.Del(ctx, userKey(session.UserID)).Err()
}

func (c *sessionCache) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) GetByUser(ctx context.Context, userID string) (*model.Session, error) {
	id, err := c.client.Get(ctx, userKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, id)
}

func (c *sessionCache) Delete(ctx context.Context, session *model.Session) error {
	if err := c.client.Del(ctx, sessionKey(session.ID)).Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, userKey(session.UserID)).Err()
}
