package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// RoomCache is a best-effort Redis mirror of live rooms.
type RoomCache interface {
	Set(ctx context.Context, room *model.Room) error
	Get(ctx context.Context, id string) (*model.Room, error)
	Delete(ctx context.Context, id string) error
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomCache(client *redis.Client) RoomCache {
	return &roomCache{
		client: client,
		ttl:    2 * time.Hour,
	}
}

func roomKey(id string) string { return "room:" + id }

func (c *roomCache) Set(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, roomKey(room.ID), data, c.ttl).Err()
}

func (c *roomCache) Get(ctx context.Context, id string) (*model.Room, error) {
	data, err := c.client.Get(ctx, roomKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var room model.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *roomCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, roomKey(id)).Err()
}
