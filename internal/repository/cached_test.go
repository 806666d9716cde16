package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

func TestCachedSessionStoreWritesThrough(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	durable := NewMemoryStore()
	s := NewCachedSessionStore(mem, durable)

	require.NoError(t, s.UpsertSession(ctx, testSession("s1", "u1")))

	fromDurable, err := durable.FindSessionByToken(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, fromDurable)
}

func TestCachedSessionStoreReconcilesMisses(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	durable := NewMemoryStore()
	s := NewCachedSessionStore(mem, durable)

	// the row exists only durably, as after a restart
	require.NoError(t, durable.UpsertSession(ctx, testSession("s1", "u1")))

	got, err := s.FindSessionByToken(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)

	inMem, err := mem.FindSessionByToken(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, inMem, "a durable hit repopulates memory")
}

func TestCachedRoomStoreReconcilesByParticipant(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	durable := NewMemoryStore()
	s := NewCachedRoomStore(mem, durable)

	require.NoError(t, durable.UpsertRoom(ctx, testRoom("r1", "sess-a", "sess-b")))

	got, err := s.FindRoomByParticipant(ctx, "sess-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "r1", got.ID)

	inMem, err := mem.FindRoom(ctx, "r1")
	require.NoError(t, err)
	assert.NotNil(t, inMem)
}

func TestCachedRoomStoreListMerges(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	durable := NewMemoryStore()
	s := NewCachedRoomStore(mem, durable)

	require.NoError(t, s.UpsertRoom(ctx, testRoom("r1", "a1", "b1")))
	require.NoError(t, durable.UpsertRoom(ctx, testRoom("r2", "a2", "b2")))

	rooms, err := s.ListRoomsByState(ctx, model.RoomWaiting)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestCachedSessionStoreDeleteRemovesBoth(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	durable := NewMemoryStore()
	s := NewCachedSessionStore(mem, durable)

	require.NoError(t, s.UpsertSession(ctx, testSession("s1", "u1")))
	require.NoError(t, s.DeleteSession(ctx, "s1"))

	got, err := durable.FindSessionByToken(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
