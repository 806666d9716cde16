package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/repository"
)

func newTestSessionService() *SessionService {
	return NewSessionService(repository.NewMemoryStore(), nil)
}

func TestCreateInvalidatesPriorSession(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	first, err := s.Create(ctx, "user-1", model.UserData{Name: "Ada"})
	require.NoError(t, err)

	second, err := s.Create(ctx, "user-1", model.UserData{Name: "Ada"})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	assert.Nil(t, s.Get(ctx, first.ID))
	assert.NotNil(t, s.Get(ctx, second.ID))

	byUser := s.GetByUser(ctx, "user-1")
	require.NotNil(t, byUser)
	assert.Equal(t, second.ID, byUser.ID)
}

func TestTransitionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	session, err := s.Create(ctx, "user-1", model.UserData{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionUnassigned, session.State)

	queued, err := s.Transition(ctx, session.ID, model.EventJoinQueue, TransitionData{
		Queue: &model.QueueInfo{Difficulty: model.DifficultyEasy, JoinedAt: time.Now()},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SessionWaiting, queued.State)
	require.NotNil(t, queued.QueueInfo)
	assert.Equal(t, model.DifficultyEasy, queued.QueueInfo.Difficulty)

	paired, err := s.Transition(ctx, session.ID, model.EventPaired, TransitionData{RoomID: "room-1"})
	require.NoError(t, err)
	assert.Equal(t, model.SessionMatched, paired.State)
	assert.Equal(t, "room-1", paired.RoomID)
	assert.Nil(t, paired.QueueInfo, "queue binding must clear on pairing")

	inSession, err := s.Transition(ctx, session.ID, model.EventEnterRoom, TransitionData{})
	require.NoError(t, err)
	assert.Equal(t, model.SessionInSession, inSession.State)

	ended, err := s.Transition(ctx, session.ID, model.EventRoomEnded, TransitionData{})
	require.NoError(t, err)
	assert.Equal(t, model.SessionUnassigned, ended.State)
	assert.Empty(t, ended.RoomID, "room binding must clear when the room ends")
}

func TestTransitionRejectsEventsOutsideTheTable(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	session, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)

	_, err = s.Transition(ctx, session.ID, model.EventPaired, TransitionData{RoomID: "room-1"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.Transition(ctx, session.ID, model.EventEnterRoom, TransitionData{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// the record is untouched after a rejected event
	got := s.Get(ctx, session.ID)
	require.NotNil(t, got)
	assert.Equal(t, model.SessionUnassigned, got.State)
	assert.Empty(t, got.RoomID)

	_, err = s.Transition(ctx, "missing", model.EventJoinQueue, TransitionData{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMatchedCanEndWithoutEnteringRoom(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	session, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)
	_, err = s.Transition(ctx, session.ID, model.EventJoinQueue, TransitionData{Queue: &model.QueueInfo{Difficulty: model.DifficultyEasy}})
	require.NoError(t, err)
	_, err = s.Transition(ctx, session.ID, model.EventPaired, TransitionData{RoomID: "room-1"})
	require.NoError(t, err)

	ended, err := s.Transition(ctx, session.ID, model.EventRoomEnded, TransitionData{})
	require.NoError(t, err)
	assert.Equal(t, model.SessionUnassigned, ended.State)
}

func TestBindingInvariantsUnderRandomEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()
	rng := rand.New(rand.NewSource(42))

	events := []model.SessionEvent{
		model.EventJoinQueue,
		model.EventLeaveQueue,
		model.EventPaired,
		model.EventEnterRoom,
		model.EventRoomEnded,
		model.EventMarkInactive,
	}

	session, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)

	rooms := 0
	for i := 0; i < 500; i++ {
		event := events[rng.Intn(len(events))]
		data := TransitionData{}
		switch event {
		case model.EventJoinQueue:
			data.Queue = &model.QueueInfo{
				Difficulty: model.Difficulties[rng.Intn(len(model.Difficulties))],
				JoinedAt:   time.Now(),
			}
		case model.EventPaired:
			rooms++
			data.RoomID = fmt.Sprintf("room-%d", rooms)
		}

		if _, err := s.Transition(ctx, session.ID, event, data); err != nil {
			require.True(t, errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrSessionNotFound),
				"step %d: unexpected error %v", i, err)
		}

		got := s.Get(ctx, session.ID)
		if got == nil {
			// force-inactivated; continue the walk on a fresh session
			session, err = s.Create(ctx, "user-1", model.UserData{})
			require.NoError(t, err)
			continue
		}

		// roomId is set iff matched/in-session; queueInfo is set iff waiting
		switch got.State {
		case model.SessionWaiting:
			assert.Empty(t, got.RoomID, "step %d", i)
			assert.NotNil(t, got.QueueInfo, "step %d", i)
		case model.SessionMatched, model.SessionInSession:
			assert.NotEmpty(t, got.RoomID, "step %d", i)
			assert.Nil(t, got.QueueInfo, "step %d", i)
		case model.SessionUnassigned:
			assert.Empty(t, got.RoomID, "step %d", i)
			assert.Nil(t, got.QueueInfo, "step %d", i)
		}
	}
}

func TestMarkInactiveClearsBindings(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	session, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)
	_, err = s.Transition(ctx, session.ID, model.EventJoinQueue, TransitionData{Queue: &model.QueueInfo{Difficulty: model.DifficultyEasy}})
	require.NoError(t, err)

	s.MarkInactive(ctx, session.ID)

	assert.Nil(t, s.Get(ctx, session.ID), "inactive sessions read as absent")
	assert.Nil(t, s.GetByUser(ctx, "user-1"))
}

func TestHeartbeat(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	session, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)

	before := s.Get(ctx, session.ID).LastActivity
	time.Sleep(5 * time.Millisecond)
	require.True(t, s.Heartbeat(ctx, session.ID))
	assert.True(t, s.Get(ctx, session.ID).LastActivity.After(before))

	assert.False(t, s.Heartbeat(ctx, "missing"))
}

func TestSweepInactive(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	idle, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	fresh, err := s.Create(ctx, "user-2", model.UserData{})
	require.NoError(t, err)
	require.True(t, s.Heartbeat(ctx, fresh.ID))

	var cleaned []string
	swept := s.SweepInactive(ctx, 8*time.Millisecond, func(id string) {
		cleaned = append(cleaned, id)
	})

	assert.Equal(t, []string{idle.ID}, swept)
	assert.Equal(t, []string{idle.ID}, cleaned)
	assert.Nil(t, s.Get(ctx, idle.ID))
	assert.NotNil(t, s.Get(ctx, fresh.ID))
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	session, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)

	assert.True(t, s.Destroy(ctx, session.ID))
	assert.False(t, s.Destroy(ctx, session.ID))
	assert.Nil(t, s.Get(ctx, session.ID))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionService()

	a, err := s.Create(ctx, "user-1", model.UserData{})
	require.NoError(t, err)
	_, err = s.Create(ctx, "user-2", model.UserData{})
	require.NoError(t, err)
	_, err = s.Transition(ctx, a.ID, model.EventJoinQueue, TransitionData{Queue: &model.QueueInfo{Difficulty: model.DifficultyEasy}})
	require.NoError(t, err)

	stats := s.Stats(ctx)
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 1, stats.ByState[model.SessionWaiting])
	assert.Equal(t, 1, stats.ByState[model.SessionUnassigned])
}
