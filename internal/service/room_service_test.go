package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/repository"
)

func newTestRoomService() *RoomService {
	return NewRoomService(repository.NewMemoryStore(), nil, 0, 0)
}

func createTestRoom(t *testing.T, s *RoomService) *model.Room {
	t.Helper()
	room, err := s.Create(context.Background(), "sess-a", "sess-b", model.DifficultyEasy, "easy-q001")
	require.NoError(t, err)
	return room
}

func TestCreateDefaults(t *testing.T) {
	s := newTestRoomService()
	room := createTestRoom(t, s)

	assert.Equal(t, model.RoomWaiting, room.Status)
	assert.Equal(t, model.LangJavaScript, room.Language)
	require.Len(t, room.Participants, 2)
	assert.False(t, room.Participants[0].Ready)
	assert.False(t, room.Participants[1].Ready)
	assert.Empty(t, room.Code)
}

func TestSetReadyActivatesOnSecondParticipant(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()
	createTestRoom(t, s)

	room, activated, err := s.SetReady(ctx, "sess-a", true)
	require.NoError(t, err)
	assert.False(t, activated)
	assert.Equal(t, model.RoomWaiting, room.Status)

	room, activated, err = s.SetReady(ctx, "sess-b", true)
	require.NoError(t, err)
	assert.True(t, activated)
	assert.Equal(t, model.RoomActive, room.Status)

	// marking ready again must not report a second activation
	_, activated, err = s.SetReady(ctx, "sess-a", true)
	require.NoError(t, err)
	assert.False(t, activated)
}

func TestRemoveParticipantTerminatesRoom(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()

	var endedWith model.EndReason
	s.SetOnEnded(func(room *model.Room) { endedWith = room.EndReason })

	created := createTestRoom(t, s)
	room, err := s.RemoveParticipant(ctx, "sess-a", model.EndUserLeft)
	require.NoError(t, err)

	assert.Equal(t, created.ID, room.ID)
	assert.Equal(t, model.RoomTerminated, room.Status)
	assert.Equal(t, model.EndUserLeft, room.EndReason)
	assert.Equal(t, model.EndUserLeft, endedWith)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, "sess-b", room.Participants[0].SessionID)

	_, err = s.GetByParticipant(ctx, "sess-b")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestEndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()

	calls := 0
	s.SetOnEnded(func(*model.Room) { calls++ })

	room := createTestRoom(t, s)
	first, err := s.End(ctx, room.ID, model.EndCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCompleted, first.Status)
	require.NotNil(t, first.EndedAt)

	second, err := s.Terminate(ctx, room.ID, model.EndAdminTerminated)
	require.NoError(t, err)
	assert.Equal(t, model.RoomCompleted, second.Status, "terminal state and reason are frozen")
	assert.Equal(t, model.EndCompleted, second.EndReason)
	assert.Equal(t, 1, calls)
}

func TestTerminalRoomRejectsMutation(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()

	room := createTestRoom(t, s)
	_, err := s.End(ctx, room.ID, model.EndCompleted)
	require.NoError(t, err)

	assert.ErrorIs(t, s.UpdateCode(ctx, room.ID, "sess-a", "x"), ErrRoomClosed)
	assert.ErrorIs(t, s.UpdateLanguage(ctx, room.ID, "sess-a", model.LangPython), ErrRoomClosed)
	_, err = s.AppendChat(ctx, room.ID, "sess-a", "Ada", "hi")
	assert.ErrorIs(t, err, ErrRoomClosed)
	_, _, err = s.SetReady(ctx, "sess-a", true)
	assert.ErrorIs(t, err, ErrRoomClosed)
}

func TestSharedStateLastWriterWins(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()
	room := createTestRoom(t, s)

	require.NoError(t, s.UpdateCode(ctx, room.ID, "sess-a", "first"))
	require.NoError(t, s.UpdateCode(ctx, room.ID, "sess-b", "second"))
	require.NoError(t, s.UpdateLanguage(ctx, room.ID, "sess-a", model.LangGo))

	got, err := s.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Code)
	assert.Equal(t, model.LangGo, got.Language)

	assert.ErrorIs(t, s.UpdateLanguage(ctx, room.ID, "sess-a", "cobol"), ErrInvalidLanguage)
}

func TestChatSequenceAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()
	room := createTestRoom(t, s)

	for i, text := range []string{"hello", "hi", "ready?"} {
		sender := "sess-a"
		if i%2 == 1 {
			sender = "sess-b"
		}
		msg, err := s.AppendChat(ctx, room.ID, sender, sender, text)
		require.NoError(t, err)
		assert.Equal(t, i+1, msg.Seq)
	}

	history, err := s.ChatHistory(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, msg := range history {
		assert.Equal(t, i+1, msg.Seq)
	}
	assert.Equal(t, "ready?", history[2].Text)
}

func TestRecordTestResultKeepsOnlyLatest(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()
	room := createTestRoom(t, s)

	_, err := s.RecordTestResult(ctx, room.ID, "sess-a", json.RawMessage(`{"passed":1}`))
	require.NoError(t, err)
	result, err := s.RecordTestResult(ctx, room.ID, "sess-b", json.RawMessage(`{"passed":3}`))
	require.NoError(t, err)
	assert.Equal(t, "sess-b", result.SubmittedBy)

	got, err := s.Get(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastTestResult)
	assert.Equal(t, "sess-b", got.LastTestResult.SubmittedBy)
	assert.JSONEq(t, `{"passed":3}`, string(got.LastTestResult.Results))
}

func TestMutationRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()
	room := createTestRoom(t, s)

	assert.ErrorIs(t, s.UpdateCode(ctx, room.ID, "intruder", "x"), ErrNotParticipant)
	_, err := s.AppendChat(ctx, room.ID, "intruder", "X", "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.ErrorIs(t, s.UpdateCode(ctx, "missing-room", "sess-a", "x"), ErrRoomNotFound)
}

func TestActiveRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("a%d", i), fmt.Sprintf("b%d", i), model.DifficultyMedium, "")
		require.NoError(t, err)
	}
	ended, err := s.Create(ctx, "a9", "b9", model.DifficultyMedium, "")
	require.NoError(t, err)
	_, err = s.End(ctx, ended.ID, model.EndCompleted)
	require.NoError(t, err)

	assert.Len(t, s.ActiveRooms(ctx), 3)
}

func TestSweepInactiveTerminatesIdleRooms(t *testing.T) {
	ctx := context.Background()
	s := newTestRoomService()
	room := createTestRoom(t, s)

	assert.Empty(t, s.SweepInactive(ctx, time.Hour))

	time.Sleep(10 * time.Millisecond)
	swept := s.SweepInactive(ctx, 5*time.Millisecond)
	assert.Equal(t, []string{room.ID}, swept)

	got, err := s.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomTerminated, got.Status)
	assert.Equal(t, model.EndInactivity, got.EndReason)
}

func TestDurationTimerExpiresActiveRoom(t *testing.T) {
	ctx := context.Background()
	s := NewRoomService(repository.NewMemoryStore(), nil, 20*time.Millisecond, 0)
	room := createTestRoom(t, s)

	_, _, err := s.SetReady(ctx, "sess-a", true)
	require.NoError(t, err)
	_, activated, err := s.SetReady(ctx, "sess-b", true)
	require.NoError(t, err)
	require.True(t, activated)

	require.Eventually(t, func() bool {
		got, err := s.Get(ctx, room.ID)
		return err == nil && got.Status == model.RoomTerminated && got.EndReason == model.EndTimeLimitExpired
	}, time.Second, 5*time.Millisecond)
}
