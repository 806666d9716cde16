package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomHelpers(t *testing.T) {
	room := &Room{
		ID: "r1",
		Participants: []Participant{
			{SessionID: "a", Ready: true},
			{SessionID: "b"},
		},
		Status: RoomWaiting,
	}

	assert.False(t, room.Terminal())
	assert.False(t, room.AllReady())
	assert.NotNil(t, room.Participant("a"))
	assert.Nil(t, room.Participant("z"))

	other, ok := room.OtherParticipant("a")
	assert.True(t, ok)
	assert.Equal(t, "b", other)

	room.Participants[1].Ready = true
	assert.True(t, room.AllReady())

	room.Status = RoomCompleted
	assert.True(t, room.Terminal())
}

func TestRoomCloneIsDeep(t *testing.T) {
	room := &Room{
		ID:           "r1",
		Participants: []Participant{{SessionID: "a"}, {SessionID: "b"}},
		ChatHistory:  []ChatMessage{{Seq: 1, Text: "hi"}},
	}

	cp := room.Clone()
	cp.Participants[0].SessionID = "mutated"
	cp.ChatHistory[0].Text = "mutated"

	assert.Equal(t, "a", room.Participants[0].SessionID)
	assert.Equal(t, "hi", room.ChatHistory[0].Text)
}

func TestLanguageValidation(t *testing.T) {
	assert.True(t, LangPython.IsValid())
	assert.True(t, LangJavaScript.IsValid())
	assert.False(t, Language("cobol").IsValid())
}
