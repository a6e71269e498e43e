package server

import (
	"fmt"
	"testing"

	"github.com/parley-im/parley/internal/testutil"
	"github.com/parley-im/parley/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomDirectory_Join(t *testing.T) {
	t.Run("creates room lazily", func(t *testing.T) {
		d := NewRoomDirectory(testutil.TestLogger(t))

		room, created, added := d.Join("general", "General", "u1")
		assert.True(t, created, "expected the room to be created on first join")
		assert.True(t, added, "expected the identity to be added")
		assert.Equal(t, "general", room.Id(), "expected room id to match")
		assert.Equal(t, "General", room.Name(), "expected room name to match")
		assert.Equal(t, 1, d.Count(), "expected one room")
	})

	t.Run("idempotent membership", func(t *testing.T) {
		d := NewRoomDirectory(testutil.TestLogger(t))

		d.Join("general", "", "u1")
		room, created, added := d.Join("general", "", "u1")
		assert.False(t, created, "expected the room to already exist")
		assert.False(t, added, "expected repeat join to be a no-op")
		assert.Equal(t, []string{"u1"}, room.ParticipantIds(), "expected a single membership")
	})

	t.Run("name defaults to id", func(t *testing.T) {
		d := NewRoomDirectory(testutil.TestLogger(t))

		room, _, _ := d.Join("general", "", "u1")
		assert.Equal(t, "general", room.Name(), "expected name to default to the room id")
	})
}

func TestRoomDirectory_Leave(t *testing.T) {
	d := NewRoomDirectory(testutil.TestLogger(t))
	d.Join("general", "", "u1")
	d.Join("general", "", "u2")

	assert.True(t, d.Leave("general", "u1"), "expected leave to succeed for a member")
	room, _ := d.Get("general")
	assert.Equal(t, []string{"u2"}, room.ParticipantIds(), "expected remaining membership")

	assert.False(t, d.Leave("general", "u1"), "expected leave to be a no-op for a non-member")
	assert.False(t, d.Leave("missing", "u1"), "expected leave to be a no-op for an unknown room")
}

func TestRoomDirectory_AppendBoundsHistory(t *testing.T) {
	d := NewRoomDirectory(testutil.TestLogger(t))
	d.Join("general", "", "u1")

	for i := 0; i < roomHistoryLimit+5; i++ {
		ok := d.Append("general", types.Message{
			Id:      fmt.Sprintf("m%d", i),
			From:    "u1",
			RoomId:  "general",
			Content: fmt.Sprintf("message %d", i),
		})
		require.True(t, ok, "expected append to succeed")
	}

	room, _ := d.Get("general")
	history := room.History()
	require.Len(t, history, roomHistoryLimit, "expected history capped at the limit")
	assert.Equal(t, "m5", history[0].Id, "expected the oldest entries evicted first")
	assert.Equal(t, fmt.Sprintf("m%d", roomHistoryLimit+4), history[len(history)-1].Id,
		"expected the newest entry last")
}

func TestRoomDirectory_AppendUnknownRoom(t *testing.T) {
	d := NewRoomDirectory(testutil.TestLogger(t))

	assert.False(t, d.Append("missing", types.Message{Id: "m1"}),
		"expected append to an unknown room to be dropped")
}

func TestRoomDirectory_Summaries(t *testing.T) {
	d := NewRoomDirectory(testutil.TestLogger(t))
	d.Join("boardroom", "Boardroom", "u1")
	d.Join("annex", "Annex", "u1")
	d.Join("annex", "", "u2")
	d.Append("annex", types.Message{Id: "m1", From: "u1", Content: "hello"})

	summaries := d.Summaries()
	require.Len(t, summaries, 2, "expected a summary per room")
	assert.Equal(t, "annex", summaries[0].Id, "expected summaries ordered by id")
	assert.Equal(t, 2, summaries[0].ParticipantCount, "expected participant count")
	require.NotNil(t, summaries[0].LastMessage, "expected last message for annex")
	assert.Equal(t, "m1", summaries[0].LastMessage.Id, "expected last message id")
	assert.Nil(t, summaries[1].LastMessage, "expected no last message for an empty history")
}

func TestRoomDirectory_RoomsWith(t *testing.T) {
	d := NewRoomDirectory(testutil.TestLogger(t))
	d.Join("a", "", "u1")
	d.Join("b", "", "u1")
	d.Join("c", "", "u2")

	rooms := d.RoomsWith("u1")
	require.Len(t, rooms, 2, "expected both of u1's rooms")
	for _, room := range rooms {
		assert.True(t, room.HasParticipant("u1"), "expected u1 to be a participant")
	}
}
