package server

import (
	"testing"

	"github.com/parley-im/parley/internal/testutil"
	"github.com/parley-im/parley/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCallManager(t *testing.T) (*CallManager, *RoomDirectory) {
	logger := testutil.TestLogger(t)
	rooms := NewRoomDirectory(logger)
	return NewCallManager(logger, rooms), rooms
}

func TestCallManager_DirectLifecycle(t *testing.T) {
	m, _ := newTestCallManager(t)

	call := m.Initiate("alice", "bob", types.CallAudio, "")
	assert.NotEmpty(t, call.Id, "expected a call id")
	assert.Equal(t, types.CallRinging, call.Status, "expected a new call to ring")
	assert.ElementsMatch(t, []string{"alice", "bob"}, call.Participants, "expected the pair as participants")
	assert.Equal(t, 1, m.Count(), "expected one active call")

	answered, err := m.Answer(call.Id, "bob")
	require.NoError(t, err, "expected answer to succeed")
	assert.Equal(t, types.CallActive, answered.Status, "expected the call to go active")
	require.NotNil(t, answered.AnsweredAt, "expected answered timestamp")

	ended, err := m.End(call.Id, "alice")
	require.NoError(t, err, "expected end to succeed")
	assert.Equal(t, types.CallEnded, ended.Status, "expected the call to end")
	assert.Equal(t, "alice", ended.TerminatedBy, "expected the ender recorded")
	require.NotNil(t, ended.EndedAt, "expected ended timestamp")
	assert.Equal(t, 0, m.Count(), "expected the call removed from the active set")

	_, err = m.Answer(call.Id, "bob")
	assert.ErrorIs(t, err, ErrCallNotFound, "expected a stale answer to miss")
}

func TestCallManager_Reject(t *testing.T) {
	m, _ := newTestCallManager(t)

	call := m.Initiate("alice", "bob", types.CallVideo, "")

	rejected, err := m.Reject(call.Id, "bob")
	require.NoError(t, err, "expected reject to succeed")
	assert.Equal(t, types.CallRejected, rejected.Status, "expected rejected status")
	assert.Equal(t, "bob", rejected.TerminatedBy, "expected the rejecter recorded")
	assert.Equal(t, 0, m.Count(), "expected the call removed")

	_, err = m.End(call.Id, "alice")
	assert.ErrorIs(t, err, ErrCallNotFound, "expected no transitions after a terminal state")
}

func TestCallManager_AnswerTwice(t *testing.T) {
	m, _ := newTestCallManager(t)

	call := m.Initiate("alice", "bob", types.CallAudio, "")
	_, err := m.Answer(call.Id, "bob")
	require.NoError(t, err, "expected first answer to succeed")

	_, err = m.Answer(call.Id, "bob")
	assert.ErrorIs(t, err, ErrCallNotFound, "expected answering an active call to be rejected")
}

func TestCallManager_EndFromRinging(t *testing.T) {
	m, _ := newTestCallManager(t)

	call := m.Initiate("alice", "bob", types.CallAudio, "")
	ended, err := m.End(call.Id, "alice")
	require.NoError(t, err, "expected ending a ringing call to be valid")
	assert.Equal(t, types.CallEnded, ended.Status, "expected ended status")
}

func TestCallManager_RoomSnapshot(t *testing.T) {
	m, rooms := newTestCallManager(t)
	rooms.Join("standup", "", "alice")
	rooms.Join("standup", "", "bob")
	rooms.Join("standup", "", "carol")

	call := m.Initiate("alice", "", types.CallVideo, "standup")
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, call.Participants,
		"expected the room membership snapshot")

	// later joiners are not retroactively added
	rooms.Join("standup", "", "dave")
	participants, ok := m.Participants(call.Id)
	require.True(t, ok, "expected the call to be active")
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, participants,
		"expected the snapshot to be immutable")
}

func TestCallManager_UnknownRoomFallsBack(t *testing.T) {
	m, _ := newTestCallManager(t)

	call := m.Initiate("alice", "bob", types.CallAudio, "missing")
	assert.ElementsMatch(t, []string{"alice", "bob"}, call.Participants,
		"expected fallback to the initiator/target pair")
}

func TestCallManager_TerminateAllFor(t *testing.T) {
	m, _ := newTestCallManager(t)

	first := m.Initiate("alice", "bob", types.CallAudio, "")
	m.Answer(first.Id, "bob")
	second := m.Initiate("carol", "alice", types.CallVideo, "")
	third := m.Initiate("carol", "dave", types.CallAudio, "")

	ended := m.TerminateAllFor("alice")
	require.Len(t, ended, 2, "expected both of alice's calls ended")
	for _, call := range ended {
		assert.Equal(t, types.CallEnded, call.Status, "expected ended status")
		assert.Equal(t, "alice", call.TerminatedBy, "expected termination on alice's behalf")
	}

	assert.Equal(t, 1, m.Count(), "expected the unrelated call to survive")
	_, ok := m.Participants(third.Id)
	assert.True(t, ok, "expected carol and dave's call untouched")
	_, ok = m.Participants(second.Id)
	assert.False(t, ok, "expected alice's ringing call gone")
}
