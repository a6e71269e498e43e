package server

import (
	"errors"
	"log"
	"slices"

	"github.com/google/uuid"
	"github.com/parley-im/parley/internal/types"
)

// ErrCallNotFound covers both unknown call ids and calls that already
// reached a terminal state: terminal calls are removed from the active
// set, so a stale transition attempt naturally misses.
var ErrCallNotFound = errors.New("call not found")

// CallManager owns the call-session lifecycle:
//
//	ringing -> active -> ended
//	ringing -> rejected | ended
//
// Participants are captured as an immutable snapshot at initiation so a
// call's addressing cannot shift mid-ring when room membership changes.
type CallManager struct {
	log   *log.Logger
	rooms *RoomDirectory
	calls map[string]*types.Call
}

func NewCallManager(logger *log.Logger, rooms *RoomDirectory) *CallManager {
	return &CallManager{
		log:   logger,
		rooms: rooms,
		calls: make(map[string]*types.Call),
	}
}

// Initiate constructs a new ringing call. With a roomId the participant
// set is the room's membership at this instant; later joiners are not
// retroactively added. Without one it is the initiator/target pair.
func (m *CallManager) Initiate(initiatorId, target string, kind types.CallKind, roomId string) types.Call {
	var participants []string
	if roomId != "" {
		if room, ok := m.rooms.Get(roomId); ok {
			participants = room.ParticipantIds()
		}
	}
	if participants == nil {
		participants = []string{initiatorId, target}
	}
	if !slices.Contains(participants, initiatorId) {
		participants = append(participants, initiatorId)
	}

	call := &types.Call{
		Id:           uuid.NewString(),
		InitiatorId:  initiatorId,
		Participants: participants,
		Kind:         kind,
		Status:       types.CallRinging,
		RoomId:       roomId,
		StartedAt:    Now(),
	}
	m.calls[call.Id] = call

	m.log.Printf("call %s initiated by %s (%s, %d participants)", call.Id, initiatorId, kind, len(participants))
	return snapshotCall(call)
}

// Answer transitions a ringing call to active.
func (m *CallManager) Answer(callId, answererId string) (types.Call, error) {
	call, ok := m.calls[callId]
	if !ok || call.Status != types.CallRinging {
		return types.Call{}, ErrCallNotFound
	}

	now := Now()
	call.Status = types.CallActive
	call.AnsweredAt = &now

	m.log.Printf("call %s answered by %s", callId, answererId)
	return snapshotCall(call), nil
}

// Reject transitions a ringing call to rejected and removes it.
func (m *CallManager) Reject(callId, rejecterId string) (types.Call, error) {
	call, ok := m.calls[callId]
	if !ok || call.Status != types.CallRinging {
		return types.Call{}, ErrCallNotFound
	}

	now := Now()
	call.Status = types.CallRejected
	call.EndedAt = &now
	call.TerminatedBy = rejecterId
	delete(m.calls, callId)

	m.log.Printf("call %s rejected by %s", callId, rejecterId)
	return snapshotCall(call), nil
}

// End transitions a ringing or active call to ended and removes it.
func (m *CallManager) End(callId, enderId string) (types.Call, error) {
	call, ok := m.calls[callId]
	if !ok {
		return types.Call{}, ErrCallNotFound
	}

	now := Now()
	call.Status = types.CallEnded
	call.EndedAt = &now
	call.TerminatedBy = enderId
	delete(m.calls, callId)

	m.log.Printf("call %s ended by %s", callId, enderId)
	return snapshotCall(call), nil
}

// TerminateAllFor ends every call the identity participates in on its
// behalf. Used by the disconnect cascade.
func (m *CallManager) TerminateAllFor(identityId string) []types.Call {
	var ids []string
	for id, call := range m.calls {
		if slices.Contains(call.Participants, identityId) {
			ids = append(ids, id)
		}
	}

	ended := make([]types.Call, 0, len(ids))
	for _, id := range ids {
		call, err := m.End(id, identityId)
		if err != nil {
			continue
		}
		ended = append(ended, call)
	}
	return ended
}

// Participants returns the participant snapshot of an active-set call.
func (m *CallManager) Participants(callId string) ([]string, bool) {
	call, ok := m.calls[callId]
	if !ok {
		return nil, false
	}
	return slices.Clone(call.Participants), true
}

func (m *CallManager) Count() int {
	return len(m.calls)
}

func snapshotCall(call *types.Call) types.Call {
	snapshot := *call
	snapshot.Participants = slices.Clone(call.Participants)
	return snapshot
}
