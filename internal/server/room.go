package server

import (
	"log"
	"slices"
	"strings"
	"time"

	"github.com/parley-im/parley/internal/types"
)

// roomHistoryLimit bounds each room's retained message history; the oldest
// entry is evicted first.
const roomHistoryLimit = 50

type Room struct {
	id           string
	name         string
	participants map[string]struct{}
	history      []types.Message
	createdAt    time.Time
}

func (r *Room) Id() string   { return r.id }
func (r *Room) Name() string { return r.name }

func (r *Room) HasParticipant(identityId string) bool {
	_, ok := r.participants[identityId]
	return ok
}

// ParticipantIds returns a sorted point-in-time copy of the membership.
func (r *Room) ParticipantIds() []string {
	ids := make([]string, 0, len(r.participants))
	for id := range r.participants {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// History returns a copy of the retained messages in creation order.
func (r *Room) History() []types.Message {
	return slices.Clone(r.history)
}

func (r *Room) LastMessage() *types.Message {
	if len(r.history) == 0 {
		return nil
	}
	last := r.history[len(r.history)-1]
	return &last
}

// RoomDirectory owns room membership and history. Rooms are created lazily
// on first join and live for the process lifetime.
type RoomDirectory struct {
	log   *log.Logger
	rooms map[string]*Room
}

func NewRoomDirectory(logger *log.Logger) *RoomDirectory {
	return &RoomDirectory{
		log:   logger,
		rooms: make(map[string]*Room),
	}
}

// Join adds the identity to the room, creating the room first if needed.
// It reports whether the room was created and whether the identity was
// newly added (false when already a member).
func (d *RoomDirectory) Join(roomId, name, identityId string) (room *Room, created, added bool) {
	room, ok := d.rooms[roomId]
	if !ok {
		if name == "" {
			name = roomId
		}
		room = &Room{
			id:           roomId,
			name:         name,
			participants: make(map[string]struct{}),
			createdAt:    Now(),
		}
		d.rooms[roomId] = room
		created = true
		d.log.Printf("created room %q (%s)", name, roomId)
	}

	if _, ok := room.participants[identityId]; !ok {
		room.participants[identityId] = struct{}{}
		added = true
	}
	return room, created, added
}

// Leave removes the identity from the room. A missing room or membership
// is a no-op and reports false.
func (d *RoomDirectory) Leave(roomId, identityId string) bool {
	room, ok := d.rooms[roomId]
	if !ok {
		return false
	}
	if _, ok := room.participants[identityId]; !ok {
		return false
	}

	delete(room.participants, identityId)
	return true
}

// Append adds a message to the room's history, evicting the oldest entry
// past the limit. Messages for unknown rooms are dropped.
func (d *RoomDirectory) Append(roomId string, msg types.Message) bool {
	room, ok := d.rooms[roomId]
	if !ok {
		d.log.Printf("dropping message for unknown room %q", roomId)
		return false
	}

	room.history = append(room.history, msg)
	if len(room.history) > roomHistoryLimit {
		room.history = room.history[len(room.history)-roomHistoryLimit:]
	}
	return true
}

func (d *RoomDirectory) Get(roomId string) (*Room, bool) {
	room, ok := d.rooms[roomId]
	return room, ok
}

// RoomsWith returns every room the identity is currently a member of.
func (d *RoomDirectory) RoomsWith(identityId string) []*Room {
	var rooms []*Room
	for _, room := range d.rooms {
		if room.HasParticipant(identityId) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// Summaries is the read-only projection for the rooms listing endpoint.
func (d *RoomDirectory) Summaries() []types.RoomSummary {
	summaries := make([]types.RoomSummary, 0, len(d.rooms))
	for _, room := range d.rooms {
		summaries = append(summaries, types.RoomSummary{
			Id:               room.id,
			Name:             room.name,
			ParticipantCount: len(room.participants),
			LastMessage:      room.LastMessage(),
			CreatedAt:        room.createdAt,
		})
	}

	slices.SortFunc(summaries, func(a, b types.RoomSummary) int {
		return strings.Compare(a.Id, b.Id)
	})
	return summaries
}

func (d *RoomDirectory) Count() int {
	return len(d.rooms)
}
