package server

import (
	"errors"
	"log"

	"github.com/parley-im/parley/internal/stats"
	"github.com/parley-im/parley/internal/types"
	"github.com/teris-io/shortid"
)

// DeliveryStatus is the outcome of a point-to-point delivery attempt.
// Delivery is best-effort: an unreachable recipient is reported, never
// retried or queued.
type DeliveryStatus int

const (
	Delivered DeliveryStatus = iota
	Unreachable
)

// Router dispatches inbound envelopes by their declared type to the owning
// directory and fans resulting events out to affected live connections.
type Router struct {
	log        *log.Logger
	identities *IdentityDirectory
	registry   *ConnectionRegistry
	rooms      *RoomDirectory
	calls      *CallManager
	stats      stats.Provider
}

func NewRouter(logger *log.Logger, identities *IdentityDirectory, registry *ConnectionRegistry,
	rooms *RoomDirectory, calls *CallManager, statsProvider stats.Provider) *Router {
	return &Router{
		log:        logger,
		identities: identities,
		registry:   registry,
		rooms:      rooms,
		calls:      calls,
		stats:      statsProvider,
	}
}

func (rt *Router) Dispatch(msg *ClientMessage) {
	switch msg.Type {
	case TypeUserRegister:
		rt.handleRegister(msg)
	case TypeUserLogin:
		rt.handleLogin(msg)
	case TypeGetUsers:
		rt.handleGetUsers(msg)
	case TypeSendMessage:
		rt.handleSendMessage(msg)
	case TypeJoinRoom:
		rt.handleJoinRoom(msg)
	case TypeLeaveRoom:
		rt.handleLeaveRoom(msg)
	case TypeInitiateCall:
		rt.handleInitiateCall(msg)
	case TypeAnswerCall:
		rt.handleAnswerCall(msg)
	case TypeRejectCall:
		rt.handleRejectCall(msg)
	case TypeEndCall:
		rt.handleEndCall(msg)
	case TypeWebRTCOffer, TypeWebRTCAnswer, TypeWebRTCCandidate:
		rt.handleSignal(msg)
	case TypeTypingStart, TypeTypingStop:
		rt.handleTyping(msg)
	case TypeUserStatusChange:
		rt.handleStatusChange(msg)
	default:
		rt.log.Printf("dropping message with unknown type %q", msg.Type)
	}
}

// sender resolves the identity bound to the envelope's connection. Every
// handler except register/login requires one; envelopes from unbound
// connections are dropped.
func (rt *Router) sender(msg *ClientMessage) (types.User, bool) {
	if msg.client == nil || msg.client.user.Id == "" {
		rt.log.Printf("dropping %s from unbound connection", msg.Type)
		return types.User{}, false
	}
	return msg.client.user, true
}

func (rt *Router) handleRegister(msg *ClientMessage) {
	if msg.Username == "" {
		rt.log.Println("dropping USER_REGISTER without username")
		return
	}

	user, err := rt.identities.Register(msg.Username, msg.Avatar)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			msg.client.queueMessage(ErrDuplicateIdentityMsg(msg.Username))
		}
		return
	}

	rt.registry.Bind(msg.client, user)
	rt.stats.Incr(stats.RegisteredUsers)

	out := NewEvent(EventUserRegistered)
	out.User = &user
	msg.client.queueMessage(out)

	joined := NewEvent(EventUserJoined)
	joined.User = &user
	rt.broadcastToAll(joined, user.Id)
}

func (rt *Router) handleLogin(msg *ClientMessage) {
	if msg.Username == "" {
		rt.log.Println("dropping USER_LOGIN without username")
		return
	}

	user, err := rt.identities.Reclaim(msg.Username)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			msg.client.queueMessage(ErrIdentityNotFoundMsg(msg.Username))
		}
		return
	}

	rt.registry.Bind(msg.client, user)

	out := NewEvent(EventUserLoggedIn)
	out.User = &user
	msg.client.queueMessage(out)

	joined := NewEvent(EventUserJoined)
	joined.User = &user
	rt.broadcastToAll(joined, user.Id)
}

func (rt *Router) handleGetUsers(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	out := NewEvent(EventUsersList)
	out.Users = rt.identities.List(sender.Id)
	msg.client.queueMessage(out)
}

func (rt *Router) handleSendMessage(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}
	if msg.RoomId == "" && msg.To == "" {
		rt.log.Println("dropping SEND_MESSAGE without recipient")
		return
	}

	message := types.Message{
		Id:        shortid.MustGenerate(),
		From:      sender.Id,
		To:        msg.To,
		RoomId:    msg.RoomId,
		Content:   msg.Content,
		Kind:      msg.Kind,
		Timestamp: msg.Timestamp,
	}

	out := NewEvent(EventNewMessage)
	out.From = sender.Id
	out.Message = &message

	if msg.RoomId != "" {
		if !rt.rooms.Append(msg.RoomId, message) {
			return
		}
		room, _ := rt.rooms.Get(msg.RoomId)
		rt.broadcastToRoom(room, out, sender.Id)
	} else if rt.deliver(msg.To, out) == Unreachable {
		// best-effort: no queueing, no error back to the sender
		rt.log.Printf("recipient %s unreachable, message dropped", msg.To)
	}

	rt.stats.Incr(stats.MessagesRouted)
}

func (rt *Router) handleJoinRoom(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}
	if msg.RoomId == "" {
		rt.log.Println("dropping JOIN_ROOM without room id")
		return
	}

	room, created, added := rt.rooms.Join(msg.RoomId, msg.RoomName, sender.Id)
	if created {
		rt.stats.Incr(stats.ActiveRooms)
	}

	if added {
		joined := NewEvent(EventUserJoinedRoom)
		joined.RoomId = room.Id()
		joined.User = &sender
		rt.broadcastToRoom(room, joined, sender.Id)
	}

	out := NewEvent(EventRoomJoined)
	out.Room = rt.roomSnapshot(room)
	msg.client.queueMessage(out)
}

func (rt *Router) handleLeaveRoom(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	if !rt.rooms.Leave(msg.RoomId, sender.Id) {
		return
	}

	room, _ := rt.rooms.Get(msg.RoomId)
	left := NewEvent(EventUserLeftRoom)
	left.RoomId = msg.RoomId
	left.User = &sender
	rt.broadcastToRoom(room, left, sender.Id)
}

func (rt *Router) handleInitiateCall(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}
	if msg.To == "" && msg.RoomId == "" {
		rt.log.Println("dropping INITIATE_CALL without target or room")
		return
	}

	kind := types.CallKind(msg.CallType)
	switch kind {
	case types.CallAudio, types.CallVideo, types.CallScreen:
	case "":
		kind = types.CallAudio
	default:
		rt.log.Printf("dropping INITIATE_CALL with unknown call type %q", msg.CallType)
		return
	}

	call := rt.calls.Initiate(sender.Id, msg.To, kind, msg.RoomId)
	rt.stats.Incr(stats.ActiveCalls)

	rt.notifyCall(EventIncomingCall, call, sender.Id, sender.Id)

	out := NewEvent(EventCallInitiated)
	out.Call = &call
	out.CallId = call.Id
	msg.client.queueMessage(out)
}

func (rt *Router) handleAnswerCall(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	call, err := rt.calls.Answer(msg.CallId, sender.Id)
	if err != nil {
		rt.log.Printf("ANSWER_CALL %q: %v", msg.CallId, err)
		return
	}

	rt.notifyCall(EventCallAnswered, call, sender.Id, "")
}

func (rt *Router) handleRejectCall(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	call, err := rt.calls.Reject(msg.CallId, sender.Id)
	if err != nil {
		rt.log.Printf("REJECT_CALL %q: %v", msg.CallId, err)
		return
	}
	rt.stats.Decr(stats.ActiveCalls)

	rt.notifyCall(EventCallRejected, call, sender.Id, "")
}

func (rt *Router) handleEndCall(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	call, err := rt.calls.End(msg.CallId, sender.Id)
	if err != nil {
		rt.log.Printf("END_CALL %q: %v", msg.CallId, err)
		return
	}
	rt.stats.Decr(stats.ActiveCalls)

	rt.notifyCall(EventCallEnded, call, sender.Id, "")
}

// handleSignal relays a media-negotiation payload byte-for-byte to the
// resolved recipients, stamping only the sender. The payload's contents
// are never parsed.
func (rt *Router) handleSignal(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	out := NewEvent(msg.Type)
	out.From = sender.Id
	out.CallId = msg.CallId
	out.Payload = msg.Payload

	switch {
	case msg.To != "":
		rt.deliver(msg.To, out)
	case msg.CallId != "":
		participants, ok := rt.calls.Participants(msg.CallId)
		if !ok {
			rt.log.Printf("dropping %s for unknown call %q", msg.Type, msg.CallId)
			return
		}
		for _, p := range participants {
			if p == sender.Id {
				continue
			}
			rt.deliver(p, out)
		}
	default:
		rt.log.Printf("dropping %s without recipient", msg.Type)
		return
	}

	rt.stats.Incr(stats.SignalsRelayed)
}

func (rt *Router) handleTyping(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	out := NewEvent(msg.Type)
	out.From = sender.Id
	out.RoomId = msg.RoomId

	switch {
	case msg.RoomId != "":
		room, ok := rt.rooms.Get(msg.RoomId)
		if !ok {
			return
		}
		rt.broadcastToRoom(room, out, sender.Id)
	case msg.To != "":
		rt.deliver(msg.To, out)
	}
}

func (rt *Router) handleStatusChange(msg *ClientMessage) {
	sender, ok := rt.sender(msg)
	if !ok {
		return
	}

	status := types.PresenceStatus(msg.Status)
	if status != types.StatusOnline && status != types.StatusOffline {
		rt.log.Printf("dropping USER_STATUS_CHANGE with unknown status %q", msg.Status)
		return
	}

	user, ok := rt.identities.SetStatus(sender.Id, status)
	if !ok {
		return
	}
	msg.client.user = user

	out := NewEvent(EventUserStatusChanged)
	out.User = &user
	rt.broadcastToAll(out, user.Id)
}

// HandleDisconnect runs the full disconnect cascade for a closed
// connection: presence goes offline, open calls end, room memberships are
// dropped, and affected participants are notified.
func (rt *Router) HandleDisconnect(c *Client) {
	if c.user.Id == "" {
		return
	}
	identityId := c.user.Id

	user, known := rt.identities.SetStatus(identityId, types.StatusOffline)
	if !known {
		// identity was reclaimed by a newer login; nothing to announce
		user = c.user
	} else {
		out := NewEvent(EventUserLeft)
		out.User = &user
		rt.broadcastToAll(out, identityId)
	}

	for _, call := range rt.calls.TerminateAllFor(identityId) {
		rt.stats.Decr(stats.ActiveCalls)
		rt.notifyCall(EventCallEnded, call, identityId, identityId)
	}

	for _, room := range rt.rooms.RoomsWith(identityId) {
		rt.rooms.Leave(room.Id(), identityId)
		left := NewEvent(EventUserLeftRoom)
		left.RoomId = room.Id()
		left.User = &user
		rt.broadcastToRoom(room, left, identityId)
	}
}

// deliver is best-effort point-to-point delivery to a single identity.
func (rt *Router) deliver(identityId string, msg *ServerMessage) DeliveryStatus {
	c, ok := rt.registry.Resolve(identityId)
	if !ok {
		return Unreachable
	}
	if !c.queueMessage(msg) {
		return Unreachable
	}
	return Delivered
}

// broadcastToRoom delivers to every currently-resolvable participant,
// skipping the excluded sender. Unresolvable participants are skipped.
func (rt *Router) broadcastToRoom(room *Room, msg *ServerMessage, skipId string) {
	for _, id := range room.ParticipantIds() {
		if id == skipId {
			continue
		}
		rt.deliver(id, msg)
	}
}

// broadcastToAll delivers over the full identity directory snapshot.
func (rt *Router) broadcastToAll(msg *ServerMessage, skipId string) {
	for _, user := range rt.identities.List(skipId) {
		rt.deliver(user.Id, msg)
	}
}

func (rt *Router) notifyCall(event MessageType, call types.Call, from, skipId string) {
	out := NewEvent(event)
	out.From = from
	out.CallId = call.Id
	out.Call = &call
	for _, p := range call.Participants {
		if p == skipId {
			continue
		}
		rt.deliver(p, out)
	}
}

func (rt *Router) roomSnapshot(room *Room) *types.Room {
	ids := room.ParticipantIds()
	participants := make([]types.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := rt.identities.Get(id); ok {
			participants = append(participants, user)
		}
	}

	return &types.Room{
		Id:           room.Id(),
		Name:         room.Name(),
		Participants: participants,
		History:      room.History(),
		CreatedAt:    room.createdAt,
	}
}
