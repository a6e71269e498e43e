package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/parley-im/parley/internal/types"
)

// MessageType tags every envelope exchanged over a connection. The set of
// client tags is closed: the router dispatches with an exhaustive switch and
// drops anything it does not recognize.
type MessageType string

// Client to server envelope tags.
const (
	TypeUserRegister     MessageType = "USER_REGISTER"
	TypeUserLogin        MessageType = "USER_LOGIN"
	TypeGetUsers         MessageType = "GET_USERS"
	TypeSendMessage      MessageType = "SEND_MESSAGE"
	TypeJoinRoom         MessageType = "JOIN_ROOM"
	TypeLeaveRoom        MessageType = "LEAVE_ROOM"
	TypeInitiateCall     MessageType = "INITIATE_CALL"
	TypeAnswerCall       MessageType = "ANSWER_CALL"
	TypeRejectCall       MessageType = "REJECT_CALL"
	TypeEndCall          MessageType = "END_CALL"
	TypeWebRTCOffer      MessageType = "WEBRTC_OFFER"
	TypeWebRTCAnswer     MessageType = "WEBRTC_ANSWER"
	TypeWebRTCCandidate  MessageType = "WEBRTC_ICE_CANDIDATE"
	TypeTypingStart      MessageType = "TYPING_START"
	TypeTypingStop       MessageType = "TYPING_STOP"
	TypeUserStatusChange MessageType = "USER_STATUS_CHANGE"
)

// Server to client events. The WEBRTC_* and TYPING_* tags above are relayed
// to recipients unchanged.
const (
	EventConnected         MessageType = "CONNECTED"
	EventError             MessageType = "ERROR"
	EventUserRegistered    MessageType = "USER_REGISTERED"
	EventUserLoggedIn      MessageType = "USER_LOGGED_IN"
	EventUserJoined        MessageType = "USER_JOINED"
	EventUserLeft          MessageType = "USER_LEFT"
	EventUserStatusChanged MessageType = "USER_STATUS_CHANGED"
	EventUsersList         MessageType = "USERS_LIST"
	EventNewMessage        MessageType = "NEW_MESSAGE"
	EventRoomJoined        MessageType = "ROOM_JOINED"
	EventUserJoinedRoom    MessageType = "USER_JOINED_ROOM"
	EventUserLeftRoom      MessageType = "USER_LEFT_ROOM"
	EventCallInitiated     MessageType = "CALL_INITIATED"
	EventIncomingCall      MessageType = "INCOMING_CALL"
	EventCallAnswered      MessageType = "CALL_ANSWERED"
	EventCallRejected      MessageType = "CALL_REJECTED"
	EventCallEnded         MessageType = "CALL_ENDED"
)

// ClientMessage is the inbound envelope. Only the fields relevant to the
// declared type are populated; Payload is carried through verbatim for the
// signaling relay and never parsed by the server.
type ClientMessage struct {
	Type     MessageType     `json:"type"`
	Username string          `json:"username,omitempty"`
	Avatar   string          `json:"avatar,omitempty"`
	Content  string          `json:"content,omitempty"`
	Kind     string          `json:"message_type,omitempty"`
	To       string          `json:"to,omitempty"`
	RoomId   string          `json:"room_id,omitempty"`
	RoomName string          `json:"room_name,omitempty"`
	CallId   string          `json:"call_id,omitempty"`
	CallType string          `json:"call_type,omitempty"`
	Status   string          `json:"status,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`

	Timestamp time.Time `json:"-"`
	client    *Client
}

// ServerMessage is the outbound event envelope.
type ServerMessage struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Code      int             `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
	ConnId    string          `json:"conn_id,omitempty"`
	From      string          `json:"from,omitempty"`
	RoomId    string          `json:"room_id,omitempty"`
	CallId    string          `json:"call_id,omitempty"`
	User      *types.User     `json:"user,omitempty"`
	Users     []types.User    `json:"users,omitempty"`
	Message   *types.Message  `json:"message,omitempty"`
	Room      *types.Room     `json:"room,omitempty"`
	Call      *types.Call     `json:"call,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(t MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      t,
		Timestamp: Now(),
	}
}

func ConnectedEvent(connId string) *ServerMessage {
	msg := NewEvent(EventConnected)
	msg.ConnId = connId
	return msg
}

func ErrDuplicateIdentityMsg(username string) *ServerMessage {
	msg := NewEvent(EventError)
	msg.Code = http.StatusConflict
	msg.Error = "username " + username + " is already registered"
	return msg
}

func ErrIdentityNotFoundMsg(username string) *ServerMessage {
	msg := NewEvent(EventError)
	msg.Code = http.StatusNotFound
	msg.Error = "no registered user named " + username
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
