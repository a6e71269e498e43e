package types

import (
	"time"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

type CallKind string

const (
	CallAudio  CallKind = "audio"
	CallVideo  CallKind = "video"
	CallScreen CallKind = "screen"
)

// CallStatus is the lifecycle state of a call session. Values are part of
// the wire format, keep them stable.
type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallActive   CallStatus = "active"
	CallRejected CallStatus = "rejected"
	CallEnded    CallStatus = "ended"
)

type User struct {
	Id       string         `json:"id"`
	Username string         `json:"username"`
	Avatar   string         `json:"avatar,omitempty"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}

type Message struct {
	Id        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	RoomId    string    `json:"room_id,omitempty"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Room struct {
	Id           string    `json:"id"`
	Name         string    `json:"name"`
	Participants []User    `json:"participants"`
	History      []Message `json:"history"`
	CreatedAt    time.Time `json:"created_at"`
}

type RoomSummary struct {
	Id               string    `json:"id"`
	Name             string    `json:"name"`
	ParticipantCount int       `json:"participant_count"`
	LastMessage      *Message  `json:"last_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type Call struct {
	Id           string     `json:"id"`
	InitiatorId  string     `json:"initiator_id"`
	Participants []string   `json:"participants"`
	Kind         CallKind   `json:"kind"`
	Status       CallStatus `json:"status"`
	RoomId       string     `json:"room_id,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	AnsweredAt   *time.Time `json:"answered_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	TerminatedBy string     `json:"terminated_by,omitempty"`
}

// ServerStatus is the read-only counters projection served by the HTTP layer.
type ServerStatus struct {
	Connections int   `json:"connections"`
	Users       int   `json:"users"`
	Rooms       int   `json:"rooms"`
	Calls       int   `json:"calls"`
	UptimeMs    int64 `json:"uptime_ms"`
}
