package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	msg := NewEvent(EventNewMessage)

	require.NotNil(t, msg, "expected an event to be constructed")
	assert.Equal(t, EventNewMessage, msg.Type, "expected the type to match")
	assert.WithinDuration(t, Now(), msg.Timestamp, time.Second, "expected a fresh timestamp")
}

func TestConnectedEvent(t *testing.T) {
	msg := ConnectedEvent("conn-1")

	assert.Equal(t, EventConnected, msg.Type, "expected a connected event")
	assert.Equal(t, "conn-1", msg.ConnId, "expected the connection id carried")
}

func TestErrDuplicateIdentityMsg(t *testing.T) {
	msg := ErrDuplicateIdentityMsg("alice")

	assert.Equal(t, EventError, msg.Type, "expected an error event")
	assert.Equal(t, http.StatusConflict, msg.Code, "expected a conflict code")
	assert.Contains(t, msg.Error, "alice", "expected the username in the error")
}

func TestErrIdentityNotFoundMsg(t *testing.T) {
	msg := ErrIdentityNotFoundMsg("ghost")

	assert.Equal(t, EventError, msg.Type, "expected an error event")
	assert.Equal(t, http.StatusNotFound, msg.Code, "expected a not-found code")
	assert.Contains(t, msg.Error, "ghost", "expected the username in the error")
}
