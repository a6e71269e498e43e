package server

import (
	"testing"
	"time"

	"github.com/parley-im/parley/internal/stats"
	"github.com/parley-im/parley/internal/testutil"
	"github.com/parley-im/parley/internal/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testRig wires a router and its directories the way the session loop
// does, minus the loop itself: handlers are synchronous, so tests drive
// Dispatch directly.
type testRig struct {
	router     *Router
	identities *IdentityDirectory
	registry   *ConnectionRegistry
	rooms      *RoomDirectory
	calls      *CallManager
}

func newTestRig(t *testing.T) *testRig {
	logger := testutil.TestLogger(t)

	st := &stats.MockStatsUpdater{}
	st.On("Incr", mock.Anything).Return()
	st.On("Decr", mock.Anything).Return()

	identities := NewIdentityDirectory(logger)
	registry := NewConnectionRegistry(logger)
	rooms := NewRoomDirectory(logger)
	calls := NewCallManager(logger, rooms)

	return &testRig{
		router:     NewRouter(logger, identities, registry, rooms, calls, st),
		identities: identities,
		registry:   registry,
		rooms:      rooms,
		calls:      calls,
	}
}

func newTestClient(t *testing.T) *Client {
	return &Client{
		log:    testutil.TestLogger(t),
		connId: "test-conn",
		send:   make(chan *ServerMessage, 64),
		stop:   make(chan struct{}),
	}
}

// register runs a USER_REGISTER envelope through the router and returns
// the bound identity.
func (r *testRig) register(t *testing.T, c *Client, username string) types.User {
	t.Helper()

	r.router.Dispatch(&ClientMessage{
		Type:     TypeUserRegister,
		Username: username,
		client:   c,
	})
	require.NotEmpty(t, c.user.Id, "expected %q to be bound after register", username)
	return c.user
}

// drain discards everything queued on the client so far.
func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

// received returns every message currently queued on the client.
func received(c *Client) []*ServerMessage {
	var msgs []*ServerMessage
	for {
		select {
		case msg := <-c.send:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func nextMessage(t *testing.T, c *Client) *ServerMessage {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}
