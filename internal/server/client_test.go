package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := newTestClient(t)

		res := c.queueMessage(&ServerMessage{Type: EventNewMessage})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be queued")
		default:
			t.Error("expected a message to be queued, but none was")
		}
	})

	t.Run("channel full", func(t *testing.T) {
		c := newTestClient(t)
		c.send = make(chan *ServerMessage, 1)

		c.send <- &ServerMessage{}
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})

	t.Run("stopped client", func(t *testing.T) {
		c := newTestClient(t)
		c.stopClient()

		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false after stop")
	})
}

func Test_stopClient(t *testing.T) {
	c := newTestClient(t)

	c.stopClient()
	// repeated stops must not panic
	c.stopClient()

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}
