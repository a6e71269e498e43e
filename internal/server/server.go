package server

import (
	"context"
	"log"
	"time"

	"github.com/parley-im/parley/internal/stats"
	"github.com/parley-im/parley/internal/types"
)

// SessionServer owns every directory and processes inbound events one at a
// time on a single goroutine. Handlers run to completion before the next
// event is dequeued, so the directories need no locks and never observe a
// torn intermediate state.
type SessionServer struct {
	log   *log.Logger
	stats stats.Provider

	identities *IdentityDirectory
	registry   *ConnectionRegistry
	rooms      *RoomDirectory
	calls      *CallManager
	router     *Router

	registerChan chan *Client
	inboundChan  chan *ClientMessage
	closedChan   chan *Client
	execChan     chan func()
	stop         chan struct{}
	done         chan struct{}
	startedAt    time.Time
}

func NewSessionServer(logger *log.Logger, statsProvider stats.Provider) (*SessionServer, error) {
	identities := NewIdentityDirectory(logger)
	registry := NewConnectionRegistry(logger)
	rooms := NewRoomDirectory(logger)
	calls := NewCallManager(logger, rooms)

	s := &SessionServer{
		log:          logger,
		stats:        statsProvider,
		identities:   identities,
		registry:     registry,
		rooms:        rooms,
		calls:        calls,
		router:       NewRouter(logger, identities, registry, rooms, calls, statsProvider),
		registerChan: make(chan *Client),
		inboundChan:  make(chan *ClientMessage, 256),
		closedChan:   make(chan *Client),
		execChan:     make(chan func()),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		startedAt:    time.Now(),
	}

	for _, name := range []string{
		stats.ActiveConnections,
		stats.RegisteredUsers,
		stats.ActiveRooms,
		stats.ActiveCalls,
		stats.MessagesRouted,
		stats.SignalsRelayed,
	} {
		statsProvider.RegisterMetric(name)
	}

	return s, nil
}

func (s *SessionServer) Run() {
	for {
		select {
		case c := <-s.registerChan:
			s.log.Printf("adding connection %s", c.connId)
			s.registry.Add(c)
			s.stats.Incr(stats.ActiveConnections)
			c.queueMessage(ConnectedEvent(c.connId))
		case msg := <-s.inboundChan:
			s.router.Dispatch(msg)
		case c := <-s.closedChan:
			s.log.Printf("removing connection %s", c.connId)
			s.router.HandleDisconnect(c)
			s.registry.Remove(c)
			s.stats.Decr(stats.ActiveConnections)
			c.stopClient()
		case fn := <-s.execChan:
			fn()
		case <-s.stop:
			for _, c := range s.registry.Clients() {
				c.stopClient()
			}
			close(s.done)
			return
		}
	}
}

// RegisterClient hands a freshly upgraded connection to the session loop.
func (s *SessionServer) RegisterClient(c *Client) {
	select {
	case s.registerChan <- c:
	case <-s.done:
	}
}

func (s *SessionServer) route(msg *ClientMessage) {
	select {
	case s.inboundChan <- msg:
	case <-s.done:
	}
}

func (s *SessionServer) notifyClosed(c *Client) {
	select {
	case s.closedChan <- c:
	case <-s.done:
	}
}

func (s *SessionServer) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down session server")
	close(s.stop)

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// exec runs fn on the session loop and waits for it, so external readers
// never touch the directories concurrently with handlers.
func (s *SessionServer) exec(fn func()) bool {
	ran := make(chan struct{})
	select {
	case s.execChan <- func() { fn(); close(ran) }:
	case <-s.done:
		return false
	}

	select {
	case <-ran:
		return true
	case <-s.done:
		return false
	}
}

// Status reports the counters projection for the status endpoint.
func (s *SessionServer) Status() types.ServerStatus {
	var status types.ServerStatus
	s.exec(func() {
		status = types.ServerStatus{
			Connections: s.registry.ConnectionCount(),
			Users:       s.identities.Count(),
			Rooms:       s.rooms.Count(),
			Calls:       s.calls.Count(),
			UptimeMs:    time.Since(s.startedAt).Milliseconds(),
		}
	})
	return status
}

// Users returns a snapshot of all registered identities.
func (s *SessionServer) Users() []types.User {
	var users []types.User
	s.exec(func() {
		users = s.identities.List("")
	})
	return users
}

// RoomSummaries returns the rooms listing projection.
func (s *SessionServer) RoomSummaries() []types.RoomSummary {
	var summaries []types.RoomSummary
	s.exec(func() {
		summaries = s.rooms.Summaries()
	})
	return summaries
}
