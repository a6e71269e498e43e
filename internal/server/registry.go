package server

import (
	"log"

	"github.com/parley-im/parley/internal/types"
)

// ConnectionRegistry tracks live connections and the identity-id to
// connection association used for delivery. It is the single source of
// truth for whether an identity is currently reachable; a missing entry is
// not an error, just an unreachable recipient.
type ConnectionRegistry struct {
	log        *log.Logger
	clients    map[*Client]struct{}
	byIdentity map[string]*Client
}

func NewConnectionRegistry(logger *log.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		log:        logger,
		clients:    make(map[*Client]struct{}),
		byIdentity: make(map[string]*Client),
	}
}

func (r *ConnectionRegistry) Add(c *Client) {
	r.clients[c] = struct{}{}
}

// Remove drops the connection and any identity binding it holds.
func (r *ConnectionRegistry) Remove(c *Client) {
	r.Unbind(c)
	delete(r.clients, c)
}

// Bind associates the connection with an identity. A connection holds at
// most one identity; re-binding (login after register on the same socket)
// replaces the previous association.
func (r *ConnectionRegistry) Bind(c *Client, user types.User) {
	r.Unbind(c)
	c.user = user
	r.byIdentity[user.Id] = c
	r.log.Printf("bound connection %s to identity %s (%q)", c.connId, user.Id, user.Username)
}

func (r *ConnectionRegistry) Unbind(c *Client) {
	if c.user.Id == "" {
		return
	}
	if bound, ok := r.byIdentity[c.user.Id]; ok && bound == c {
		delete(r.byIdentity, c.user.Id)
	}
	c.user = types.User{}
}

// Resolve returns the live connection for an identity if currently bound.
func (r *ConnectionRegistry) Resolve(identityId string) (*Client, bool) {
	c, ok := r.byIdentity[identityId]
	return c, ok
}

func (r *ConnectionRegistry) ConnectionCount() int {
	return len(r.clients)
}

func (r *ConnectionRegistry) Clients() []*Client {
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}
