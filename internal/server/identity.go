package server

import (
	"errors"
	"log"
	"slices"
	"strings"

	"github.com/parley-im/parley/internal/types"
	"github.com/teris-io/shortid"
)

var (
	ErrDuplicateIdentity = errors.New("username already registered")
	ErrIdentityNotFound  = errors.New("identity not found")
)

// IdentityDirectory maps registered identities to their profile and
// presence data. Usernames are unique among currently registered
// identities.
type IdentityDirectory struct {
	log      *log.Logger
	byId     map[string]types.User
	idByName map[string]string
}

func NewIdentityDirectory(logger *log.Logger) *IdentityDirectory {
	return &IdentityDirectory{
		log:      logger,
		byId:     make(map[string]types.User),
		idByName: make(map[string]string),
	}
}

func (d *IdentityDirectory) Register(username, avatar string) (types.User, error) {
	if _, ok := d.idByName[username]; ok {
		return types.User{}, ErrDuplicateIdentity
	}

	user := types.User{
		Id:       shortid.MustGenerate(),
		Username: username,
		Avatar:   avatar,
		Status:   types.StatusOnline,
		LastSeen: Now(),
	}
	d.byId[user.Id] = user
	d.idByName[username] = user.Id

	d.log.Printf("registered %q as %s", username, user.Id)
	return user, nil
}

// Reclaim re-binds an existing username on re-login. The identity is
// re-inserted under a fresh id; references to the old id held elsewhere
// (open call records) go stale and degrade to unreachable participants.
func (d *IdentityDirectory) Reclaim(username string) (types.User, error) {
	id, ok := d.idByName[username]
	if !ok {
		return types.User{}, ErrIdentityNotFound
	}

	user := d.byId[id]
	delete(d.byId, id)

	user.Id = shortid.MustGenerate()
	user.Status = types.StatusOnline
	user.LastSeen = Now()
	d.byId[user.Id] = user
	d.idByName[username] = user.Id

	d.log.Printf("reclaimed %q, %s -> %s", username, id, user.Id)
	return user, nil
}

// SetStatus updates presence and last-seen. Unknown ids are a no-op.
func (d *IdentityDirectory) SetStatus(id string, status types.PresenceStatus) (types.User, bool) {
	user, ok := d.byId[id]
	if !ok {
		return types.User{}, false
	}

	user.Status = status
	user.LastSeen = Now()
	d.byId[id] = user
	return user, true
}

func (d *IdentityDirectory) Get(id string) (types.User, bool) {
	user, ok := d.byId[id]
	return user, ok
}

// List returns a snapshot of all registered identities ordered by
// username, optionally excluding one id.
func (d *IdentityDirectory) List(excludeId string) []types.User {
	users := make([]types.User, 0, len(d.byId))
	for id, user := range d.byId {
		if id == excludeId {
			continue
		}
		users = append(users, user)
	}

	slices.SortFunc(users, func(a, b types.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users
}

func (d *IdentityDirectory) Count() int {
	return len(d.byId)
}
