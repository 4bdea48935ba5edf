package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
)

var (
	_ directory.Directory = (*Directory)(nil)
	_ directory.Linker    = (*Directory)(nil)
)

// Directory is an in-memory directory.Directory and directory.Linker.
type Directory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]directory.User
	links  map[int]int64
	roles  map[int64]map[string]struct{}
	caps   map[int64]map[string]struct{}

	// Writes counts every successful add or remove call.
	Writes int

	// FailUser, when non-zero, makes every write for that user ID fail
	// with FailErr.
	FailUser int64
	FailErr  error

	// LinkErr, when set, is returned by LinkContact.
	LinkErr error
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		users: make(map[int64]directory.User),
		links: make(map[int]int64),
		roles: make(map[int64]map[string]struct{}),
		caps:  make(map[int64]map[string]struct{}),
	}
}

// AddUser stores a user linked to contactID and returns it.
func (d *Directory) AddUser(contactID int, login string) directory.User {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	u := directory.User{ID: d.nextID, Login: login}
	d.users[u.ID] = u
	if contactID != 0 {
		d.links[contactID] = u.ID
	}
	return u
}

func (d *Directory) FindUserByContact(_ context.Context, contactID int) (*directory.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.links[contactID]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	u := d.users[id]
	return &u, nil
}

func (d *Directory) CreateUser(_ context.Context, contact crm.Contact) (*directory.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	u := directory.User{ID: d.nextID, Login: directory.LoginFor(contact), Email: contact.Email, Name: contact.DisplayName}
	d.users[u.ID] = u
	return &u, nil
}

func (d *Directory) LinkContact(_ context.Context, contactID int, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.LinkErr != nil {
		return d.LinkErr
	}
	d.links[contactID] = userID
	return nil
}

func (d *Directory) AddRole(_ context.Context, u directory.User, role string) error {
	return d.write(u, d.roles, role, true)
}

func (d *Directory) RemoveRole(_ context.Context, u directory.User, role string) error {
	return d.write(u, d.roles, role, false)
}

func (d *Directory) HasRole(_ context.Context, u directory.User, role string) (bool, error) {
	return d.has(u, d.roles, role), nil
}

func (d *Directory) Roles(_ context.Context, u directory.User) ([]string, error) {
	return d.list(u, d.roles), nil
}

func (d *Directory) AddCapability(_ context.Context, u directory.User, capability string) error {
	return d.write(u, d.caps, capability, true)
}

func (d *Directory) RemoveCapability(_ context.Context, u directory.User, capability string) error {
	return d.write(u, d.caps, capability, false)
}

func (d *Directory) HasCapability(_ context.Context, u directory.User, capability string) (bool, error) {
	return d.has(u, d.caps, capability), nil
}

func (d *Directory) Capabilities(_ context.Context, u directory.User) ([]string, error) {
	return d.list(u, d.caps), nil
}

func (d *Directory) write(u directory.User, sets map[int64]map[string]struct{}, name string, add bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.FailUser != 0 && u.ID == d.FailUser {
		return d.FailErr
	}
	set, ok := sets[u.ID]
	if !ok {
		set = make(map[string]struct{})
		sets[u.ID] = set
	}
	if add {
		set[name] = struct{}{}
	} else {
		delete(set, name)
	}
	d.Writes++
	return nil
}

func (d *Directory) has(u directory.User, sets map[int64]map[string]struct{}, name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := sets[u.ID][name]
	return ok
}

func (d *Directory) list(u directory.User, sets map[int64]map[string]struct{}) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]string, 0, len(sets[u.ID]))
	for name := range sets[u.ID] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
