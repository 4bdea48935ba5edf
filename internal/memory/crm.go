package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
)

var _ crm.Client = (*CRM)(nil)

// CRM is an in-memory crm.Client. Memberships are returned in the order the
// CRM would use: status ascending, end date ascending.
type CRM struct {
	mu          sync.RWMutex
	memberships map[int]crm.Membership
	contacts    map[int]crm.Contact

	// Err, when set, is returned by every call.
	Err error
}

// NewCRM creates an empty CRM.
func NewCRM() *CRM {
	return &CRM{
		memberships: make(map[int]crm.Membership),
		contacts:    make(map[int]crm.Contact),
	}
}

// PutContact adds or replaces a contact.
func (c *CRM) PutContact(contact crm.Contact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contacts[contact.ID] = contact
}

// PutMembership adds or replaces a membership.
func (c *CRM) PutMembership(m crm.Membership) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memberships[m.ID] = m
}

// DeleteMembership removes a membership.
func (c *CRM) DeleteMembership(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.memberships, id)
}

func (c *CRM) Memberships(_ context.Context, q crm.Query) ([]crm.Membership, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}

	all := make([]crm.Membership, 0, len(c.memberships))
	for _, m := range c.memberships {
		if q.ContactID != 0 && m.ContactID != q.ContactID {
			continue
		}
		if q.TypeID != 0 && m.TypeID != q.TypeID {
			continue
		}
		if q.StatusID != 0 && m.StatusID != q.StatusID {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.StatusID != b.StatusID {
			return a.StatusID < b.StatusID
		}
		if !a.EndDate.Equal(b.EndDate) {
			return a.EndDate.Before(b.EndDate)
		}
		return a.ID < b.ID
	})

	if q.Offset >= len(all) {
		return []crm.Membership{}, nil
	}
	all = all[q.Offset:]
	if q.Limit > 0 && q.Limit < len(all) {
		all = all[:q.Limit]
	}
	return all, nil
}

func (c *CRM) MembershipCount(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return 0, c.Err
	}
	return len(c.memberships), nil
}

func (c *CRM) Contact(_ context.Context, contactID int) (*crm.Contact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Err != nil {
		return nil, c.Err
	}

	contact, ok := c.contacts[contactID]
	if !ok {
		return nil, crm.ErrContactNotFound
	}
	return &contact, nil
}
