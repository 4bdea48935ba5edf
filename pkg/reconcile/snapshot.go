package reconcile

import (
	"sync"
	"time"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
)

// DefaultSnapshotTTL bounds how long a pre-update snapshot waits for its
// matching update.
const DefaultSnapshotTTL = 5 * time.Minute

// Retype describes a membership whose type changed in an update.
type Retype struct {
	Before crm.Membership
	After  crm.Membership
}

type snapshot struct {
	membership crm.Membership
	expires    time.Time
}

// Snapshots holds pre-update copies of memberships keyed by membership ID.
// Entries whose update never arrives are dropped after the TTL.
type Snapshots struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int]snapshot
}

// NewSnapshots creates a snapshot table. A non-positive ttl selects
// DefaultSnapshotTTL.
func NewSnapshots(ttl time.Duration) *Snapshots {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &Snapshots{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int]snapshot),
	}
}

// BeforeUpdate records m as it was before an update.
func (s *Snapshots) BeforeUpdate(m crm.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	s.entries[m.ID] = snapshot{membership: m, expires: now.Add(s.ttl)}
}

// AfterUpdate consumes the snapshot for m and reports whether the
// membership type changed.
func (s *Snapshots) AfterUpdate(m crm.Membership) (Retype, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.entries[m.ID]
	if !ok {
		return Retype{}, false
	}
	delete(s.entries, m.ID)
	if s.now().After(snap.expires) || snap.membership.TypeID == m.TypeID {
		return Retype{}, false
	}
	return Retype{Before: snap.membership, After: m}, true
}

// Sweep drops expired snapshots and returns how many were removed.
func (s *Snapshots) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweep(s.now())
}

// Len returns the number of pending snapshots.
func (s *Snapshots) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Snapshots) sweep(now time.Time) int {
	n := 0
	for id, snap := range s.entries {
		if now.After(snap.expires) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}
