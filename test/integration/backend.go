package integration

import (
	"context"

	"github.com/doodlesbykumbi/membersync/internal/memory"
	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// Backend holds the CRM records and local state a scenario runs against.
type Backend interface {
	// Reset discards everything written by a previous scenario.
	Reset(ctx context.Context) error

	PutContact(ctx context.Context, c crm.Contact) error
	PutMembership(ctx context.Context, m crm.Membership) error
	DeleteMembership(ctx context.Context, id int) error

	CRM() crm.Client
	Directory() directory.Directory
	Rules() store.RulesStore
	Cursors() store.CursorStore
}

// memoryBackend keeps everything in process.
type memoryBackend struct {
	crm     *memory.CRM
	dir     *memory.Directory
	rules   *memory.RulesStore
	cursors *memory.CursorStore
}

// NewMemoryBackend creates a Backend over the in-memory collaborators.
func NewMemoryBackend() Backend {
	b := &memoryBackend{}
	_ = b.Reset(context.Background())
	return b
}

func (b *memoryBackend) Reset(context.Context) error {
	b.crm = memory.NewCRM()
	b.dir = memory.NewDirectory()
	b.rules = memory.NewRulesStore()
	b.cursors = memory.NewCursorStore()
	return nil
}

func (b *memoryBackend) PutContact(_ context.Context, c crm.Contact) error {
	b.crm.PutContact(c)
	return nil
}

func (b *memoryBackend) PutMembership(_ context.Context, m crm.Membership) error {
	b.crm.PutMembership(m)
	return nil
}

func (b *memoryBackend) DeleteMembership(_ context.Context, id int) error {
	b.crm.DeleteMembership(id)
	return nil
}

func (b *memoryBackend) CRM() crm.Client                { return b.crm }
func (b *memoryBackend) Directory() directory.Directory { return b.dir }
func (b *memoryBackend) Rules() store.RulesStore        { return b.rules }
func (b *memoryBackend) Cursors() store.CursorStore     { return b.cursors }
