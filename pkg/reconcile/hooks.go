package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
)

// Hooks reacts to membership events from the CRM.
type Hooks struct {
	engine     *Engine
	aggregator *membership.Aggregator
	dir        directory.Directory
	snapshots  *Snapshots
	logger     *slog.Logger
}

// NewHooks creates Hooks. Events for contacts without a linked user are
// ignored; batch runs create users.
func NewHooks(engine *Engine, aggregator *membership.Aggregator, dir directory.Directory, snapshots *Snapshots, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		engine:     engine,
		aggregator: aggregator,
		dir:        dir,
		snapshots:  snapshots,
		logger:     logger,
	}
}

// MembershipSaved syncs the contact of a created membership.
func (h *Hooks) MembershipSaved(ctx context.Context, m crm.Membership) ([]Result, error) {
	u, err := h.user(ctx, m.ContactID)
	if u == nil || err != nil {
		return nil, err
	}
	all, err := h.aggregator.ForContact(ctx, m.ContactID, h.engine.Method())
	if err != nil {
		return nil, err
	}
	return h.engine.Sync(ctx, *u, all)
}

// MembershipBeforeUpdate captures m ahead of an update.
func (h *Hooks) MembershipBeforeUpdate(m crm.Membership) {
	h.snapshots.BeforeUpdate(m)
}

// MembershipUpdated syncs the contact of an updated membership. When the
// update changed the membership type, the old type is undone first.
func (h *Hooks) MembershipUpdated(ctx context.Context, m crm.Membership) ([]Result, error) {
	retype, changed := h.snapshots.AfterUpdate(m)
	if !changed {
		return h.MembershipSaved(ctx, m)
	}

	u, err := h.user(ctx, m.ContactID)
	if u == nil || err != nil {
		return nil, err
	}
	all, err := h.aggregator.ForContact(ctx, m.ContactID, h.engine.Method())
	if err != nil {
		return nil, err
	}
	h.logger.Info("membership type changed",
		"membership_id", m.ID,
		"from_type_id", retype.Before.TypeID,
		"to_type_id", retype.After.TypeID,
	)
	results, err := h.engine.Undo(ctx, *u, retype.Before, all)
	if err != nil {
		return results, err
	}
	if !undoResynced(results) {
		synced, err := h.engine.Sync(ctx, *u, all)
		return append(results, synced...), err
	}
	return results, nil
}

// MembershipDeleted undoes a deleted membership.
func (h *Hooks) MembershipDeleted(ctx context.Context, m crm.Membership) ([]Result, error) {
	u, err := h.user(ctx, m.ContactID)
	if u == nil || err != nil {
		return nil, err
	}
	all, err := h.aggregator.ForContact(ctx, m.ContactID, h.engine.Method())
	if err != nil {
		return nil, err
	}
	remaining := make([]crm.Membership, 0, len(all))
	for _, other := range all {
		if other.ID != m.ID {
			remaining = append(remaining, other)
		}
	}
	return h.engine.Undo(ctx, *u, m, remaining)
}

func (h *Hooks) user(ctx context.Context, contactID int) (*directory.User, error) {
	u, err := h.dir.FindUserByContact(ctx, contactID)
	if errors.Is(err, directory.ErrUserNotFound) {
		h.logger.Debug("no user linked to contact", "contact_id", contactID)
		return nil, nil
	}
	return u, err
}

// undoResynced reports whether Undo already synced the remaining
// memberships.
func undoResynced(results []Result) bool {
	for _, r := range results {
		if !r.Undo {
			return true
		}
	}
	return false
}
