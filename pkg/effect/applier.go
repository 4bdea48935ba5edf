// Package effect applies the permission changes that a resolved association
// rule calls for. Every write is preceded by a read, so applying the same
// resolution twice leaves the user unchanged and notifies nobody.
package effect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// ErrPlaceholderUser is returned when asked to write to an unsaved user.
var ErrPlaceholderUser = errors.New("cannot modify placeholder user")

// Options configures capability naming.
type Options struct {
	CapabilityPrefix string

	// ContentRestriction mirrors current capability grants onto
	// ContentRestrictionCapability.
	ContentRestriction           bool
	ContentRestrictionCapability string
}

// Applier converges a user's roles and capabilities with a resolution.
type Applier struct {
	dir  directory.Directory
	opts Options
	obs  *observers
}

// New creates an Applier writing to dir. Observers are notified in the
// order given.
func New(dir directory.Directory, opts Options, logger *slog.Logger, obs ...Observer) *Applier {
	if opts.CapabilityPrefix == "" {
		opts.CapabilityPrefix = rule.DefaultCapabilityPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		dir:  dir,
		opts: opts,
		obs:  &observers{list: obs, logger: logger},
	}
}

// Options returns the applier's options.
func (a *Applier) Options() Options {
	return a.opts
}

// Apply dispatches to ApplyCurrent or ApplyExpired.
func (a *Applier) Apply(ctx context.Context, u directory.User, r rule.Rule, flag rule.Flag, statusID int) error {
	if flag == rule.FlagCurrent {
		return a.ApplyCurrent(ctx, u, r, statusID)
	}
	return a.ApplyExpired(ctx, u, r, statusID)
}

// ApplyCurrent grants what a member in good standing holds under r.
func (a *Applier) ApplyCurrent(ctx context.Context, u directory.User, r rule.Rule, statusID int) error {
	if u.IsPlaceholder() {
		return ErrPlaceholderUser
	}
	w := a.writer(ctx, u, r, rule.FlagCurrent, false)

	switch e := r.Effect.(type) {
	case rule.RoleEffect:
		if err := w.role(e.CurrentRole, true); err != nil {
			return err
		}
		return w.role(e.ExpiredRole, false)

	case rule.CapabilityEffect:
		if err := w.capability(a.baseCapability(r), true); err != nil {
			return err
		}
		keep := rule.StatusCapabilityName(a.opts.CapabilityPrefix, r.MembershipTypeID, statusID)
		if err := a.clearStatusCapabilities(w, r, statusID, keep); err != nil {
			return err
		}
		if err := w.capability(keep, true); err != nil {
			return err
		}
		if a.opts.ContentRestriction && a.opts.ContentRestrictionCapability != "" {
			return w.capability(a.opts.ContentRestrictionCapability, true)
		}
		return nil
	}
	return unknownEffect(r)
}

// ApplyExpired withdraws what a lapsed member loses under r. The content
// restriction marker is left alone.
func (a *Applier) ApplyExpired(ctx context.Context, u directory.User, r rule.Rule, statusID int) error {
	if u.IsPlaceholder() {
		return ErrPlaceholderUser
	}
	w := a.writer(ctx, u, r, rule.FlagExpired, false)

	switch e := r.Effect.(type) {
	case rule.RoleEffect:
		if err := w.role(e.ExpiredRole, true); err != nil {
			return err
		}
		return w.role(e.CurrentRole, false)

	case rule.CapabilityEffect:
		if err := w.capability(a.baseCapability(r), false); err != nil {
			return err
		}
		return a.clearStatusCapabilities(w, r, statusID, "")
	}
	return unknownEffect(r)
}

// Undo removes everything r could have granted. For role rules both roles
// are stripped; callers decide whether the user must keep the expired role.
func (a *Applier) Undo(ctx context.Context, u directory.User, r rule.Rule) error {
	if u.IsPlaceholder() {
		return ErrPlaceholderUser
	}
	w := a.writer(ctx, u, r, rule.FlagExpired, true)

	switch e := r.Effect.(type) {
	case rule.RoleEffect:
		if err := w.role(e.CurrentRole, false); err != nil {
			return err
		}
		return w.role(e.ExpiredRole, false)

	case rule.CapabilityEffect:
		if err := w.capability(a.baseCapability(r), false); err != nil {
			return err
		}
		if err := a.clearStatusCapabilities(w, r, 0, ""); err != nil {
			return err
		}
		if a.opts.ContentRestrictionCapability != "" {
			return w.capability(a.opts.ContentRestrictionCapability, false)
		}
		return nil
	}
	return unknownEffect(r)
}

// ReplaceWithExpired swaps the current role of a role rule for its expired
// role, leaving the user with exactly one role from r.
func (a *Applier) ReplaceWithExpired(ctx context.Context, u directory.User, r rule.Rule) error {
	if u.IsPlaceholder() {
		return ErrPlaceholderUser
	}
	e, ok := r.Roles()
	if !ok {
		return fmt.Errorf("replace with expired role: membership type %d is not a role rule", r.MembershipTypeID)
	}
	w := a.writer(ctx, u, r, rule.FlagExpired, true)
	if err := w.role(e.CurrentRole, false); err != nil {
		return err
	}
	return w.role(e.ExpiredRole, true)
}

func (a *Applier) baseCapability(r rule.Rule) string {
	return rule.CapabilityName(a.opts.CapabilityPrefix, r.MembershipTypeID)
}

// clearStatusCapabilities removes every status capability of r's type
// except keep. Candidates are the rule's statuses, the processed status and
// any status capability the user already holds for the type.
func (a *Applier) clearStatusCapabilities(w *writer, r rule.Rule, statusID int, keep string) error {
	names := make([]string, 0, len(r.CurrentStatusIDs)+len(r.ExpiryStatusIDs)+1)
	for _, id := range r.StatusIDs() {
		names = append(names, rule.StatusCapabilityName(a.opts.CapabilityPrefix, r.MembershipTypeID, id))
	}
	if statusID != 0 {
		names = append(names, rule.StatusCapabilityName(a.opts.CapabilityPrefix, r.MembershipTypeID, statusID))
	}

	held, err := a.dir.Capabilities(w.ctx, w.user)
	if err != nil {
		return err
	}
	prefix := a.baseCapability(r) + "_"
	for _, name := range held {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			if _, err := strconv.Atoi(rest); err == nil {
				names = append(names, name)
			}
		}
	}

	slices.Sort(names)
	for _, name := range slices.Compact(names) {
		if name == keep {
			continue
		}
		if err := w.capability(name, false); err != nil {
			return err
		}
	}
	return nil
}

func unknownEffect(r rule.Rule) error {
	return fmt.Errorf("membership type %d: unsupported effect %T", r.MembershipTypeID, r.Effect)
}

// writer performs read-before-write changes for one user and rule and
// notifies observers of each change actually made.
type writer struct {
	ctx  context.Context
	a    *Applier
	user directory.User
	rule rule.Rule
	flag rule.Flag
	undo bool
}

func (a *Applier) writer(ctx context.Context, u directory.User, r rule.Rule, flag rule.Flag, undo bool) *writer {
	return &writer{ctx: ctx, a: a, user: u, rule: r, flag: flag, undo: undo}
}

func (w *writer) role(name string, present bool) error {
	if name == "" {
		return nil
	}
	has, err := w.a.dir.HasRole(w.ctx, w.user, name)
	if err != nil {
		return err
	}
	if has == present {
		return nil
	}
	if present {
		err = w.a.dir.AddRole(w.ctx, w.user, name)
	} else {
		err = w.a.dir.RemoveRole(w.ctx, w.user, name)
	}
	if err != nil {
		return err
	}
	w.emit(KindRole, name, present)
	return nil
}

func (w *writer) capability(name string, present bool) error {
	has, err := w.a.dir.HasCapability(w.ctx, w.user, name)
	if err != nil {
		return err
	}
	if has == present {
		return nil
	}
	if present {
		err = w.a.dir.AddCapability(w.ctx, w.user, name)
	} else {
		err = w.a.dir.RemoveCapability(w.ctx, w.user, name)
	}
	if err != nil {
		return err
	}
	w.emit(KindCapability, name, present)
	return nil
}

func (w *writer) emit(kind Kind, name string, added bool) {
	op := OpRemove
	if added {
		op = OpAdd
	}
	ev := Event{
		User:   w.user,
		Rule:   w.rule,
		Flag:   w.flag,
		Change: Change{Op: op, Kind: kind, Name: name},
	}
	if w.undo {
		w.a.obs.emitUndo(w.ctx, ev)
		return
	}
	w.a.obs.emitApply(w.ctx, ev)
}
