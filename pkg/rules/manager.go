// Package rules is the administrative path for association rules. Unlike
// the bare store it validates rules before writing them and notifies
// observers around every save and delete.
package rules

import (
	"context"
	"log/slog"
	"sort"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// Manager validates and stores rules.
type Manager struct {
	store  store.RulesStore
	logger *slog.Logger

	beforeSave   []beforeSaveEntry
	afterSave    []afterSaveEntry
	beforeDelete []beforeDeleteEntry
}

// NewManager creates a Manager. Observers are notified in the order given.
func NewManager(s store.RulesStore, logger *slog.Logger, observers ...Observer) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{store: s, logger: logger}
	for _, o := range observers {
		m.register(o)
	}
	return m
}

// Get returns the rule for a membership type.
func (m *Manager) Get(_ context.Context, typeID int, method rule.Method) (*rule.Rule, error) {
	return m.store.Get(typeID, method)
}

// List returns every rule for method ordered by membership type.
func (m *Manager) List(_ context.Context, method rule.Method) ([]rule.Rule, error) {
	all, err := m.store.All(method)
	if err != nil {
		return nil, err
	}
	out := make([]rule.Rule, 0, len(all))
	for _, r := range all {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MembershipTypeID < out[j].MembershipTypeID
	})
	return out, nil
}

// Save validates and stores r. Validation failures are returned as
// rule.ValidationErrors and nothing is written.
func (m *Manager) Save(ctx context.Context, r rule.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.emitBeforeSave(ctx, r)
	if err := m.store.Save(r); err != nil {
		return err
	}
	m.logger.Info("association rule saved",
		"membership_type_id", r.MembershipTypeID,
		"method", r.Method().String(),
	)
	m.emitAfterSave(ctx, r)
	return nil
}

// Delete removes the rule for a membership type. It returns
// store.ErrRuleNotFound when there is none.
func (m *Manager) Delete(ctx context.Context, typeID int, method rule.Method) error {
	r, err := m.store.Get(typeID, method)
	if err != nil {
		return err
	}
	m.emitBeforeDelete(ctx, *r)
	if err := m.store.Delete(typeID, method); err != nil {
		return err
	}
	m.logger.Info("association rule deleted",
		"membership_type_id", typeID,
		"method", method.String(),
	)
	return nil
}

// Clear removes every rule for method and returns how many were removed.
func (m *Manager) Clear(ctx context.Context, method rule.Method) (int, error) {
	all, err := m.List(ctx, method)
	if err != nil {
		return 0, err
	}
	for _, r := range all {
		m.emitBeforeDelete(ctx, r)
	}
	if err := m.store.Clear(method); err != nil {
		return 0, err
	}
	m.logger.Info("association rules cleared", "method", method.String(), "count", len(all))
	return len(all), nil
}
