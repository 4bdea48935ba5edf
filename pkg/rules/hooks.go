package rules

import (
	"context"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// Observer is the base interface of rule lifecycle observers. Observers opt
// in to events by implementing BeforeSave, AfterSave or BeforeDelete.
type Observer interface {
	Name() string
}

// BeforeSave is called after validation and before a rule is written.
type BeforeSave interface {
	OnBeforeSave(ctx context.Context, r rule.Rule) error
}

// AfterSave is called after a rule is written.
type AfterSave interface {
	OnAfterSave(ctx context.Context, r rule.Rule) error
}

// BeforeDelete is called for each rule about to be deleted, including rules
// removed by Clear.
type BeforeDelete interface {
	OnBeforeDelete(ctx context.Context, r rule.Rule) error
}

type beforeSaveEntry struct {
	name string
	hook BeforeSave
}

type afterSaveEntry struct {
	name string
	hook AfterSave
}

type beforeDeleteEntry struct {
	name string
	hook BeforeDelete
}

func (m *Manager) register(o Observer) {
	name := o.Name()
	if h, ok := o.(BeforeSave); ok {
		m.beforeSave = append(m.beforeSave, beforeSaveEntry{name, h})
	}
	if h, ok := o.(AfterSave); ok {
		m.afterSave = append(m.afterSave, afterSaveEntry{name, h})
	}
	if h, ok := o.(BeforeDelete); ok {
		m.beforeDelete = append(m.beforeDelete, beforeDeleteEntry{name, h})
	}
}

func (m *Manager) emitBeforeSave(ctx context.Context, r rule.Rule) {
	for _, e := range m.beforeSave {
		if err := e.hook.OnBeforeSave(ctx, r); err != nil {
			m.logHookError("OnBeforeSave", e.name, err)
		}
	}
}

func (m *Manager) emitAfterSave(ctx context.Context, r rule.Rule) {
	for _, e := range m.afterSave {
		if err := e.hook.OnAfterSave(ctx, r); err != nil {
			m.logHookError("OnAfterSave", e.name, err)
		}
	}
}

func (m *Manager) emitBeforeDelete(ctx context.Context, r rule.Rule) {
	for _, e := range m.beforeDelete {
		if err := e.hook.OnBeforeDelete(ctx, r); err != nil {
			m.logHookError("OnBeforeDelete", e.name, err)
		}
	}
}

func (m *Manager) logHookError(hook, name string, err error) {
	m.logger.Warn("rule observer hook failed",
		"hook", hook,
		"observer", name,
		"error", err,
	)
}
