package effect

import (
	"context"
	"log/slog"

	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// Op is the direction of a change.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// Kind is the kind of permission a change touches.
type Kind string

const (
	KindRole       Kind = "role"
	KindCapability Kind = "capability"
)

// Change is a single permission write.
type Change struct {
	Op   Op     `json:"op"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
}

// Event describes one change made to a user on behalf of a rule. Flag is
// only meaningful for apply events.
type Event struct {
	User   directory.User
	Rule   rule.Rule
	Flag   rule.Flag
	Change Change
}

// Observer is notified of every change the Applier makes. Observers run on
// the applying goroutine, so they must return quickly and hand slow work
// such as persistence to a queue of their own. Returned errors are logged
// and otherwise ignored.
type Observer interface {
	Name() string
	OnApply(ctx context.Context, ev Event) error
	OnUndo(ctx context.Context, ev Event) error
}

// observers dispatches events to a list of observers in registration order.
type observers struct {
	list   []Observer
	logger *slog.Logger
}

func (o *observers) emitApply(ctx context.Context, ev Event) {
	for _, obs := range o.list {
		if err := obs.OnApply(ctx, ev); err != nil {
			o.logHookError("OnApply", obs.Name(), err)
		}
	}
}

func (o *observers) emitUndo(ctx context.Context, ev Event) {
	for _, obs := range o.list {
		if err := obs.OnUndo(ctx, ev); err != nil {
			o.logHookError("OnUndo", obs.Name(), err)
		}
	}
}

func (o *observers) logHookError(hook, name string, err error) {
	o.logger.Warn("effect observer hook failed",
		"hook", hook,
		"observer", name,
		"error", err,
	)
}

// ObserverFunc adapts a function to an Observer receiving both apply and
// undo events.
type ObserverFunc func(ctx context.Context, ev Event, undo bool) error

func (f ObserverFunc) Name() string { return "func" }

func (f ObserverFunc) OnApply(ctx context.Context, ev Event) error { return f(ctx, ev, false) }

func (f ObserverFunc) OnUndo(ctx context.Context, ev Event) error { return f(ctx, ev, true) }
