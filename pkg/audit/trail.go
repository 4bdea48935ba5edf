package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/doodlesbykumbi/membersync/pkg/batch"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/rules"
)

// queueSize bounds the events waiting to be persisted. Events logged while
// the queue is full are written to the Logger but not to the Store.
const queueSize = 1024

// Trail writes audit events to a Logger and, if set, a Store. Store writes
// happen on a background goroutine. A nil Trail or a disabled one drops
// every event.
type Trail struct {
	logger  *Logger
	store   *Store
	log     *slog.Logger
	enabled bool

	mu      sync.RWMutex
	closed  bool
	pending chan Event
	drained chan struct{}
}

var (
	_ effect.Observer    = (*Trail)(nil)
	_ rules.BeforeDelete = (*Trail)(nil)
	_ rules.AfterSave    = (*Trail)(nil)
	_ batch.Recorder     = (*Trail)(nil)
)

// NewTrail creates an enabled Trail. store may be nil. Close must be called
// to flush events queued for the store.
func NewTrail(logger *Logger, store *Store, log *slog.Logger) *Trail {
	return newTrail(logger, store, log, queueSize)
}

func newTrail(logger *Logger, store *Store, log *slog.Logger, size int) *Trail {
	if logger == nil {
		logger = NewLogger()
	}
	if log == nil {
		log = slog.Default()
	}
	t := &Trail{logger: logger, store: store, log: log, enabled: true}
	if store != nil {
		t.pending = make(chan Event, size)
		t.drained = make(chan struct{})
		go t.drain()
	}
	return t
}

// SetEnabled turns audit logging on or off.
func (t *Trail) SetEnabled(enabled bool) {
	t.enabled = enabled
}

// Enabled reports whether events are recorded.
func (t *Trail) Enabled() bool {
	return t != nil && t.enabled
}

// Log writes event to the Logger and queues it for the Store. It never
// waits on the Store.
func (t *Trail) Log(event Event) {
	if !t.Enabled() {
		return
	}
	t.logger.Log(event)

	if t.pending == nil {
		return
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.pending <- event:
	default:
		t.log.Warn("audit queue full, event not persisted", "msgid", event.MessageID())
	}
}

func (t *Trail) drain() {
	defer close(t.drained)
	for event := range t.pending {
		if err := t.store.Save(event); err != nil {
			t.log.Warn("failed to save audit event", "msgid", event.MessageID(), "error", err)
		}
	}
}

// Close waits for queued events to be saved and closes the store. Events
// logged afterwards reach the Logger only.
func (t *Trail) Close() error {
	if t == nil {
		return nil
	}
	if t.pending != nil {
		t.mu.Lock()
		if !t.closed {
			t.closed = true
			close(t.pending)
		}
		t.mu.Unlock()
		<-t.drained
	}
	return t.store.Close()
}

func (t *Trail) Name() string { return "audit" }

func (t *Trail) OnAfterSave(_ context.Context, r rule.Rule) error {
	t.Log(ruleEvent(r, "save"))
	return nil
}

func (t *Trail) OnBeforeDelete(_ context.Context, r rule.Rule) error {
	t.Log(ruleEvent(r, "delete"))
	return nil
}

func (t *Trail) OnApply(_ context.Context, ev effect.Event) error {
	t.Log(effectEvent(ev, false))
	return nil
}

func (t *Trail) OnUndo(_ context.Context, ev effect.Event) error {
	t.Log(effectEvent(ev, true))
	return nil
}

// RecordStep logs the start, end, stop or failure of a batch run. Steps in
// the middle of a run are not audited.
func (t *Trail) RecordStep(_ context.Context, s batch.Step) {
	ev := BatchEvent{RunID: s.RunID, From: s.From, To: s.To, DryRun: s.DryRun, ErrorMessage: s.Error}
	for _, r := range s.Feedback {
		if r.Failed() {
			ev.Failed++
		} else {
			ev.Processed++
		}
	}

	if s.Started {
		started := ev
		started.Phase = "started"
		started.Processed, started.Failed = 0, 0
		t.Log(started)
	}
	switch {
	case s.Failed:
		ev.Phase = "failed"
	case s.Stopped:
		ev.Phase = "stopped"
	case s.Finished:
		ev.Phase = "complete"
	default:
		return
	}
	t.Log(ev)
}

func ruleEvent(r rule.Rule, op string) RuleEvent {
	ev := RuleEvent{
		TypeID:    r.MembershipTypeID,
		Method:    r.Method().String(),
		Operation: op,
		Success:   true,
	}
	if roles, ok := r.Roles(); ok {
		ev.CurrentRole = roles.CurrentRole
		ev.ExpiredRole = roles.ExpiredRole
	}
	return ev
}

func effectEvent(ev effect.Event, undo bool) EffectEvent {
	return EffectEvent{
		UserID:     ev.User.ID,
		Login:      ev.User.Login,
		TypeID:     ev.Rule.MembershipTypeID,
		Method:     ev.Rule.Method().String(),
		Flag:       ev.Flag.String(),
		Operation:  string(ev.Change.Op),
		Permission: string(ev.Change.Kind),
		Name:       ev.Change.Name,
		Undo:       undo,
	}
}
