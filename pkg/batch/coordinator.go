// Package batch drives the sync engine across the whole CRM population in
// bounded chunks. Each Step processes one chunk and persists a cursor so
// the next invocation resumes where the last one stopped.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
	"github.com/doodlesbykumbi/membersync/pkg/reconcile"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

const (
	// DefaultBatchSize is used when Params.BatchSize is not positive.
	DefaultBatchSize = 10

	// DefaultCursorKey is the key the cursor is persisted under.
	DefaultCursorKey = "membersync_batch_offset"
)

// ErrChunkFailed is reported when a chunk could not be fetched from the CRM.
// The cursor is left in place so the same offset can be retried.
var ErrChunkFailed = errors.New("chunk failed")

// Params controls a batch run. To is exclusive; zero means no upper bound.
type Params struct {
	From        int  `json:"from"`
	To          int  `json:"to,omitempty"`
	BatchSize   int  `json:"batch_size"`
	CreateUsers bool `json:"create_users"`
	DryRun      bool `json:"dry_run"`
}

func (p Params) withDefaults() Params {
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.From < 0 {
		p.From = 0
	}
	return p
}

// Step is the outcome of processing one chunk.
type Step struct {
	RunID    string             `json:"run_id"`
	Started  bool               `json:"started,omitempty"`
	Finished bool               `json:"finished"`
	Stopped  bool               `json:"stopped,omitempty"`
	Failed   bool               `json:"failed,omitempty"`
	DryRun   bool               `json:"dry_run,omitempty"`
	From     int                `json:"from"`
	To       int                `json:"to"`
	Feedback []reconcile.Result `json:"feedback"`
	Error    string             `json:"error,omitempty"`
	Err      error              `json:"-"`
	Duration time.Duration      `json:"-"`
}

// Recorder is notified of every step and stop. Recorders must not block.
type Recorder interface {
	RecordStep(ctx context.Context, s Step)
}

// Options configures a Coordinator.
type Options struct {
	CursorKey string
	Logger    *slog.Logger
	Recorders []Recorder
}

// Coordinator runs chunks against a persisted cursor.
//
// Steps are serialized within one Coordinator. Separate processes sharing a
// cursor store are not coordinated; re-running a range is safe because
// effect application is idempotent.
type Coordinator struct {
	crm        crm.Client
	dir        directory.Directory
	aggregator *membership.Aggregator
	engine     *reconcile.Engine
	cursors    store.CursorStore
	key        string
	logger     *slog.Logger
	recorders  []Recorder

	stepMu sync.Mutex

	mu    sync.Mutex
	state State
	runID string
}

// NewCoordinator creates a Coordinator. If dir also implements
// directory.Linker, created users are linked to their contact.
func NewCoordinator(
	client crm.Client,
	dir directory.Directory,
	aggregator *membership.Aggregator,
	engine *reconcile.Engine,
	cursors store.CursorStore,
	opts Options,
) *Coordinator {
	if opts.CursorKey == "" {
		opts.CursorKey = DefaultCursorKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Coordinator{
		crm:        client,
		dir:        dir,
		aggregator: aggregator,
		engine:     engine,
		cursors:    cursors,
		key:        opts.CursorKey,
		logger:     opts.Logger,
		recorders:  opts.Recorders,
	}
}

// Step processes the chunk at the cursor. The cursor is created at p.From
// when absent, advanced by p.BatchSize afterwards and deleted once the CRM
// returns nothing or p.To is reached.
//
// Failures of individual contacts are recorded in the feedback. A CRM
// failure yields a failed step with empty feedback and an untouched cursor.
// An error is returned only when the cursor store fails or ctx is done
// before the chunk is fetched. Once fetched, a chunk runs to completion
// even if ctx is cancelled, so the cursor never skips unprocessed contacts.
func (c *Coordinator) Step(ctx context.Context, p Params) (Step, error) {
	if err := ctx.Err(); err != nil {
		return Step{}, err
	}
	c.stepMu.Lock()
	defer c.stepMu.Unlock()

	p = p.withDefaults()
	begin := time.Now()

	offset, ok, err := c.cursors.Get(c.key)
	if err != nil {
		return Step{}, fmt.Errorf("read cursor: %w", err)
	}
	step := Step{DryRun: p.DryRun, Feedback: []reconcile.Result{}}
	if !ok {
		offset = p.From
		if err := c.cursors.Set(c.key, offset); err != nil {
			return Step{}, fmt.Errorf("create cursor: %w", err)
		}
		step.Started = true
		c.setState(StateRunning, uuid.NewString())
		c.logger.Info("batch run started", "run_id", c.currentRunID(), "from", p.From, "to", p.To, "batch_size", p.BatchSize, "dry_run", p.DryRun)
	} else if c.currentRunID() == "" {
		c.setState(StateRunning, uuid.NewString())
	}
	step.RunID = c.currentRunID()
	step.From = offset
	step.To = offset + p.BatchSize

	limit := p.BatchSize
	if p.To > 0 {
		if offset >= p.To {
			return c.finish(ctx, step, begin)
		}
		limit = min(limit, p.To-offset)
		step.To = min(step.To, p.To)
	}

	chunk, err := c.crm.Memberships(ctx, crm.Query{Offset: offset, Limit: limit})
	if err != nil {
		c.logger.Warn("failed to fetch memberships", "run_id", step.RunID, "offset", offset, "error", err)
		step.Failed = true
		step.Err = fmt.Errorf("%w: offset %d: %v", ErrChunkFailed, offset, err)
		step.Error = step.Err.Error()
		return c.record(ctx, step, begin), nil
	}
	if len(chunk) == 0 {
		return c.finish(ctx, step, begin)
	}

	ctx = context.WithoutCancel(ctx)
	for _, contactID := range contactIDs(chunk) {
		step.Feedback = append(step.Feedback, c.processContact(ctx, contactID, p)...)
	}

	_, ok, err = c.cursors.Get(c.key)
	if err != nil {
		return Step{}, fmt.Errorf("read cursor: %w", err)
	}
	if !ok {
		c.logger.Info("batch run stopped during chunk", "run_id", step.RunID, "offset", offset)
		step.Stopped = true
		c.setState(StateStopped, step.RunID)
		return c.record(ctx, step, begin), nil
	}

	next := offset + p.BatchSize
	if p.To > 0 && next >= p.To {
		return c.finish(ctx, step, begin)
	}
	if err := c.cursors.Set(c.key, next); err != nil {
		return Step{}, fmt.Errorf("advance cursor: %w", err)
	}
	return c.record(ctx, step, begin), nil
}

// Run calls Step until the run finishes or is stopped. each, if not nil,
// receives every step. A failed chunk ends the run with ErrChunkFailed.
func (c *Coordinator) Run(ctx context.Context, p Params, each func(Step)) error {
	for {
		step, err := c.Step(ctx, p)
		if err != nil {
			return err
		}
		if each != nil {
			each(step)
		}
		switch {
		case step.Failed:
			return step.Err
		case step.Finished, step.Stopped:
			return nil
		}
	}
}

// Stop deletes the cursor. A chunk in flight completes its directory writes
// but does not persist its progress.
func (c *Coordinator) Stop(ctx context.Context) error {
	if err := c.cursors.Delete(c.key); err != nil {
		return fmt.Errorf("delete cursor: %w", err)
	}
	runID := c.currentRunID()
	c.setState(StateStopped, runID)
	c.logger.Info("batch run stopped", "run_id", runID)
	for _, r := range c.recorders {
		r.RecordStep(ctx, Step{RunID: runID, Stopped: true})
	}
	return nil
}

// Status reports the persisted cursor and the CRM population size. A CRM
// failure leaves Total at zero.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	offset, ok, err := c.cursors.Get(c.key)
	if err != nil {
		return Status{}, fmt.Errorf("read cursor: %w", err)
	}

	c.mu.Lock()
	status := Status{State: c.state, RunID: c.runID}
	c.mu.Unlock()
	if ok {
		status.State = StateRunning
		status.Offset = offset
	} else if status.State == StateRunning {
		status.State = StateStopped
	}

	total, err := c.crm.MembershipCount(ctx)
	if err != nil {
		c.logger.Warn("failed to count memberships", "error", err)
	}
	status.Total = total
	return status, nil
}

func (c *Coordinator) finish(ctx context.Context, step Step, begin time.Time) (Step, error) {
	if err := c.cursors.Delete(c.key); err != nil {
		return Step{}, fmt.Errorf("delete cursor: %w", err)
	}
	step.Finished = true
	c.setState(StateComplete, step.RunID)
	c.logger.Info("batch run complete", "run_id", step.RunID, "offset", step.From)
	return c.record(ctx, step, begin), nil
}

func (c *Coordinator) record(ctx context.Context, step Step, begin time.Time) Step {
	step.Duration = time.Since(begin)
	for _, r := range c.recorders {
		r.RecordStep(ctx, step)
	}
	return step
}

// processContact syncs one contact and returns its feedback. Errors are
// recorded in the feedback rather than returned.
func (c *Coordinator) processContact(ctx context.Context, contactID int, p Params) []reconcile.Result {
	fail := func(userID int64, err error) []reconcile.Result {
		c.logger.Warn("failed to sync contact", "contact_id", contactID, "error", err)
		return []reconcile.Result{{ContactID: contactID, UserID: userID, Err: err}}
	}

	memberships, err := c.aggregator.ForContact(ctx, contactID, c.engine.Method())
	if err != nil {
		return fail(0, fmt.Errorf("fetch memberships: %w", err))
	}
	applies, err := c.engine.RuleExistsFor(memberships)
	if err != nil {
		return fail(0, err)
	}
	if !applies {
		c.logger.Debug("no rule applies to contact", "contact_id", contactID)
		return nil
	}

	u, isNew, err := c.user(ctx, contactID, p)
	if err != nil {
		return fail(0, err)
	}
	if u == nil {
		return nil
	}

	var results []reconcile.Result
	if p.DryRun {
		results, err = c.engine.Simulate(ctx, memberships)
	} else {
		results, err = c.engine.Sync(ctx, *u, memberships)
	}
	for i := range results {
		results[i].UserID = u.ID
		results[i].IsNewUser = isNew
	}
	if err != nil {
		return append(results, fail(u.ID, err)...)
	}
	return results
}

// user finds the user linked to a contact, creating one if allowed. In a
// dry run the user is an unsaved placeholder.
func (c *Coordinator) user(ctx context.Context, contactID int, p Params) (*directory.User, bool, error) {
	u, err := c.dir.FindUserByContact(ctx, contactID)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, directory.ErrUserNotFound) {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if !p.CreateUsers {
		c.logger.Debug("no user linked to contact", "contact_id", contactID)
		return nil, false, nil
	}

	contact, err := c.crm.Contact(ctx, contactID)
	if err != nil {
		return nil, false, fmt.Errorf("fetch contact: %w", err)
	}
	if p.DryRun {
		placeholder := directory.Placeholder(*contact)
		return &placeholder, true, nil
	}

	u, err = c.dir.CreateUser(ctx, *contact)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	if linker, ok := c.dir.(directory.Linker); ok {
		if err := linker.LinkContact(ctx, contactID, u.ID); err != nil {
			c.logger.Warn("failed to link contact to user", "contact_id", contactID, "user_id", u.ID, "error", err)
		}
	}
	c.logger.Info("created user for contact", "contact_id", contactID, "user_id", u.ID, "login", u.Login)
	return u, true, nil
}

func (c *Coordinator) setState(s State, runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.runID = runID
}

func (c *Coordinator) currentRunID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// contactIDs returns the distinct contacts of a chunk in fetch order.
func contactIDs(chunk []crm.Membership) []int {
	seen := make(map[int]struct{}, len(chunk))
	ids := make([]int, 0, len(chunk))
	for _, m := range chunk {
		if _, ok := seen[m.ContactID]; ok {
			continue
		}
		seen[m.ContactID] = struct{}{}
		ids = append(ids, m.ContactID)
	}
	return ids
}
