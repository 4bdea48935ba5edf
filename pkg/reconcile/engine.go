package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/directory"
	"github.com/doodlesbykumbi/membersync/pkg/effect"
	"github.com/doodlesbykumbi/membersync/pkg/membership"
	"github.com/doodlesbykumbi/membersync/pkg/resolve"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// Engine syncs one user at a time for a single sync method.
type Engine struct {
	method   rule.Method
	rules    store.RulesStore
	resolver *resolve.Resolver
	applier  *effect.Applier
	logger   *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(method rule.Method, rules store.RulesStore, applier *effect.Applier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		method:   method,
		rules:    rules,
		resolver: resolve.New(rules),
		applier:  applier,
		logger:   logger,
	}
}

// Method returns the sync method the engine applies.
func (e *Engine) Method() rule.Method {
	return e.method
}

// RuleExistsFor reports whether any of the memberships has a rule. No user
// account is created for a contact without one.
func (e *Engine) RuleExistsFor(memberships []crm.Membership) (bool, error) {
	rules, err := e.rules.All(e.method)
	if err != nil {
		return false, err
	}
	return len(membership.FilterApplicable(memberships, rules)) > 0, nil
}

// Sync applies every membership to u and returns a result per membership
// with a rule. Memberships are re-ordered first, so the caller's order does
// not matter. Invalid rules are recorded in the result and processing
// continues; directory failures abort and are returned.
func (e *Engine) Sync(ctx context.Context, u directory.User, memberships []crm.Membership) ([]Result, error) {
	return e.run(ctx, u, memberships, false)
}

// Simulate resolves memberships exactly like Sync without writing anything.
// Results carry no user ID.
func (e *Engine) Simulate(ctx context.Context, memberships []crm.Membership) ([]Result, error) {
	return e.run(ctx, directory.User{}, memberships, true)
}

func (e *Engine) run(ctx context.Context, u directory.User, memberships []crm.Membership, dryRun bool) ([]Result, error) {
	if len(memberships) == 0 {
		return nil, nil
	}
	rules, err := e.rules.All(e.method)
	if err != nil {
		return nil, err
	}
	if len(membership.FilterApplicable(memberships, rules)) == 0 {
		return nil, nil
	}

	var results []Result
	for _, m := range membership.Order(memberships, rules) {
		res, err := e.resolver.Resolve(m.TypeID, m.StatusID, e.method)
		if errors.Is(err, resolve.ErrNoApplicableRule) {
			e.logger.Debug("skipping membership without rule",
				"membership_id", m.ID,
				"membership_type_id", m.TypeID,
				"method", e.method.String(),
			)
			continue
		}

		result := newResult(u.ID, m)
		if errors.Is(err, resolve.ErrInvalidRule) {
			e.logger.Warn("invalid association rule",
				"membership_id", m.ID,
				"membership_type_id", m.TypeID,
				"error", err,
			)
			result.Err = err
			results = append(results, result)
			continue
		}
		if err != nil {
			return results, err
		}

		result.Flag = res.Flag
		result.Rule = &res.Rule
		if !dryRun {
			if err := e.applier.Apply(ctx, u, res.Rule, res.Flag, m.StatusID); err != nil {
				return results, fmt.Errorf("apply membership %d to user %d: %w", m.ID, u.ID, err)
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// Undo reverses the effect of removed, a membership that was deleted or
// changed type, and re-asserts the permissions justified by remaining.
//
// For role rules, a user left with no applicable membership keeps the
// expired role instead of losing every role from the rule.
func (e *Engine) Undo(ctx context.Context, u directory.User, removed crm.Membership, remaining []crm.Membership) ([]Result, error) {
	r, err := e.resolver.Lookup(removed.TypeID, e.method)
	if errors.Is(err, resolve.ErrNoApplicableRule) {
		e.logger.Debug("nothing to undo for membership without rule",
			"membership_id", removed.ID,
			"membership_type_id", removed.TypeID,
		)
		return nil, nil
	}

	result := newResult(u.ID, removed)
	result.Undo = true
	result.Flag = rule.FlagExpired
	if errors.Is(err, resolve.ErrInvalidRule) {
		result.Err = err
		return []Result{result}, nil
	}
	if err != nil {
		return nil, err
	}
	result.Rule = r

	rules, err := e.rules.All(e.method)
	if err != nil {
		return nil, err
	}
	applicable := membership.FilterApplicable(remaining, rules)

	if _, isRole := r.Roles(); isRole && len(applicable) == 0 {
		if err := e.applier.ReplaceWithExpired(ctx, u, *r); err != nil {
			return nil, fmt.Errorf("undo membership %d for user %d: %w", removed.ID, u.ID, err)
		}
		return []Result{result}, nil
	}

	if err := e.applier.Undo(ctx, u, *r); err != nil {
		return nil, fmt.Errorf("undo membership %d for user %d: %w", removed.ID, u.ID, err)
	}
	results := []Result{result}
	if len(applicable) == 0 {
		return results, nil
	}

	synced, err := e.Sync(ctx, u, remaining)
	return append(results, synced...), err
}
