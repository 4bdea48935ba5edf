// Package resolve classifies a membership status as current or expired under
// the association rule configured for its membership type.
package resolve

import (
	"errors"
	"fmt"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

var (
	// ErrNoApplicableRule is returned when no rule is configured for a
	// membership type. It is a skip condition, not a failure.
	ErrNoApplicableRule = errors.New("no applicable rule")

	// ErrInvalidRule is returned when the configured rule is incomplete.
	ErrInvalidRule = errors.New("invalid rule")
)

// Resolution is the outcome of resolving one membership status.
type Resolution struct {
	Flag rule.Flag
	Rule rule.Rule
}

// Resolver looks up rules and classifies statuses.
type Resolver struct {
	rules store.RulesStore
}

// New creates a Resolver reading from rules.
func New(rules store.RulesStore) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve returns the flag of statusID under the rule for typeID and method.
//
// Any status not listed as current resolves to FlagExpired.
func (r *Resolver) Resolve(typeID, statusID int, method rule.Method) (Resolution, error) {
	found, err := r.Lookup(typeID, method)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Flag: found.Classify(statusID), Rule: *found}, nil
}

// Lookup returns the valid rule for typeID and method.
func (r *Resolver) Lookup(typeID int, method rule.Method) (*rule.Rule, error) {
	found, err := r.rules.Get(typeID, method)
	if errors.Is(err, store.ErrRuleNotFound) {
		return nil, fmt.Errorf("%w: membership type %d (%s)", ErrNoApplicableRule, typeID, method)
	}
	if err != nil {
		return nil, err
	}

	if found.Method() != method {
		return nil, fmt.Errorf("%w: membership type %d: stored as %s, requested %s", ErrInvalidRule, typeID, found.Method(), method)
	}
	if err := found.Validate(); err != nil {
		return nil, fmt.Errorf("%w: membership type %d: %v", ErrInvalidRule, typeID, err)
	}
	return found, nil
}

// Applies reports whether a rule is configured for typeID and method. An
// invalid rule still counts as configured.
func (r *Resolver) Applies(typeID int, method rule.Method) (bool, error) {
	_, err := r.rules.Get(typeID, method)
	if errors.Is(err, store.ErrRuleNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
