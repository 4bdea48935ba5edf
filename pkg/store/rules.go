package store

import (
	"errors"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// ErrRuleNotFound is returned when no rule is configured for a membership type
var ErrRuleNotFound = errors.New("rule not found")

// RulesStore abstracts Association Rule storage. It performs no validation
// and fires no lifecycle notifications; callers are responsible for both.
type RulesStore interface {
	// Get retrieves the rule for a membership type and method.
	// Returns ErrRuleNotFound if no rule is configured.
	Get(typeID int, method rule.Method) (*rule.Rule, error)

	// All returns every rule for a method keyed by membership type ID.
	All(method rule.Method) (map[int]rule.Rule, error)

	// Save creates or replaces a rule.
	Save(r rule.Rule) error

	// Delete removes the rule for a membership type and method.
	// Returns ErrRuleNotFound if no rule is configured.
	Delete(typeID int, method rule.Method) error

	// Clear removes every rule for a method.
	Clear(method rule.Method) error
}
