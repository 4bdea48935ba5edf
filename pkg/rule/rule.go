package rule

import (
	"slices"
)

// Effect is the permission change a rule drives. It is implemented only by
// RoleEffect and CapabilityEffect.
type Effect interface {
	Method() Method
	isEffect()
}

// RoleEffect assigns CurrentRole to members in good standing and ExpiredRole
// to lapsed members.
type RoleEffect struct {
	CurrentRole string
	ExpiredRole string
}

func (RoleEffect) Method() Method { return MethodRole }
func (RoleEffect) isEffect()      {}

// CapabilityEffect grants a capability named after the membership type. The
// name is derived from the configured prefix, so the effect carries no fields.
type CapabilityEffect struct{}

func (CapabilityEffect) Method() Method { return MethodCapability }
func (CapabilityEffect) isEffect()      {}

// Rule maps one membership type to an effect.
type Rule struct {
	MembershipTypeID int
	CurrentStatusIDs []int
	ExpiryStatusIDs  []int
	Effect           Effect
}

// NewRoleRule builds a role-method rule.
func NewRoleRule(typeID int, current, expired []int, currentRole, expiredRole string) Rule {
	return Rule{
		MembershipTypeID: typeID,
		CurrentStatusIDs: current,
		ExpiryStatusIDs:  expired,
		Effect:           RoleEffect{CurrentRole: currentRole, ExpiredRole: expiredRole},
	}
}

// NewCapabilityRule builds a capability-method rule.
func NewCapabilityRule(typeID int, current, expired []int) Rule {
	return Rule{
		MembershipTypeID: typeID,
		CurrentStatusIDs: current,
		ExpiryStatusIDs:  expired,
		Effect:           CapabilityEffect{},
	}
}

// Method returns the method of the rule's effect. A rule without an effect
// reports MethodRole and fails validation.
func (r Rule) Method() Method {
	if r.Effect == nil {
		return MethodRole
	}
	return r.Effect.Method()
}

// Roles returns the role effect and whether the rule is a role rule.
func (r Rule) Roles() (RoleEffect, bool) {
	e, ok := r.Effect.(RoleEffect)
	return e, ok
}

// IsCurrent reports whether statusID is listed as a current status. Any
// status not listed as current is treated as expired.
func (r Rule) IsCurrent(statusID int) bool {
	return slices.Contains(r.CurrentStatusIDs, statusID)
}

// Classify returns the flag for statusID under this rule.
func (r Rule) Classify(statusID int) Flag {
	if r.IsCurrent(statusID) {
		return FlagCurrent
	}
	return FlagExpired
}

// StatusIDs returns every status ID the rule knows about, sorted and without
// duplicates.
func (r Rule) StatusIDs() []int {
	ids := make([]int, 0, len(r.CurrentStatusIDs)+len(r.ExpiryStatusIDs))
	ids = append(ids, r.CurrentStatusIDs...)
	ids = append(ids, r.ExpiryStatusIDs...)
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	r.CurrentStatusIDs = slices.Clone(r.CurrentStatusIDs)
	r.ExpiryStatusIDs = slices.Clone(r.ExpiryStatusIDs)
	return r
}
