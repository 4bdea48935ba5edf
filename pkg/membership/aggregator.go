// Package membership gathers a contact's memberships from the CRM and puts
// them in the order the sync engine applies them.
package membership

import (
	"context"
	"slices"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/rule"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// DefaultPageSize is the number of memberships requested per CRM call.
const DefaultPageSize = 100

// Aggregator fetches, orders and filters memberships.
type Aggregator struct {
	crm      crm.Client
	rules    store.RulesStore
	pageSize int
}

// New creates an Aggregator.
func New(client crm.Client, rules store.RulesStore) *Aggregator {
	return &Aggregator{crm: client, rules: rules, pageSize: DefaultPageSize}
}

// ForContact returns every membership of a contact, ordered for method.
func (a *Aggregator) ForContact(ctx context.Context, contactID int, method rule.Method) ([]crm.Membership, error) {
	var all []crm.Membership
	for offset := 0; ; offset += a.pageSize {
		page, err := a.crm.Memberships(ctx, crm.Query{ContactID: contactID, Offset: offset, Limit: a.pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < a.pageSize {
			break
		}
	}
	return a.Order(all, method)
}

// Order returns memberships sorted lapsed first and current last, then by
// end date and ID. The result does not depend on the input order.
//
// A membership is current when the rule for its type lists its status as
// current; without a rule the CRM's own flag decides.
func (a *Aggregator) Order(memberships []crm.Membership, method rule.Method) ([]crm.Membership, error) {
	rules, err := a.rules.All(method)
	if err != nil {
		return nil, err
	}
	return Order(memberships, rules), nil
}

// Order sorts a copy of memberships using rules keyed by membership type.
func Order(memberships []crm.Membership, rules map[int]rule.Rule) []crm.Membership {
	out := slices.Clone(memberships)
	current := func(m crm.Membership) bool {
		if r, ok := rules[m.TypeID]; ok {
			return r.IsCurrent(m.StatusID)
		}
		return m.IsCurrentStatus
	}
	slices.SortStableFunc(out, func(x, y crm.Membership) int {
		cx, cy := current(x), current(y)
		switch {
		case cx != cy && !cx:
			return -1
		case cx != cy:
			return 1
		}
		if c := x.EndDate.Compare(y.EndDate); c != 0 {
			return c
		}
		return x.ID - y.ID
	})
	return out
}

// FilterApplicable drops memberships whose type has no rule for method.
func (a *Aggregator) FilterApplicable(memberships []crm.Membership, method rule.Method) ([]crm.Membership, error) {
	rules, err := a.rules.All(method)
	if err != nil {
		return nil, err
	}
	return FilterApplicable(memberships, rules), nil
}

// FilterApplicable keeps the memberships whose type has an entry in rules.
func FilterApplicable(memberships []crm.Membership, rules map[int]rule.Rule) []crm.Membership {
	out := make([]crm.Membership, 0, len(memberships))
	for _, m := range memberships {
		if _, ok := rules[m.TypeID]; ok {
			out = append(out, m)
		}
	}
	return out
}

// HasApplicable reports whether any membership has a rule for method. It
// gates the creation of new user accounts.
func (a *Aggregator) HasApplicable(memberships []crm.Membership, method rule.Method) (bool, error) {
	applicable, err := a.FilterApplicable(memberships, method)
	if err != nil {
		return false, err
	}
	return len(applicable) > 0, nil
}
