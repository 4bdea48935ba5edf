// Package reconcile converges one user's permissions with the full set of
// memberships held by the linked CRM contact.
//
// The Engine resolves each membership against its association rule and
// applies the resulting effect in aggregator order, so that current
// memberships are applied after lapsed ones and win any conflict. Undo
// reverses the effect of a deleted or retyped membership without stripping
// permissions other memberships still justify.
//
// Snapshots and Hooks adapt a CRM event stream (saved, updated, deleted) to
// Sync and Undo calls. A retyped membership carries no deletion signal, so
// the pre-update state is captured and compared after the update.
package reconcile
