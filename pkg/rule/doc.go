// Package rule defines Association Rules, the configuration unit that maps a
// CRM membership type to either a pair of roles or a capability.
//
// A Rule carries the status IDs that count as "current" and those that count
// as "expired" for its membership type, and exactly one Effect:
//
//   - RoleEffect: a current role and an expired role
//   - CapabilityEffect: a capability derived from the membership type ID
//
// # Capability Naming
//
// Capability names are derived, never configured:
//
//	CapabilityName("civimember_", 5)          // civimember_5
//	StatusCapabilityName("civimember_", 5, 2) // civimember_5_2
//
// # Validation
//
// Validate returns ValidationErrors keyed by field so that admin surfaces can
// report every problem with a rule at once.
package rule
