// Package model defines the database models for membersync.
//
// # Core Models
//
//   - AssociationRule: rule configuration keyed by (membership type, method)
//   - BatchCursor: the persisted offset of a multi-step batch run
//   - User, UserRole, UserCapability: the local user directory
//   - ContactLink: the weak 1:1 link between a CRM contact and a user
//   - Contact, Membership, MembershipStatus: a read-only mirror of CRM data
//
// # Database Schema
//
//   - association_rules
//   - batch_cursors
//   - users, user_roles, user_capabilities, contact_links
//   - crm_contacts, crm_memberships, crm_membership_statuses
package model
