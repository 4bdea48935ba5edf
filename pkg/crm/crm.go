// Package crm defines the read-only view of the external CRM that the sync
// core consumes, and a client that reads a mirrored copy of the CRM tables.
package crm

import (
	"context"
	"errors"
	"time"
)

// ErrContactNotFound is returned when the CRM has no contact with an ID
var ErrContactNotFound = errors.New("contact not found")

// Membership links a contact to a membership type and status.
type Membership struct {
	ID        int       `json:"id"`
	ContactID int       `json:"contact_id"`
	TypeID    int       `json:"membership_type_id"`
	StatusID  int       `json:"status_id"`
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`

	// IsCurrentStatus is the CRM's own opinion of the status. Locally
	// configured rules always take precedence over it.
	IsCurrentStatus bool `json:"is_current_status"`
}

// Contact is the CRM identity record a membership belongs to.
type Contact struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
}

// Query selects a page of memberships. Zero-valued filters are ignored.
type Query struct {
	Offset    int
	Limit     int
	ContactID int
	TypeID    int
	StatusID  int
}

// Client fetches membership and contact records from the CRM.
//
// Memberships are returned ordered by status ascending then end date
// ascending; no ordering by contact is implied.
type Client interface {
	Memberships(ctx context.Context, q Query) ([]Membership, error)
	MembershipCount(ctx context.Context) (int, error)
	Contact(ctx context.Context, contactID int) (*Contact, error)
}
