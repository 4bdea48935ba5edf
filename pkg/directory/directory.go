// Package directory defines the narrow view of the user-account directory
// that the sync core mutates, and a GORM implementation of it.
package directory

import (
	"context"
	"errors"
	"strconv"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
)

// ErrUserNotFound is returned when no user is linked to a contact
var ErrUserNotFound = errors.New("user not found")

// User is a local user account.
type User struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Placeholder returns an unsaved user for simulations. It must never be
// written to a directory.
func Placeholder(c crm.Contact) User {
	return User{Login: LoginFor(c), Email: c.Email, Name: c.DisplayName}
}

// IsPlaceholder reports whether the user has never been saved.
func (u User) IsPlaceholder() bool {
	return u.ID == 0
}

// Directory looks up, creates and mutates user accounts.
type Directory interface {
	// FindUserByContact returns the user linked to a CRM contact.
	// Returns ErrUserNotFound if no user is linked.
	FindUserByContact(ctx context.Context, contactID int) (*User, error)

	// CreateUser creates an account for a CRM contact.
	CreateUser(ctx context.Context, contact crm.Contact) (*User, error)

	AddRole(ctx context.Context, u User, role string) error
	RemoveRole(ctx context.Context, u User, role string) error
	HasRole(ctx context.Context, u User, role string) (bool, error)
	Roles(ctx context.Context, u User) ([]string, error)

	AddCapability(ctx context.Context, u User, capability string) error
	RemoveCapability(ctx context.Context, u User, capability string) error
	HasCapability(ctx context.Context, u User, capability string) (bool, error)
	Capabilities(ctx context.Context, u User) ([]string, error)
}

// Linker records the link between a CRM contact and a user account.
type Linker interface {
	LinkContact(ctx context.Context, contactID int, userID int64) error
}

// LoginFor derives a login name for a contact: the email address when the
// contact has one, otherwise a name built from the contact ID.
func LoginFor(c crm.Contact) string {
	if c.Email != "" {
		return c.Email
	}
	return "contact-" + strconv.Itoa(c.ID)
}
