package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/membersync/pkg/crm"
	"github.com/doodlesbykumbi/membersync/pkg/model"
)

// Ensure GormDirectory implements Directory and Linker
var (
	_ Directory = (*GormDirectory)(nil)
	_ Linker    = (*GormDirectory)(nil)
)

// GormDirectory implements Directory and Linker over the users,
// user_roles, user_capabilities and contact_links tables.
type GormDirectory struct {
	db *gorm.DB
}

// NewGormDirectory creates a new GormDirectory
func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// FindUserByContact returns the user linked to a CRM contact.
func (d *GormDirectory) FindUserByContact(ctx context.Context, contactID int) (*User, error) {
	var row model.User
	err := d.db.WithContext(ctx).
		Joins("JOIN contact_links ON contact_links.user_id = users.id").
		Where("contact_links.contact_id = ?", contactID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user for contact %d: %w", contactID, err)
	}
	return toUser(row), nil
}

// CreateUser creates an account for a CRM contact. When the derived login is
// taken, the contact ID is appended to it.
func (d *GormDirectory) CreateUser(ctx context.Context, contact crm.Contact) (*User, error) {
	row := model.User{
		Login: LoginFor(contact),
		Email: contact.Email,
		Name:  contact.DisplayName,
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&model.User{}).Where("login = ?", row.Login).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			row.Login = row.Login + "-" + strconv.Itoa(contact.ID)
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user for contact %d: %w", contact.ID, err)
	}
	return toUser(row), nil
}

// LinkContact records that contactID belongs to userID.
func (d *GormDirectory) LinkContact(ctx context.Context, contactID int, userID int64) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contact_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id"}),
	}).Create(&model.ContactLink{ContactID: contactID, UserID: userID}).Error
}

// AddRole grants role to u. Granting a held role is a no-op.
func (d *GormDirectory) AddRole(ctx context.Context, u User, role string) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserRole{UserID: u.ID, Role: role}).Error
}

// RemoveRole revokes role from u.
func (d *GormDirectory) RemoveRole(ctx context.Context, u User, role string) error {
	return d.db.WithContext(ctx).Where("user_id = ? AND role = ?", u.ID, role).Delete(&model.UserRole{}).Error
}

// HasRole reports whether u holds role.
func (d *GormDirectory) HasRole(ctx context.Context, u User, role string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.UserRole{}).Where("user_id = ? AND role = ?", u.ID, role).Count(&count).Error
	return count > 0, err
}

// Roles lists the roles held by u.
func (d *GormDirectory) Roles(ctx context.Context, u User) ([]string, error) {
	var roles []string
	err := d.db.WithContext(ctx).Model(&model.UserRole{}).Where("user_id = ?", u.ID).Order("role").Pluck("role", &roles).Error
	return roles, err
}

// AddCapability grants capability to u. Granting a held capability is a no-op.
func (d *GormDirectory) AddCapability(ctx context.Context, u User, capability string) error {
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserCapability{UserID: u.ID, Capability: capability}).Error
}

// RemoveCapability revokes capability from u.
func (d *GormDirectory) RemoveCapability(ctx context.Context, u User, capability string) error {
	return d.db.WithContext(ctx).Where("user_id = ? AND capability = ?", u.ID, capability).Delete(&model.UserCapability{}).Error
}

// HasCapability reports whether u holds capability.
func (d *GormDirectory) HasCapability(ctx context.Context, u User, capability string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&model.UserCapability{}).Where("user_id = ? AND capability = ?", u.ID, capability).Count(&count).Error
	return count > 0, err
}

// Capabilities lists the capabilities held by u.
func (d *GormDirectory) Capabilities(ctx context.Context, u User) ([]string, error) {
	var caps []string
	err := d.db.WithContext(ctx).Model(&model.UserCapability{}).Where("user_id = ?", u.ID).Order("capability").Pluck("capability", &caps).Error
	return caps, err
}

func toUser(row model.User) *User {
	return &User{ID: row.ID, Login: row.Login, Email: row.Email, Name: row.Name}
}
