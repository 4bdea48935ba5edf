package model

import "time"

// Contact mirrors a CRM contact record.
type Contact struct {
	ID          int    `gorm:"column:id;primaryKey"`
	DisplayName string `gorm:"column:display_name"`
	FirstName   string `gorm:"column:first_name"`
	LastName    string `gorm:"column:last_name"`
	Email       string `gorm:"column:email"`
}

func (Contact) TableName() string {
	return "crm_contacts"
}

// Membership mirrors a CRM membership record.
type Membership struct {
	ID        int        `gorm:"column:id;primaryKey"`
	ContactID int        `gorm:"column:contact_id;index;not null"`
	TypeID    int        `gorm:"column:membership_type_id;not null"`
	StatusID  int        `gorm:"column:status_id;not null"`
	StartDate *time.Time `gorm:"column:start_date"`
	EndDate   *time.Time `gorm:"column:end_date"`
}

func (Membership) TableName() string {
	return "crm_memberships"
}

// MembershipStatus mirrors a CRM membership status definition.
type MembershipStatus struct {
	ID              int    `gorm:"column:id;primaryKey"`
	Name            string `gorm:"column:name"`
	IsCurrentMember bool   `gorm:"column:is_current_member"`
}

func (MembershipStatus) TableName() string {
	return "crm_membership_statuses"
}
