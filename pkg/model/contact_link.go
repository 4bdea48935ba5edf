package model

import "time"

// ContactLink records which CRM contact a user account belongs to.
type ContactLink struct {
	ContactID int       `gorm:"column:contact_id;primaryKey"`
	UserID    int64     `gorm:"column:user_id;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ContactLink) TableName() string {
	return "contact_links"
}
