package model

import "time"

// User is a local user account.
type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Login     string    `gorm:"column:login;uniqueIndex;not null"`
	Email     string    `gorm:"column:email"`
	Name      string    `gorm:"column:display_name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}

// UserRole grants a role to a user.
type UserRole struct {
	UserID int64  `gorm:"column:user_id;primaryKey"`
	Role   string `gorm:"column:role;primaryKey"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// UserCapability grants a capability to a user.
type UserCapability struct {
	UserID     int64  `gorm:"column:user_id;primaryKey"`
	Capability string `gorm:"column:capability;primaryKey"`
}

func (UserCapability) TableName() string {
	return "user_capabilities"
}
