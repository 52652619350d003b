package entities

import "time"

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleLibrarian UserRole = "librarian"
)

// User is a staff account allowed to operate the admin console.
type User struct {
	ID               uint       `gorm:"primaryKey" json:"_id"`
	Name             string     `gorm:"size:256" json:"name"`
	Email            string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string     `gorm:"size:255" json:"-"`
	Role             UserRole   `gorm:"size:20" json:"role"`
	FailedLoginCount int        `json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	TokenVersion     int        `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
