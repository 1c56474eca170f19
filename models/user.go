package models

import (
	"time"
)

// Role is a closed set of account roles
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleProfessor Role = "professor"
	RoleStaff     Role = "staff"
)

// Roles lists every valid role
var Roles = []Role{RoleAdmin, RoleStudent, RoleTeacher, RoleProfessor, RoleStaff}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// UserStatus is the account status
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// Valid reports whether s is a known status
func (s UserStatus) Valid() bool {
	return s == UserActive || s == UserInactive
}

// User represents a canteen portal account (student, teacher, professor, staff or admin)
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	CollegeID    string     `gorm:"uniqueIndex;not null" json:"college_id"` // login identifier
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	Status       UserStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Department   string     `json:"department,omitempty"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may sign in
func (u *User) IsActive() bool {
	return u.Status == UserActive
}
