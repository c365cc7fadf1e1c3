package model

import (
	"time"
)

// User is an account. PasswordHash never leaves the service layer; handlers
// render users through explicit DTOs.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	IsActive     bool
	Bio          string
	ProfilePic   string
	DateJoined   time.Time
}

// IsAdmin reports whether u may perform administrative actions.
func (u *User) IsAdmin() bool {
	return u != nil && u.IsStaff
}
