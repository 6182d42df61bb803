package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the caller role carried by a session token.
type Role string

const (
	RoleManager   Role = "MANAGER"
	RoleCaretaker Role = "CARETAKER"
	RoleRelative  Role = "RELATIVE"
)

// User is a minimal read model of the account owned by the users module.
// The notification engine only needs the identity and role.
type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `json:"name"`
	Email     string `gorm:"uniqueIndex" json:"email"`
	Role      Role   `json:"role"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Privileged returns true if the user may act on the shared working set.
func (u *User) Privileged() bool {
	return u.Role == RoleManager || u.Role == RoleCaretaker
}

// Session maps an opaque bearer token to a user. Tokens are issued by the
// auth module; the gateway only resolves them.
type Session struct {
	Token     string `gorm:"primaryKey"`
	UserID    uint
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired returns true if the session is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(time.Now())
}
