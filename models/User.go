package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	DefaultRole = RoleUser
)

// User represents an application account that can authenticate with the platform.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `gorm:"type:varchar(16);not null;default:user" json:"role"`
}

// IsAdmin reports whether the account carries the administrator role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether the value names a supported permission tier.
func ValidRole(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// NormalizeRole lowers and trims the value, falling back to the default role
// when the input is not a recognized tier.
func NormalizeRole(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !ValidRole(normalized) {
		return DefaultRole
	}
	return normalized
}
