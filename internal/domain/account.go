package domain

import (
	"strings"
	"time"
)

// Account is the identity record for anyone who can authenticate.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanAuthenticate reports whether the account may log in or hold live tokens.
func (a *Account) CanAuthenticate() bool {
	return a != nil && a.Active
}
