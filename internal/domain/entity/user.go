// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a single account.
// Only the most recently issued token is considered active for the account.
type User struct {
	ID           uuid.UUID    // The Global Unique Identifier (GUID) for the user. Assigned at creation, never changed.
	Email        string       // The login identifier. Unique across all users and stored exactly as submitted.
	PasswordHash string       // The bcrypt digest of the user's password. Never the plaintext.
	ActiveToken  *string      // The bearer token issued on the last login. Nil while logged out.
	Subscription Subscription // The plan label assigned at signup.
	CreatedAt    time.Time    // Timestamp of when this user account was created.
	UpdatedAt    time.Time    // Timestamp of the last modification to this user's data.
}

// IsLoggedIn reports whether the user currently holds an active token.
func (u *User) IsLoggedIn() bool {
	return u.ActiveToken != nil && *u.ActiveToken != ""
}
