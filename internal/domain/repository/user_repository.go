// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for user persistence.
// This allows the application layer to handle specific outcomes without depending on store-specific errors.
var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the store rejects a second user with the same email.
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository defines the operations the account core needs from the user store.
// Every operation is atomic with respect to a single user record.
type UserRepository interface {
	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// Create persists a new user. The store assigns ID and timestamps when they are unset.
	Create(ctx context.Context, user *entity.User) error

	// SetToken replaces the user's active token. A nil token logs the user out.
	SetToken(ctx context.Context, id uuid.UUID, token *string) error
}
