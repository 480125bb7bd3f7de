package usecase

import (
	"context"

	"accounts/internal/domain/entity"
)

// SessionUsecase resolves bearer tokens to users.
type SessionUsecase interface {
	// Authorize returns the user owning token. Any failure is reported as ErrNotAuthorized.
	Authorize(ctx context.Context, token string) (*entity.User, error)
}
