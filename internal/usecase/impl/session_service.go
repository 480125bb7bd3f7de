package impl

import (
	"context"
	"crypto/subtle"
	"log/slog"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	userRepo     repository.UserRepository
	tokenService service.TokenService
	logger       *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		userRepo:     params.UserRepo,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

// Authorize accepts a token only if it verifies and is still the user's active token,
// so logging out or logging in again revokes earlier tokens.
func (srv *sessionService) Authorize(ctx context.Context, token string) (*entity.User, error) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, srv.logger)

	claims, err := srv.tokenService.Verify(token)
	if err != nil {
		logger.Debug("Rejected bearer token", slog.String("reason", err.Error()))

		return nil, domainerrors.ErrNotAuthorized.WrapMessage("token verification failed")
	}

	user, err := srv.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logger.Debug("Token refers to an unknown user", slog.String("user_id", claims.UserID.String()))

			return nil, domainerrors.ErrNotAuthorized.WrapMessage("token user not found")
		}

		return nil, errors.Wrap(err, "failed to load token user")
	}

	if !user.IsLoggedIn() || subtle.ConstantTimeCompare([]byte(*user.ActiveToken), []byte(token)) != 1 {
		logger.Debug("Token is not the active token", slog.String("user_id", user.ID.String()))

		return nil, domainerrors.ErrNotAuthorized.WrapMessage("token revoked")
	}

	return user, nil
}
