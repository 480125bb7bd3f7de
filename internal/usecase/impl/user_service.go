// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"time"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// userService implements the UserUsecase interface.
type userService struct {
	userRepo            repository.UserRepository
	hasher              service.PasswordHasher
	tokenService        service.TokenService
	publisher           service.EventPublisher
	validator           *inputValidator
	defaultSubscription entity.Subscription
	logger              *slog.Logger
	now                 func() time.Time
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Publisher    service.EventPublisher
	Config       *config.Config
	Logger       *slog.Logger
}

// NewUserService is the constructor for userService. It receives all dependencies as interfaces.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	subscription := entity.SubscriptionStarter
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.DefaultSubscription != "" {
		subscription = entity.Subscription(params.Config.Auth.DefaultSubscription)
	}

	return &userService{
		userRepo:            params.UserRepo,
		hasher:              params.Hasher,
		tokenService:        params.TokenService,
		publisher:           params.Publisher,
		validator:           newInputValidator(),
		defaultSubscription: subscription,
		logger:              params.Logger,
		now:                 time.Now,
	}
}

// Signup validates the input, rejects known emails and stores a new user with a hashed password.
func (srv *userService) Signup(ctx context.Context, input *usecase.SignupInput) (*usecase.SignupOutput, error) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, srv.logger)

	if err := srv.validator.check(input); err != nil {
		return nil, err
	}

	_, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err == nil {
		return nil, domainerrors.ErrEmailInUse.WrapMessage("signup failed")
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to look up email")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		logger.Error("Failed to hash password during signup", slog.Any("error", err))

		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage("signup failed")
	}

	newUser := &entity.User{
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Subscription: srv.defaultSubscription,
	}
	if err := srv.userRepo.Create(ctx, newUser); err != nil {
		// Lost a race with a concurrent signup for the same email
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domainerrors.ErrEmailInUse.WrapMessage("signup failed")
		}

		return nil, errors.Wrap(err, "failed to create user")
	}

	logger.Info("User signed up", slog.String("user_id", newUser.ID.String()))
	srv.publish(ctx, entity.AccountEventSignedUp, newUser)

	return &usecase.SignupOutput{User: newUser}, nil
}

// Login verifies credentials and issues a token that replaces any previously active one.
// Unknown emails and wrong passwords produce the same error.
func (srv *userService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, srv.logger)

	if err := srv.validator.check(input); err != nil {
		return nil, err
	}

	user, err := srv.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrInvalidCredentials.WrapMessage("unknown email")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("password mismatch")
	}

	token, err := srv.tokenService.Issue(user.ID)
	if err != nil {
		logger.Error("Failed to issue token", slog.Any("error", err), slog.String("user_id", user.ID.String()))

		return nil, domainerrors.ErrTokenIssueFailed.WrapMessage("login failed")
	}

	if err := srv.userRepo.SetToken(ctx, user.ID, &token); err != nil {
		return nil, errors.Wrap(err, "failed to store active token")
	}
	user.ActiveToken = &token

	logger.Info("User logged in",
		slog.String("user_id", user.ID.String()),
		slog.Duration("token_ttl", srv.tokenService.TTL()),
	)
	srv.publish(ctx, entity.AccountEventLoggedIn, user)

	return &usecase.LoginOutput{Token: token, User: user}, nil
}

// Logout clears the active token of an authenticated user.
func (srv *userService) Logout(ctx context.Context, userID uuid.UUID) error {
	logger := deliverycontext.GetLoggerOrDefault(ctx, srv.logger)

	user, err := srv.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := srv.userRepo.SetToken(ctx, user.ID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrNotAuthorized.WrapMessage("user vanished during logout")
		}

		return errors.Wrap(err, "failed to clear active token")
	}
	user.ActiveToken = nil

	logger.Info("User logged out", slog.String("user_id", user.ID.String()))
	srv.publish(ctx, entity.AccountEventLoggedOut, user)

	return nil
}

// CurrentUser re-reads the authenticated user from the store.
func (srv *userService) CurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	return srv.loadUser(ctx, userID)
}

func (srv *userService) loadUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, domainerrors.ErrNotAuthorized.WrapMessage("user no longer exists")
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return user, nil
}

// publish emits an account event. Failures are logged and never fail the request.
func (srv *userService) publish(ctx context.Context, eventType entity.AccountEventType, user *entity.User) {
	if srv.publisher == nil {
		return
	}

	event := &entity.AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: srv.now().UTC(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
	}

	if err := srv.publisher.PublishAccountEvent(ctx, event); err != nil {
		deliverycontext.GetLoggerOrDefault(ctx, srv.logger).Warn("Failed to publish account event",
			slog.String("event_type", string(eventType)),
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err),
		)
	}
}
