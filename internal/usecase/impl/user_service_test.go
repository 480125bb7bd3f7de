package impl

import (
	"context"
	"strings"
	"testing"
	"time"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	mockRepo "accounts/internal/mocks/repository"
	mockSvc "accounts/internal/mocks/service"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// userServiceFixtures holds all test dependencies for user service tests.
type userServiceFixtures struct {
	service      usecase.UserUsecase
	userRepo     *mockRepo.MockUserRepository
	hasher       *mockSvc.MockPasswordHasher
	tokenService *mockSvc.MockTokenService
	publisher    *mockSvc.MockEventPublisher
}

func createTestUserService(t *testing.T) userServiceFixtures {
	userRepo := mockRepo.NewMockUserRepository(t)
	hasher := mockSvc.NewMockPasswordHasher(t)
	tokenService := mockSvc.NewMockTokenService(t)
	publisher := mockSvc.NewMockEventPublisher(t)

	service := NewUserService(UserServiceParams{
		UserRepo:     userRepo,
		Hasher:       hasher,
		TokenService: tokenService,
		Publisher:    publisher,
		Config:       newTestConfig(),
		Logger:       newDiscardLogger(),
	})

	return userServiceFixtures{
		service:      service,
		userRepo:     userRepo,
		hasher:       hasher,
		tokenService: tokenService,
		publisher:    publisher,
	}
}

func expectEvent(publisher *mockSvc.MockEventPublisher, eventType entity.AccountEventType, err error) {
	publisher.EXPECT().
		PublishAccountEvent(mock.Anything, mock.MatchedBy(func(e *entity.AccountEvent) bool {
			return e.Type == eventType
		})).
		Return(err)
}

func TestUserService_Signup_Success(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()
	input := &usecase.SignupInput{Email: "a@x.com", Password: "secret1"}

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
	fx.userRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.User")).
		Run(func(_ context.Context, user *entity.User) {
			assert.Equal(t, "a@x.com", user.Email)
			assert.Equal(t, "hashed", user.PasswordHash)
			assert.Equal(t, entity.SubscriptionStarter, user.Subscription)
			assert.Nil(t, user.ActiveToken)
			user.ID = uuid.New()
		}).
		Return(nil)
	expectEvent(fx.publisher, entity.AccountEventSignedUp, nil)

	out, err := fx.service.Signup(ctx, input)

	require.NoError(t, err)
	require.NotNil(t, out.User)
	assert.Equal(t, "a@x.com", out.User.Email)
	assert.Equal(t, entity.SubscriptionStarter, out.User.Subscription)
	assert.NotEqual(t, "secret1", out.User.PasswordHash)
}

func TestUserService_Signup_ValidationFailed(t *testing.T) {
	tests := []struct {
		name       string
		input      *usecase.SignupInput
		wantFields []string
	}{
		{
			name:       "invalid email",
			input:      &usecase.SignupInput{Email: "not-an-email", Password: "secret1"},
			wantFields: []string{"email"},
		},
		{
			name:       "short password",
			input:      &usecase.SignupInput{Email: "a@x.com", Password: "12345"},
			wantFields: []string{"password"},
		},
		{
			name:       "both missing",
			input:      &usecase.SignupInput{},
			wantFields: []string{"email", "password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestUserService(t)

			_, err := fx.service.Signup(context.Background(), tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

			var appErr domainerrors.AppError
			require.True(t, errors.As(err, &appErr))
			details, ok := appErr.Details().([]domainerrors.FieldError)
			require.True(t, ok)

			fields := make([]string, 0, len(details))
			for _, d := range details {
				fields = append(fields, d.Field)
				assert.NotEmpty(t, d.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestUserService_Signup_PasswordOfSixCharactersAccepted(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("123456").Return("hashed", nil)
	fx.userRepo.EXPECT().Create(ctx, mock.AnythingOfType("*entity.User")).Return(nil)
	expectEvent(fx.publisher, entity.AccountEventSignedUp, nil)

	_, err := fx.service.Signup(ctx, &usecase.SignupInput{Email: "a@x.com", Password: "123456"})

	assert.NoError(t, err)
}

func TestUserService_Signup_EmailInUse(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(&entity.User{ID: uuid.New(), Email: "a@x.com"}, nil)

	_, err := fx.service.Signup(ctx, &usecase.SignupInput{Email: "a@x.com", Password: "secret1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrEmailInUse)
}

func TestUserService_Signup_ConcurrentDuplicate(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
	fx.userRepo.EXPECT().Create(ctx, mock.AnythingOfType("*entity.User")).Return(repository.ErrDuplicateEmail)

	_, err := fx.service.Signup(ctx, &usecase.SignupInput{Email: "a@x.com", Password: "secret1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrEmailInUse)
}

func TestUserService_Signup_StoreFailure(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(nil, assert.AnError)

	_, err := fx.service.Signup(ctx, &usecase.SignupInput{Email: "a@x.com", Password: "secret1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	var appErr domainerrors.AppError
	assert.False(t, errors.As(err, &appErr))
}

func TestUserService_Signup_PasswordTooLongForBcrypt(t *testing.T) {
	passwords := map[string]string{
		"ascii":     strings.Repeat("a", 73),
		"multibyte": strings.Repeat("é", 40),
	}

	for name, password := range passwords {
		t.Run(name, func(t *testing.T) {
			// Mocks fail the test if the store or hasher is reached.
			fx := createTestUserService(t)

			_, err := fx.service.Signup(context.Background(), &usecase.SignupInput{Email: "long@x.com", Password: password})

			var appErr domainerrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, 400, appErr.HTTPCode())
			assert.Equal(t, "VALIDATION_FAILED", appErr.ErrorCode())
			assert.Equal(t,
				[]domainerrors.FieldError{{Field: "password", Message: "must be at most 72 bytes long"}},
				appErr.Details(),
			)
		})
	}
}

func TestUserService_Signup_HashFailure(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("secret1").Return("", assert.AnError)

	_, err := fx.service.Signup(ctx, &usecase.SignupInput{Email: "a@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, domainerrors.ErrPasswordHashFailed)
}

func TestUserService_Signup_PublishFailureIgnored(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(nil, repository.ErrUserNotFound)
	fx.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
	fx.userRepo.EXPECT().Create(ctx, mock.AnythingOfType("*entity.User")).Return(nil)
	expectEvent(fx.publisher, entity.AccountEventSignedUp, assert.AnError)

	out, err := fx.service.Signup(ctx, &usecase.SignupInput{Email: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", out.User.Email)
}

func TestUserService_Login_Success(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()
	user := &entity.User{
		ID:           uuid.New(),
		Email:        "a@x.com",
		PasswordHash: "hashed",
		Subscription: entity.SubscriptionStarter,
	}

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(user, nil)
	fx.hasher.EXPECT().Check("secret1", "hashed").Return(true)
	fx.tokenService.EXPECT().Issue(user.ID).Return("signed-token", nil)
	fx.tokenService.EXPECT().TTL().Return(time.Hour).Once()
	fx.userRepo.EXPECT().
		SetToken(ctx, user.ID, mock.AnythingOfType("*string")).
		Run(func(_ context.Context, _ uuid.UUID, token *string) {
			require.NotNil(t, token)
			assert.Equal(t, "signed-token", *token)
		}).
		Return(nil)
	expectEvent(fx.publisher, entity.AccountEventLoggedIn, nil)

	out, err := fx.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", out.Token)
	assert.Equal(t, "a@x.com", out.User.Email)
	require.NotNil(t, out.User.ActiveToken)
	assert.Equal(t, "signed-token", *out.User.ActiveToken)
}

func TestUserService_Login_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	ctx := context.Background()

	unknown := createTestUserService(t)
	unknown.userRepo.EXPECT().FindByEmail(ctx, "missing@x.com").Return(nil, repository.ErrUserNotFound)
	_, unknownErr := unknown.service.Login(ctx, &usecase.LoginInput{Email: "missing@x.com", Password: "secret1"})

	wrong := createTestUserService(t)
	wrong.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(&entity.User{ID: uuid.New(), PasswordHash: "hashed"}, nil)
	wrong.hasher.EXPECT().Check("wrong-pass", "hashed").Return(false)
	_, wrongErr := wrong.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "wrong-pass"})

	for _, err := range []error{unknownErr, wrongErr} {
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

		var appErr domainerrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "Email or password is wrong", appErr.Message())
		assert.Equal(t, 401, appErr.HTTPCode())
	}
}

func TestUserService_Login_ValidationFailed(t *testing.T) {
	fx := createTestUserService(t)

	_, err := fx.service.Login(context.Background(), &usecase.LoginInput{Email: "a@x.com"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestUserService_Login_TokenIssueFailure(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()
	user := &entity.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "hashed"}

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(user, nil)
	fx.hasher.EXPECT().Check("secret1", "hashed").Return(true)
	fx.tokenService.EXPECT().Issue(user.ID).Return("", assert.AnError)

	_, err := fx.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, domainerrors.ErrTokenIssueFailed)
}

func TestUserService_Login_SetTokenFailure(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()
	user := &entity.User{ID: uuid.New(), Email: "a@x.com", PasswordHash: "hashed"}

	fx.userRepo.EXPECT().FindByEmail(ctx, "a@x.com").Return(user, nil)
	fx.hasher.EXPECT().Check("secret1", "hashed").Return(true)
	fx.tokenService.EXPECT().Issue(user.ID).Return("signed-token", nil)
	fx.userRepo.EXPECT().SetToken(ctx, user.ID, mock.AnythingOfType("*string")).Return(assert.AnError)

	_, err := fx.service.Login(ctx, &usecase.LoginInput{Email: "a@x.com", Password: "secret1"})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestUserService_Logout_Success(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()
	token := "signed-token"
	user := &entity.User{ID: uuid.New(), Email: "a@x.com", ActiveToken: &token}

	fx.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)
	fx.userRepo.EXPECT().SetToken(ctx, user.ID, (*string)(nil)).Return(nil)
	expectEvent(fx.publisher, entity.AccountEventLoggedOut, nil)

	err := fx.service.Logout(ctx, user.ID)

	require.NoError(t, err)
	assert.Nil(t, user.ActiveToken)
}

func TestUserService_Logout_UserVanished(t *testing.T) {
	fx := createTestUserService(t)
	ctx := context.Background()
	userID := uuid.New()

	fx.userRepo.EXPECT().FindByID(ctx, userID).Return(nil, repository.ErrUserNotFound)

	err := fx.service.Logout(ctx, userID)

	assert.ErrorIs(t, err, domainerrors.ErrNotAuthorized)
}

func TestUserService_CurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		fx := createTestUserService(t)
		user := &entity.User{ID: uuid.New(), Email: "a@x.com", Subscription: entity.SubscriptionPro}
		fx.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

		got, err := fx.service.CurrentUser(ctx, user.ID)

		require.NoError(t, err)
		assert.Equal(t, "a@x.com", got.Email)
		assert.Equal(t, entity.SubscriptionPro, got.Subscription)
	})

	t.Run("vanished", func(t *testing.T) {
		fx := createTestUserService(t)
		userID := uuid.New()
		fx.userRepo.EXPECT().FindByID(ctx, userID).Return(nil, repository.ErrUserNotFound)

		_, err := fx.service.CurrentUser(ctx, userID)

		assert.ErrorIs(t, err, domainerrors.ErrNotAuthorized)
	})

	t.Run("store failure", func(t *testing.T) {
		fx := createTestUserService(t)
		userID := uuid.New()
		fx.userRepo.EXPECT().FindByID(ctx, userID).Return(nil, assert.AnError)

		_, err := fx.service.CurrentUser(ctx, userID)

		assert.ErrorIs(t, err, assert.AnError)
		assert.NotErrorIs(t, err, domainerrors.ErrNotAuthorized)
	})
}
