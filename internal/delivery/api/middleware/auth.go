package middleware

import (
	"log/slog"
	"strings"

	"accounts/internal/delivery/api/response"
	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const bearerScheme = "Bearer"

// AuthMiddleware authenticates requests carrying a bearer token.
type AuthMiddleware struct {
	sessionUC usecase.SessionUsecase
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(sessionUC usecase.SessionUsecase) *AuthMiddleware {
	return &AuthMiddleware{sessionUC: sessionUC}
}

// Authenticate resolves the bearer token to a user and attaches it to the request.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return notAuthorized(c)
		}

		ctx := c.Request().Context()
		user, err := m.sessionUC.Authorize(ctx, token)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotAuthorized) {
				return notAuthorized(c)
			}

			// Store failures surface as 500 through the error handler
			return err
		}

		deliverycontext.SetUser(c, user)

		logger := deliverycontext.GetLogger(c.Request().Context())
		if logger != nil {
			scoped := logger.With(slog.String("user_id", user.ID.String()))
			c.SetRequest(c.Request().WithContext(deliverycontext.WithLogger(c.Request().Context(), scoped)))
		}

		return next(c)
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != bearerScheme {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}

func notAuthorized(c echo.Context) error {
	return response.Unauthorized(c,
		domainerrors.ErrNotAuthorized.ErrorCode(),
		domainerrors.ErrNotAuthorized.Message(),
	)
}
