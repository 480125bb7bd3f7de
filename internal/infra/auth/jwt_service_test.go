package auth

import (
	"strings"
	"testing"
	"time"

	"accounts/config"
	"accounts/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_very_long_for_testing"

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService(&config.Config{})
	assert.Error(t, err)

	_, err = NewJWTService(&config.Config{JWT: &config.JWTConfig{}})
	assert.Error(t, err)

	svc, err := NewJWTService(&config.Config{JWT: &config.JWTConfig{Secret: testSecret}})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newJWTService(testSecret, TokenTTL, func() time.Time { return issuedAt })

	userID := uuid.New()
	token, err := svc.Issue(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, issuedAt.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, issuedAt.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestJWTService_IssueIsUniqueWithinSameSecond(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newJWTService(testSecret, TokenTTL, func() time.Time { return issuedAt })
	userID := uuid.New()

	first, err := svc.Issue(userID)
	require.NoError(t, err)
	second, err := svc.Issue(userID)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTService_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := newJWTService(testSecret, TokenTTL, clock)

	token, err := svc.Issue(uuid.New())
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = svc.Verify(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestJWTService_TamperedSignature(t *testing.T) {
	svc := newJWTService(testSecret, TokenTTL, time.Now)
	other := newJWTService("another_secret_key", TokenTTL, time.Now)

	token, err := other.Issue(uuid.New())
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, service.ErrTokenSignatureInvalid)
}

func TestJWTService_Malformed(t *testing.T) {
	svc := newJWTService(testSecret, TokenTTL, time.Now)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage",
			token: func(*testing.T) string { return "not-a-token" },
		},
		{
			name:  "empty",
			token: func(*testing.T) string { return "" },
		},
		{
			name: "non uuid user id",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"userId": "not-a-uuid",
					"exp":    time.Now().Add(time.Hour).Unix(),
				})
				s, err := tok.SignedString([]byte(testSecret))
				require.NoError(t, err)

				return s
			},
		},
		{
			name: "missing user id",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"exp": time.Now().Add(time.Hour).Unix(),
				})
				s, err := tok.SignedString([]byte(testSecret))
				require.NoError(t, err)

				return s
			},
		},
		{
			name: "missing expiry",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
					"userId": uuid.NewString(),
				})
				s, err := tok.SignedString([]byte(testSecret))
				require.NoError(t, err)

				return s
			},
		},
		{
			name: "unexpected algorithm",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
					"userId": uuid.NewString(),
					"exp":    time.Now().Add(time.Hour).Unix(),
				})
				s, err := tok.SignedString([]byte(testSecret))
				require.NoError(t, err)

				return s
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token(t))
			assert.ErrorIs(t, err, service.ErrTokenMalformed)
		})
	}
}
