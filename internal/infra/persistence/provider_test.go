package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"accounts/config"
	"accounts/internal/domain/entity"
	"accounts/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newParams(t *testing.T, store *config.StoreConfig) (Params, *fxtest.Lifecycle) {
	lc := fxtest.NewLifecycle(t)

	return Params{
		Lc:     lc,
		Ctx:    context.Background(),
		Config: &config.Config{Store: store},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, lc
}

func TestNewUserRepository_Docstore(t *testing.T) {
	params, lc := newParams(t, &config.StoreConfig{
		Driver: config.StoreDriverDocstore,
		URL:    "mem://users/email",
	})

	repo, err := NewUserRepository(params)
	require.NoError(t, err)

	lc.RequireStart()

	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &entity.User{Email: "a@x.com", PasswordHash: "h"}))

	_, err = repo.FindByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	lc.RequireStop()
}

func TestNewUserRepository_UnknownDriver(t *testing.T) {
	params, _ := newParams(t, &config.StoreConfig{Driver: "redis"})

	_, err := NewUserRepository(params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestNewUserRepository_PostgresWithoutConfig(t *testing.T) {
	params, _ := newParams(t, &config.StoreConfig{Driver: config.StoreDriverPostgres})

	_, err := NewUserRepository(params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres config section is missing")
}
