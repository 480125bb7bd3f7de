package documentstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"accounts/internal/domain/entity"
	"accounts/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/docstore"
	"gocloud.dev/docstore/memdocstore"
)

func newTestCollection(t *testing.T) *docstore.Collection {
	t.Helper()

	coll, err := memdocstore.OpenCollection("email", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = coll.Close() })

	return coll
}

func newTestUser(email string) *entity.User {
	return &entity.User{
		Email:        email,
		PasswordHash: "$2a$04$hash",
		Subscription: entity.SubscriptionStarter,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestCollection(t))

	user := newTestUser("a@x.com")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "$2a$04$hash", byEmail.PasswordHash)
	assert.Equal(t, entity.SubscriptionStarter, byEmail.Subscription)
	assert.Nil(t, byEmail.ActiveToken)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)
}

func TestUserRepository_KeepsProvidedID(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestCollection(t))

	user := newTestUser("a@x.com")
	user.ID = uuid.New()
	want := user.ID
	require.NoError(t, repo.Create(ctx, user))

	assert.Equal(t, want, user.ID)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestCollection(t))

	_, err := repo.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	token := "tok"
	err = repo.SetToken(ctx, uuid.New(), &token)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_EmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestCollection(t))

	require.NoError(t, repo.Create(ctx, newTestUser("a@x.com")))

	_, err := repo.FindByEmail(ctx, "A@x.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)
	repo := NewUserRepository(coll)

	first := newTestUser("a@x.com")
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newTestUser("a@x.com"))
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	// The original record is untouched
	stored, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
}

func TestUserRepository_ConcurrentDuplicateSignup(t *testing.T) {
	ctx := context.Background()
	coll := newTestCollection(t)
	repo := NewUserRepository(coll)

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := repo.Create(ctx, newTestUser("race@x.com"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, repository.ErrDuplicateEmail):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, duplicates)
}

func TestUserRepository_SetToken(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestCollection(t))

	user := newTestUser("a@x.com")
	require.NoError(t, repo.Create(ctx, user))

	token := "issued-token"
	require.NoError(t, repo.SetToken(ctx, user.ID, &token))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ActiveToken)
	assert.Equal(t, token, *stored.ActiveToken)
	assert.True(t, stored.IsLoggedIn())

	replacement := "second-token"
	require.NoError(t, repo.SetToken(ctx, user.ID, &replacement))

	stored, err = repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored.ActiveToken)
	assert.Equal(t, replacement, *stored.ActiveToken)

	require.NoError(t, repo.SetToken(ctx, user.ID, nil))

	stored, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ActiveToken)
	assert.False(t, stored.IsLoggedIn())
}

func TestUserRepository_SetTokenTouchesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	repo := &userRepository{coll: newTestCollection(t), now: func() time.Time { return created }}

	user := newTestUser("a@x.com")
	require.NoError(t, repo.Create(ctx, user))

	repo.now = func() time.Time { return updated }
	token := "tok"
	require.NoError(t, repo.SetToken(ctx, user.ID, &token))

	stored, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedAt.Equal(created))
	assert.True(t, stored.UpdatedAt.Equal(updated))
}
