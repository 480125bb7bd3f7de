package documentstore

import (
	"context"
	"io"
	"time"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocloud.dev/docstore"
	"gocloud.dev/gcerrors"
)

// userDocument is the stored shape of a user. The collection is keyed by email.
type userDocument struct {
	ID           string    `docstore:"id"`
	Email        string    `docstore:"email"`
	PasswordHash string    `docstore:"passwordHash"`
	Token        string    `docstore:"token"`
	Subscription string    `docstore:"subscription"`
	CreatedAt    time.Time `docstore:"createdAt"`
	UpdatedAt    time.Time `docstore:"updatedAt"`
}

// userRepository implements repository.UserRepository over a docstore collection.
type userRepository struct {
	coll *docstore.Collection
	now  func() time.Time
}

// NewUserRepository is the constructor for userRepository.
// The collection's key field must be "email".
func NewUserRepository(coll *docstore.Collection) repository.UserRepository {
	return &userRepository{
		coll: coll,
		now:  time.Now,
	}
}

// FindByEmail retrieves a user by the collection key.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	doc := &userDocument{Email: email}
	if err := repo.coll.Get(ctx, doc); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return toUserDomain(doc)
}

// FindByID retrieves a user through a query on the id field.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	doc, err := repo.findDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserDomain(doc)
}

// Create persists a new user. Docstore's Create fails when the key already exists,
// which also covers two concurrent signups for the same email.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := repo.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if err := repo.coll.Create(ctx, fromUserDomain(user)); err != nil {
		if gcerrors.Code(err) == gcerrors.AlreadyExists {
			return repository.ErrDuplicateEmail
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	return nil
}

// SetToken replaces or clears the active token of the user with the given ID.
func (repo *userRepository) SetToken(ctx context.Context, id uuid.UUID, token *string) error {
	doc, err := repo.findDocumentByID(ctx, id)
	if err != nil {
		return err
	}

	mods := docstore.Mods{
		"token":     nil, // nil removes the field
		"updatedAt": repo.now().UTC(),
	}
	if token != nil {
		mods["token"] = *token
	}

	if err := repo.coll.Update(ctx, &userDocument{Email: doc.Email}, mods); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return repository.ErrUserNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update user token")
	}

	return nil
}

func (repo *userRepository) findDocumentByID(ctx context.Context, id uuid.UUID) (*userDocument, error) {
	iter := repo.coll.Query().Where("id", "=", id.String()).Limit(1).Get(ctx)
	defer iter.Stop()

	doc := &userDocument{}
	if err := iter.Next(ctx, doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return doc, nil
}

// --- Mapper Functions ---

func toUserDomain(doc *userDocument) (*entity.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "stored user %q has an invalid id", doc.Email)
	}

	user := &entity.User{
		ID:           id,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Subscription: entity.Subscription(doc.Subscription),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.Token != "" {
		token := doc.Token
		user.ActiveToken = &token
	}

	return user, nil
}

func fromUserDomain(user *entity.User) *userDocument {
	doc := &userDocument{
		ID:           user.ID.String(),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Subscription: user.Subscription.String(),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if user.ActiveToken != nil {
		doc.Token = *user.ActiveToken
	}

	return doc
}
