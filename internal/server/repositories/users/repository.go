package users

import (
	"context"

	"github.com/dkazakov/seqtrack/internal/server/models"
)

// Repository is the user portion of the session store contract.
type Repository interface {
	// Create inserts a new user with its credential hash. Returns
	// common.ErrorAlreadyExists when the email is taken.
	Create(ctx context.Context, user *models.User, passwordHash string) (*models.User, error)

	// GetByID returns the user or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns the user or common.ErrorNotFound. Email must already
	// be case-normalized by the caller.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByEmailWithPassword additionally loads the credential hash. Only the
	// authentication path may call this.
	GetByEmailWithPassword(ctx context.Context, email string) (*models.UserWithPassword, error)

	// UpdatePasswordHash replaces the stored credential hash.
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error

	// Delete removes the user. Sessions go with it via the FK cascade.
	Delete(ctx context.Context, id string) error
}
