package sessions

import (
	"context"
	"time"

	"github.com/dkazakov/seqtrack/internal/server/models"
)

// Repository is the session portion of the session store contract. All
// deletes are idempotent: removing an absent row is not an error.
type Repository interface {
	// Create persists a new session row.
	Create(ctx context.Context, session *models.Session) error

	// GetByID returns the session or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Session, error)

	// UpdateLastVerified advances the activity timestamp.
	UpdateLastVerified(ctx context.Context, id string, lastVerifiedAt time.Time) error

	// Delete removes one session.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes every session owned by userID.
	DeleteByUser(ctx context.Context, userID string) error

	// DeleteInactive removes sessions last verified before cutoff and returns
	// the number removed.
	DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error)
}
