// Package sessions provides the PostgreSQL-backed session repository.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/dbx"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/pgerr"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, secret_hash, last_verified_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.SecretHash, session.LastVerifiedAt)
	if err != nil {
		return pgerr.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, secret_hash, last_verified_at
		FROM sessions
		WHERE id = $1
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.SecretHash, &session.LastVerifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, pgerr.Classify(err)
	}
	return session, nil
}

func (r *PostgresRepository) UpdateLastVerified(ctx context.Context, id string, lastVerifiedAt time.Time) error {
	query := `
		UPDATE sessions
		SET last_verified_at = $2
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, lastVerifiedAt); err != nil {
		return pgerr.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return pgerr.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM sessions WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return pgerr.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) DeleteInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE last_verified_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, pgerr.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, pgerr.Classify(err)
	}
	return n, nil
}
