// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/dbx"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/pgerr"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, name, email_verified, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.EmailVerified, user.Role, passwordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, pgerr.Classify(err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, name, email_verified, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, name, email_verified, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.UserWithPassword, error) {
	query := `
		SELECT id, email, name, email_verified, role, created_at, updated_at, password_hash
		FROM users
		WHERE email = $1
	`
	user := &models.UserWithPassword{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.EmailVerified, &user.Role,
		&user.CreatedAt, &user.UpdatedAt, &user.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, pgerr.Classify(err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return pgerr.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return pgerr.Classify(err)
	}
	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.EmailVerified, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, pgerr.Classify(err)
	}
	return user, nil
}
