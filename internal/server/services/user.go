package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/dbx"
	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// AuthResult is what a successful registration or login hands back: the
// user plus a freshly minted session credential pair.
type AuthResult struct {
	User    *models.User
	Session *models.Session
	Token   string
	JWT     string
}

// UserService handles registration, credential verification, and password
// changes. A failed login is a nil result, never an error, and a missing
// account is indistinguishable from a wrong password.
type UserService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	hasher   *auth.PasswordHasher
	sessions *SessionManager
	log      logging.Logger

	// decoyHash absorbs a verify call when the email is unknown, so the
	// missing-account path costs as much as a wrong password.
	decoyHash string
}

// NewUserService constructs a UserService. The decoy hash is derived once at
// startup.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, sessions *SessionManager, log logging.Logger) (*UserService, error) {
	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &UserService{
		db:        db,
		repos:     m,
		hasher:    hasher,
		sessions:  sessions,
		log:       log,
		decoyHash: decoy,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address. All store lookups
// by email go through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with the default role and logs it in, so the
// caller gets an authenticated session in one step. A taken email yields
// common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:            uuid.NewString(),
		Email:         NormalizeEmail(email),
		Name:          name,
		EmailVerified: false,
		Role:          models.RoleResearcher,
	}
	user, err = s.repos.Users(s.db).Create(ctx, user, hash)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.loginCreatedUser(ctx, user)
}

// Login verifies credentials and mints a session. Returns (nil, nil) when
// the email is unknown or the password does not match.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.AuthenticateUser(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return s.loginCreatedUser(ctx, user)
}

// AuthenticateUser checks email/password and returns the user on success,
// nil on mismatch. When the stored hash predates the current cost
// parameters, it is transparently upgraded; an upgrade failure is logged
// and does not fail the login.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repos.Users(s.db)

	record, err := repo.GetByEmailWithPassword(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Burn a verification anyway so response time does not reveal
			// whether the account exists.
			s.hasher.Verify(password, s.decoyHash)
			return nil, nil
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if !s.hasher.Verify(password, record.PasswordHash) {
		return nil, nil
	}

	if s.hasher.NeedsRehash(record.PasswordHash) {
		if newHash, err := s.hasher.Hash(password); err == nil {
			if err := repo.UpdatePasswordHash(ctx, record.ID, newHash); err != nil {
				s.log.Warn(ctx, "password rehash failed", "user_id", record.ID, "error", err)
			}
		}
	}

	return &record.User, nil
}

// ChangePassword verifies the old password, then atomically swaps the hash
// and invalidates every session of the user. The caller is expected to log
// the user back in afterwards.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error looking up user: %w", err)
	}

	authed, err := s.AuthenticateUser(ctx, user.Email, oldPassword)
	if err != nil {
		return err
	}
	if authed == nil {
		return common.ErrorUnauthorized
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).UpdatePasswordHash(ctx, userID, newHash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repos.Sessions(tx).DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("error invalidating sessions: %w", err)
		}
		return nil
	})
}

// GetUser returns a user by id, or common.ErrorNotFound.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repos.Users(s.db).GetByID(ctx, id)
}

func (s *UserService) loginCreatedUser(ctx context.Context, user *models.User) (*AuthResult, error) {
	res, err := s.sessions.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:    user,
		Session: res.Session,
		Token:   res.Token,
		JWT:     res.JWT,
	}, nil
}
