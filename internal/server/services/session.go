// Package services contains server-side business logic. This file implements
// SessionManager, which issues, validates, and retires sessions using the
// dual-token scheme: a long-lived opaque token backed by the store and a
// short-lived signed token that skips the store on the common path.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dkazakov/seqtrack/internal/common"
	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/auth"
	"github.com/dkazakov/seqtrack/internal/server/config"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/dkazakov/seqtrack/internal/server/repositories/repomanager"
)

// SessionResult bundles a created session with both credential forms.
type SessionResult struct {
	Session *models.Session
	// Token is the opaque "<id>.<secret>" credential (30-day cookie).
	Token string
	// JWT is the signed fast-path token (5-minute cookie).
	JWT string
}

// SessionManager orchestrates session lifecycle against the store.
//
// Validation fails closed: any missing, stale, or orphaned state yields
// (nil, nil, nil) and the offending row is deleted, so the store heals as a
// side effect of being touched. Only infrastructure failures surface as
// errors.
type SessionManager struct {
	db    *sql.DB
	repos repomanager.RepositoryManager
	jwt   *auth.SessionJWT
	log   logging.Logger

	inactivityTimeout     time.Duration
	activityCheckInterval time.Duration
	freshnessWindow       time.Duration
	cleanupProbability    float64

	// randFloat is a seam for tests; defaults to rand.Float64.
	randFloat func() float64
	// sweeps tracks detached cleanup goroutines so tests can wait for them.
	sweeps sync.WaitGroup
}

// NewSessionManager constructs a SessionManager from repositories, the JWT
// signer, and server config.
func NewSessionManager(db *sql.DB, m repomanager.RepositoryManager, jwt *auth.SessionJWT, cfg *config.Config, log logging.Logger) *SessionManager {
	return &SessionManager{
		db:                    db,
		repos:                 m,
		jwt:                   jwt,
		log:                   log,
		inactivityTimeout:     cfg.InactivityTimeout,
		activityCheckInterval: cfg.ActivityCheckInterval,
		freshnessWindow:       cfg.FreshnessWindow,
		cleanupProbability:    cfg.CleanupProbability,
		randFloat:             rand.Float64,
	}
}

// CreateSession generates a fresh credential pair for userID and persists the
// session row. One store write.
func (s *SessionManager) CreateSession(ctx context.Context, userID string) (*SessionResult, error) {
	tok, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("error generating session token: %w", err)
	}

	session := &models.Session{
		ID:             tok.ID,
		UserID:         userID,
		SecretHash:     tok.SecretHash,
		LastVerifiedAt: time.Now(),
		Fresh:          true,
	}
	if err := s.repos.Sessions(s.db).Create(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	signed, err := s.jwt.CreateSessionJWT(session)
	if err != nil {
		return nil, fmt.Errorf("error signing session token: %w", err)
	}

	return &SessionResult{Session: session, Token: tok.Token, JWT: signed}, nil
}

// IssueSessionJWT signs a new fast-path token for an already validated
// session, so the transport layer can replace an expired one after a
// successful slow-path check.
func (s *SessionManager) IssueSessionJWT(session *models.Session) (string, error) {
	return s.jwt.CreateSessionJWT(session)
}

// SessionJWTTTL exposes the fast-path token lifetime for cookie expiry.
func (s *SessionManager) SessionJWTTTL() time.Duration {
	return s.jwt.TTL()
}

// ValidateSessionJWT is the fast path: verify the signed token, then confirm
// the user still exists. No activity timestamp is touched; skipping that
// store write is the whole point of this path. A valid signature does not
// re-prove the session against current store state, which is why the token's
// TTL is short.
func (s *SessionManager) ValidateSessionJWT(ctx context.Context, tokenString string) (*models.Session, *models.User, error) {
	session := s.jwt.ValidateSessionJWT(tokenString)
	if session == nil {
		return nil, nil, nil
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error looking up user: %w", err)
	}

	return session, user, nil
}

// ValidateSession is the slow path: parse the opaque token, look the session
// up, verify the secret in constant time, enforce the inactivity timeout,
// and refresh the activity timestamp when the check interval has elapsed.
// Freshness is recomputed from elapsed time on every success.
func (s *SessionManager) ValidateSession(ctx context.Context, token string) (*models.Session, *models.User, error) {
	id, secret, ok := auth.ParseSessionToken(token)
	if !ok {
		return nil, nil, nil
	}

	s.maybeTriggerCleanup()

	sessionsRepo := s.repos.Sessions(s.db)

	session, err := sessionsRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error looking up session: %w", err)
	}

	if !auth.VerifySessionSecret(secret, session.SecretHash) {
		return nil, nil, nil
	}

	now := time.Now()
	elapsed := now.Sub(session.LastVerifiedAt)

	if elapsed >= s.inactivityTimeout {
		if err := sessionsRepo.Delete(ctx, session.ID); err != nil {
			return nil, nil, fmt.Errorf("error deleting expired session: %w", err)
		}
		return nil, nil, nil
	}

	user, err := s.repos.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Orphaned row: the owning user is gone.
			if err := sessionsRepo.Delete(ctx, session.ID); err != nil {
				return nil, nil, fmt.Errorf("error deleting orphaned session: %w", err)
			}
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error looking up user: %w", err)
	}

	if elapsed >= s.activityCheckInterval {
		if err := sessionsRepo.UpdateLastVerified(ctx, session.ID, now); err != nil {
			return nil, nil, fmt.Errorf("error refreshing session activity: %w", err)
		}
		session.LastVerifiedAt = now
	}

	session.Fresh = elapsed < s.freshnessWindow

	return session, user, nil
}

// InvalidateSession deletes one session. Idempotent: a nonexistent id is not
// an error.
func (s *SessionManager) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.repos.Sessions(s.db).Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// InvalidateUserSessions deletes every session owned by userID ("log out
// everywhere").
func (s *SessionManager) InvalidateUserSessions(ctx context.Context, userID string) error {
	if err := s.repos.Sessions(s.db).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("error deleting user sessions: %w", err)
	}
	return nil
}

// CleanupInactiveSessions removes every session past the inactivity timeout
// and returns the count. Deletions are idempotent, so running this
// concurrently with itself or with validations is safe.
func (s *SessionManager) CleanupInactiveSessions(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.inactivityTimeout)
	n, err := s.repos.Sessions(s.db).DeleteInactive(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error cleaning up sessions: %w", err)
	}
	return n, nil
}

// maybeTriggerCleanup amortizes garbage collection across normal traffic:
// with low probability a slow-path validation spawns a detached sweep. The
// triggering request never waits on it and never sees its errors.
func (s *SessionManager) maybeTriggerCleanup() {
	if s.randFloat() >= s.cleanupProbability {
		return
	}

	s.sweeps.Add(1)
	go func() {
		defer s.sweeps.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := s.CleanupInactiveSessions(ctx)
		if err != nil {
			s.log.Error(ctx, "background session cleanup failed", "error", err)
			return
		}
		if n > 0 {
			s.log.Info(ctx, "background session cleanup finished", "removed", n)
		}
	}()
}
