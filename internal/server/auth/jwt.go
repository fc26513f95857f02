package auth

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/dkazakov/seqtrack/internal/logging"
	"github.com/dkazakov/seqtrack/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// sessionClaims is the payload of the fast-path session JWT. It carries a
// summary of the session and deliberately excludes the secret hash: the
// token's strength rests on the HS256 signature alone.
type sessionClaims struct {
	jwt.RegisteredClaims
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	LastVerifiedAt int64  `json:"lastVerifiedAt"`
	Fresh          bool   `json:"fresh"`
}

// SessionJWT issues and verifies the short-lived signed token that lets the
// common request path skip the session-store lookup. It is never
// authoritative: its expiry window bounds how stale its claims can be.
type SessionJWT struct {
	key      []byte
	ttl      time.Duration
	issuer   string
	audience string
}

// NewSessionJWT builds the signer/verifier. When key is empty a random
// process-lifetime key is generated and a warning logged: every fast-path
// token dies on restart, which is acceptable because the slow path still
// works. Constructed once at startup and shared afterwards.
func NewSessionJWT(key []byte, ttl time.Duration, issuer, audience string, log logging.Logger) (*SessionJWT, error) {
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Warn(context.Background(), "no session JWT key configured, generated a random one; fast-path tokens will not survive a restart")
	}
	return &SessionJWT{key: key, ttl: ttl, issuer: issuer, audience: audience}, nil
}

// TTL returns the configured expiration window.
func (j *SessionJWT) TTL() time.Duration {
	return j.ttl
}

// CreateSessionJWT signs a token embedding the session summary, expiring
// after the configured window.
func (j *SessionJWT) CreateSessionJWT(session *models.Session) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		Session: sessionPayload{
			ID:             session.ID,
			UserID:         session.UserID,
			LastVerifiedAt: session.LastVerifiedAt.Unix(),
			Fresh:          session.Fresh,
		},
	})
	return token.SignedString(j.key)
}

// ValidateSessionJWT verifies signature, issuer, audience, and expiry, then
// checks the payload shape field by field. Any failure yields nil: this path
// is a best-effort accelerator and must fail closed rather than report why.
func (j *SessionJWT) ValidateSessionJWT(tokenString string) *models.Session {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return j.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil
	}

	if claims.Session.ID == "" || claims.Session.UserID == "" || claims.Session.LastVerifiedAt <= 0 {
		return nil
	}

	return &models.Session{
		ID:             claims.Session.ID,
		UserID:         claims.Session.UserID,
		LastVerifiedAt: time.Unix(claims.Session.LastVerifiedAt, 0),
		Fresh:          claims.Session.Fresh,
	}
}
