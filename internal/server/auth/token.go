package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// tokenAlphabet is the character set for session identifiers and secrets.
// Visually confusable characters (0/O, 1/l/o) are excluded so the tokens
// survive being read aloud or transcribed. 32 characters divide 256 evenly,
// so a simple modulo over random bytes introduces no bias.
const tokenAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

const (
	// SessionIDLength is the length of the public session identifier.
	SessionIDLength = 24
	// SessionSecretLength is the length of the private session secret.
	SessionSecretLength = 32
)

// SessionToken is a freshly generated opaque credential. Token is the wire
// form "<id>.<secret>"; SecretHash is what gets persisted, never Secret.
type SessionToken struct {
	ID         string
	Secret     string
	SecretHash []byte
	Token      string
}

// GenerateSecureRandomString returns a cryptographically random string of
// length n over the unambiguous token alphabet.
func GenerateSecureRandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(out), nil
}

// GenerateSessionToken produces a new two-part session credential. The id is
// the public lookup key; the secret is returned to the client and only its
// sha256 digest is kept server-side.
func GenerateSessionToken() (*SessionToken, error) {
	id, err := GenerateSecureRandomString(SessionIDLength)
	if err != nil {
		return nil, err
	}
	secret, err := GenerateSecureRandomString(SessionSecretLength)
	if err != nil {
		return nil, err
	}
	return &SessionToken{
		ID:         id,
		Secret:     secret,
		SecretHash: HashSecret(secret),
		Token:      id + "." + secret,
	}, nil
}

// ParseSessionToken splits an opaque token into its id and secret. ok is
// false unless the token contains exactly one dot with non-empty parts on
// both sides.
func ParseSessionToken(token string) (id, secret string, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// HashSecret returns the sha256 digest of a session secret.
func HashSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// ConstantTimeEqual compares two byte slices in time independent of where
// they first differ. A length mismatch returns false immediately; length is
// not secret here.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// VerifySessionSecret hashes the presented secret and compares it against
// the stored digest in constant time.
func VerifySessionSecret(secret string, storedHash []byte) bool {
	return ConstantTimeEqual(HashSecret(secret), storedHash)
}
