// Package auth implements the credential primitives of the session core:
// argon2id password hashing, the opaque session-token codec, the short-lived
// session JWT, and the role policy.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dkazakov/seqtrack/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	passwordSaltLen = 16
	passwordKeyLen  = 32
)

// PasswordParams are the argon2id cost parameters. They are fixed at
// construction; per-hash values travel inside the encoded hash string so a
// later parameter bump can be detected with NeedsRehash.
type PasswordParams struct {
	MemoryKiB   uint32
	Time        uint32
	Parallelism uint8
}

// DefaultPasswordParams returns the documented defaults: 64 MiB memory,
// 3 iterations, 1 lane.
func DefaultPasswordParams() PasswordParams {
	return PasswordParams{
		MemoryKiB:   64 * 1024,
		Time:        3,
		Parallelism: 1,
	}
}

// PasswordHasher hashes and verifies passwords with argon2id. It is stateless
// beyond its parameters and safe for concurrent use.
type PasswordHasher struct {
	params PasswordParams
}

func NewPasswordHasher(params PasswordParams) *PasswordHasher {
	return &PasswordHasher{params: params}
}

// Hash derives an argon2id hash of password and encodes it in the standard
// "$argon2id$v=19$m=..,t=..,p=..$salt$hash" form, parameters included.
func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrHashing, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Parallelism, passwordKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify recomputes the hash of password using the parameters embedded in
// encoded and compares in constant time. A malformed encoded hash yields
// false, not an error.
func (h *PasswordHasher) Verify(password, encoded string) bool {
	params, salt, want, err := decodePasswordHash(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// NeedsRehash reports whether the stored hash was produced with weaker
// parameters than currently configured. Unparsable input counts as needing a
// rehash so legacy or corrupt values get upgraded on next login.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	params, _, _, err := decodePasswordHash(encoded)
	if err != nil {
		return true
	}
	return params.MemoryKiB < h.params.MemoryKiB ||
		params.Time < h.params.Time ||
		params.Parallelism < h.params.Parallelism
}

func decodePasswordHash(encoded string) (PasswordParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return PasswordParams{}, nil, nil, common.ErrInvalidToken
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return PasswordParams{}, nil, nil, err
	}
	if version != argon2.Version {
		return PasswordParams{}, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	var params PasswordParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Time, &params.Parallelism); err != nil {
		return PasswordParams{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return PasswordParams{}, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return PasswordParams{}, nil, nil, err
	}
	if len(salt) == 0 || len(hash) == 0 {
		return PasswordParams{}, nil, nil, common.ErrInvalidToken
	}

	return params, salt, hash, nil
}
