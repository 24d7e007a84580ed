package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// One-time secret windows. Reset links go stale fast; verification links
// ride along in a welcome email and get a day.
const (
	ResetSecretTTL        = 10 * time.Minute
	VerificationSecretTTL = 24 * time.Hour

	secretBytes = 20
)

// OneTimeSecret is a freshly minted single-use credential. Cleartext is
// returned to the requester exactly once (embedded in an emailed URL); only
// Hash and ExpiresAt are ever persisted.
type OneTimeSecret struct {
	Cleartext string
	Hash      string
	ExpiresAt time.Time
}

// NewOneTimeSecret generates a high-entropy secret valid for ttl from now.
func NewOneTimeSecret(ttl time.Duration) (OneTimeSecret, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return OneTimeSecret{}, err
	}

	cleartext := hex.EncodeToString(raw)
	return OneTimeSecret{
		Cleartext: cleartext,
		Hash:      HashSecret(cleartext),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// HashSecret is the deterministic storage form of a one-time secret. A fast
// hash is sufficient here: the input already carries 160 bits of entropy, so
// the slow password KDF would buy nothing.
func HashSecret(cleartext string) string {
	sum := sha256.Sum256([]byte(cleartext))
	return hex.EncodeToString(sum[:])
}

// MatchSecret re-hashes the presented cleartext, compares against the stored
// hash in constant time, and requires the expiry to be strictly in the
// future. On success the caller must clear both stored fields — a consumed
// secret must never verify twice.
func MatchSecret(presented, storedHash string, expiresAt *time.Time, now time.Time) bool {
	if storedHash == "" || expiresAt == nil {
		return false
	}
	if !expiresAt.After(now) {
		return false
	}
	computed := HashSecret(presented)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
