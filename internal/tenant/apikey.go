package tenant

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyPrefix = "pk_live_"
	// apiKeyPrefixLen is the number of leading characters stored in plaintext
	// alongside the hash so lookup is an indexed point query instead of a
	// scan over every tenant.
	apiKeyPrefixLen = 16
)

// GenerateAPIKey returns a fresh raw key (pk_live_ + 64 hex chars), its
// non-secret lookup prefix, and the bcrypt hash of the full key. The raw key
// is shown to the tenant exactly once and never stored.
func GenerateAPIKey(bcryptCost int) (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("api key generation: %w", err)
	}
	rawKey = apiKeyPrefix + hex.EncodeToString(b)
	prefix = rawKey[:apiKeyPrefixLen]

	hashed, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("api key hash: %w", err)
	}
	return rawKey, prefix, string(hashed), nil
}

// KeyPrefix extracts the lookup prefix from a presented key. Returns false
// when the key is too short or malformed to possibly match.
func KeyPrefix(presented string) (string, bool) {
	presented = strings.TrimSpace(presented)
	if !strings.HasPrefix(presented, apiKeyPrefix) || len(presented) < apiKeyPrefixLen {
		return "", false
	}
	return presented[:apiKeyPrefixLen], true
}

// CompareAPIKey checks a presented key against the stored bcrypt hash.
// bcrypt comparison is constant-time with respect to the key material.
func CompareAPIKey(hash, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(presented))) == nil
}
