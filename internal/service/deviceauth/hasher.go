package deviceauth

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Interface to create or compare device secret hashes
type SecretHasher interface {
	// Generate hash from secret
	Hash(secret string) (string, error)

	// Compare known hashedSecret and device provided secret
	// Must be protected against timing attacks
	Compare(hashedSecret string, secret string) error
}

// Bcrypt secret hasher
// Used as default one if caller not provide it's own
type BcryptHasher struct{}

func (h BcryptHasher) Hash(secret string) (string, error) {
	sum := sha256.Sum256([]byte(secret))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedSecret string, secret string) error {
	sum := sha256.Sum256([]byte(secret))
	return bcrypt.CompareHashAndPassword([]byte(hashedSecret), sum[:])
}
