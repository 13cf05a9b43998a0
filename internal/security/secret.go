// Package security issues and verifies project secrets.
//
// A secret is a random UUID string rendered in uppercase. Only its bcrypt hash
// is ever persisted; the plaintext is handed to the caller once.
package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SecretLength is the length of every plaintext project secret.
const SecretLength = 36

// ErrEmptySecret is returned when hashing an empty plaintext.
var ErrEmptySecret = errors.New("security: empty secret")

// SecretManager issues, hashes and verifies project secrets.
type SecretManager struct {
	cost int
}

// NewSecretManager constructs a SecretManager using the given bcrypt cost.
// Costs outside bcrypt's accepted range fall back to bcrypt.DefaultCost.
func NewSecretManager(cost int) *SecretManager {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &SecretManager{cost: cost}
}

// IssueSecret generates a new random plaintext secret.
func (m *SecretManager) IssueSecret() string {
	return strings.ToUpper(uuid.NewString())
}

// Hash returns the one-way salted hash of a plaintext secret.
func (m *SecretManager) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptySecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	if err != nil {
		return "", fmt.Errorf("security: hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash.
func (m *SecretManager) Verify(plaintext, hashed string) bool {
	if plaintext == "" || hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// IssueHashed issues a fresh secret and returns it together with its hash.
func (m *SecretManager) IssueHashed() (plaintext, hashed string, err error) {
	plaintext = m.IssueSecret()
	hashed, err = m.Hash(plaintext)
	if err != nil {
		return "", "", err
	}
	return plaintext, hashed, nil
}
