// Package secrets hashes and verifies user-supplied secrets for storage.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"proofing/pkg/domainerrors"
)

// Hash creates a bcrypt digest of the secret.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", domainerrors.New(domainerrors.CodeBadRequest, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domainerrors.New(domainerrors.CodeBadRequest, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext secret against a stored digest.
func Verify(secret, digest string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return domainerrors.New(domainerrors.CodeBadRequest, "secret does not match")
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}
