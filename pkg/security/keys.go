// Package security issues and verifies the credentials used by the auth flow:
// emailed confirmation codes and bearer access tokens.
package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// Purposes passed to DeriveKey. Each yields an independent key from one secret.
const (
	PurposeAccessToken      = "media-review/access-token"
	PurposeConfirmationCode = "media-review/confirmation-code"
)

// DeriveKey expands the application secret into a purpose-bound key with HKDF-SHA256.
func DeriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("derive %s key: empty secret", purpose)
	}

	key := make([]byte, keySize)
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
