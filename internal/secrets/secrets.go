// Package secrets stores per-server pre-auth secrets in the OS keyring.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (GNOME Keyring, KWallet)
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// ServiceName is the identifier used for all Harbor secrets in the system
// keyring.
const ServiceName = "harbor"

// ErrNotFound is returned when no secret is stored for a server URL.
var ErrNotFound = errors.New("secret not found")

// Store is the secure storage for pre-auth secrets, keyed by server URL.
type Store interface {
	Set(serverURL, secret string) error
	Get(serverURL string) (string, error)
	Delete(serverURL string) error
}

// Normalize trims a pre-auth secret. An all-whitespace secret is treated as
// absent.
func Normalize(secret string) string {
	return strings.TrimSpace(secret)
}

// KeyringStore implements Store using the system keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring-backed secret store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: ServiceName}
}

// Set stores a secret for a server URL. An empty (or all-whitespace) secret
// deletes any stored value instead.
func (s *KeyringStore) Set(serverURL, secret string) error {
	if serverURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	normalized := Normalize(secret)
	if normalized == "" {
		if err := s.Delete(serverURL); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	}

	if err := keyring.Set(s.service, serverURL, normalized); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

// Get retrieves the secret for a server URL.
func (s *KeyringStore) Get(serverURL string) (string, error) {
	if serverURL == "" {
		return "", fmt.Errorf("server URL cannot be empty")
	}

	value, err := keyring.Get(s.service, serverURL)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve secret: %w", err)
	}
	return value, nil
}

// Delete removes the secret for a server URL.
func (s *KeyringStore) Delete(serverURL string) error {
	if serverURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	if err := keyring.Delete(s.service, serverURL); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete secret: %w", err)
	}
	return nil
}
