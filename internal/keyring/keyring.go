package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitual/internal/constants"
)

var (
	// ErrNotFound is returned when no token is stored for the server
	ErrNotFound = errors.New("access token not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// TokenStore persists the access token for one backend in the OS keyring.
// Tokens for different servers are kept apart.
type TokenStore struct {
	server string
}

// NewTokenStore returns a store for the backend at serverURL
func NewTokenStore(serverURL string) *TokenStore {
	return &TokenStore{server: serverURL}
}

func (s *TokenStore) user() string {
	return constants.DefaultKeyringUser + "@" + s.server
}

// Load returns the stored token or ErrNotFound
func (s *TokenStore) Load() (string, error) {
	token, err := keyring.Get(constants.AppName, s.user())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

// Save stores token, replacing any previous one
func (s *TokenStore) Save(token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(constants.AppName, s.user(), token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *TokenStore) Clear() error {
	err := keyring.Delete(constants.AppName, s.user())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
