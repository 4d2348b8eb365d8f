package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups jobscout secrets in the OS keychain.
	KeyringService = "jobscout"
	// APIKeyAccount is the keychain account holding the Gemini API key.
	APIKeyAccount = "gemini-api-key"
)

// GetAPIKey reads the Gemini API key from the OS keychain.
func GetAPIKey() (string, error) {
	key, err := keyring.Get(KeyringService, APIKeyAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("API key not found in keychain (run 'jobscout key set')")
		}
		return "", fmt.Errorf("failed to read keychain: %w", err)
	}
	return key, nil
}

// SetAPIKey stores the Gemini API key in the OS keychain.
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key is empty")
	}
	return keyring.Set(KeyringService, APIKeyAccount, key)
}

// DeleteAPIKey removes the stored API key. Deleting a missing key is not an error.
func DeleteAPIKey() error {
	err := keyring.Delete(KeyringService, APIKeyAccount)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// ResolveSecrets fills an empty API key from the keychain.
// A missing keychain entry leaves the key empty for Validate to report.
func (c *Config) ResolveSecrets() {
	if c.APIKey != "" || c.Provider == "vertex" {
		return
	}
	if key, err := keyring.Get(KeyringService, APIKeyAccount); err == nil {
		c.APIKey = strings.TrimSpace(key)
	}
}
