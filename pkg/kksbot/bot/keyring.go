// Package bot – keyring.go provides credential storage using the operating
// system's native keyring (Linux: Secret Service/GNOME Keyring, macOS:
// Keychain, Windows: Credential Manager).
//
// Priority for resolving credentials:
//  1. KKSBOT_GEMINI_KEYS environment variable (also via .env)
//  2. OS keyring (encrypted by the OS, requires user session)
//  3. config.yaml values (least secure — plaintext on disk)
package bot

import (
	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "kksbot"

	// keyringCredentials is the key name for the comma-separated
	// ordered backend key list.
	keyringCredentials = "gemini_keys"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring.
// Returns empty string if not found.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	testKey := "__kksbot_test__"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// StoredCredentials returns the comma-separated key list from the OS
// keyring, or empty when none is stored.
func StoredCredentials() string {
	return GetKeyring(keyringCredentials)
}

// StoreCredentials saves the comma-separated key list to the OS keyring.
func StoreCredentials(raw string) error {
	return StoreKeyring(keyringCredentials, raw)
}

// DeleteCredentials removes the stored key list from the OS keyring.
func DeleteCredentials() error {
	return DeleteKeyring(keyringCredentials)
}
