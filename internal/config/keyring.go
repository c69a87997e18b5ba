package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "crisk-annotate"

	// KeyringRedisPasswordItem is the key for the shared cache password
	KeyringRedisPasswordItem = "redis-password"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveRedisPassword stores the redis password in the OS keychain
func (km *KeyringManager) SaveRedisPassword(password string) error {
	if password == "" {
		return fmt.Errorf("redis password cannot be empty")
	}

	if err := keyring.Set(KeyringService, KeyringRedisPasswordItem, password); err != nil {
		km.logger.Error("failed to save redis password to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("redis password saved to keychain", "service", KeyringService)
	return nil
}

// GetRedisPassword retrieves the redis password from the OS keychain
func (km *KeyringManager) GetRedisPassword() (string, error) {
	password, err := keyring.Get(KeyringService, KeyringRedisPasswordItem)
	if err == keyring.ErrNotFound {
		// Not an error - just not set yet
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get redis password from keychain", "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("redis password retrieved from keychain")
	return password, nil
}

// DeleteRedisPassword removes the redis password from the OS keychain
func (km *KeyringManager) DeleteRedisPassword() error {
	err := keyring.Delete(KeyringService, KeyringRedisPasswordItem)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	return nil
}

// IsAvailable checks if OS keychain is available
// Returns false on headless systems (CI/CD) where keychain isn't available
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}

	return true
}
