// Package auth implements credential management for ChatWire: token format
// validation before a connection attempt and encrypted at-rest storage for
// auth tokens, backed by the config package's security manager.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/chatwire/chatwire/internal/config"
	"github.com/chatwire/chatwire/internal/logging"
)

// Manager implements the AuthManager interface
type Manager struct {
	securityMgr config.SecurityManager
	storePath   string
	logger      *logging.Logger
	mutex       sync.Mutex
}

// NewManager creates an auth manager with its own security manager instance
func NewManager() (*Manager, error) {
	securityMgr, err := config.NewSecurityManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize security manager: %w", err)
	}

	storePath, err := getCredentialStorePath()
	if err != nil {
		return nil, err
	}

	return &Manager{
		securityMgr: securityMgr,
		storePath:   storePath,
		logger:      logging.GetAuthLogger(),
	}, nil
}

// getCredentialStorePath determines where encrypted credentials are kept
func getCredentialStorePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	var dataDir string
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		dataDir = filepath.Join(xdgDataHome, "chatwire")
	} else {
		dataDir = filepath.Join(homeDir, ".local", "share", "chatwire")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return filepath.Join(dataDir, "credentials.yaml"), nil
}

// ValidateToken verifies the format and basic validity of an authentication token
func (m *Manager) ValidateToken(token string, tokenType string) error {
	m.logger.LogAuthOperation("validate", tokenType)

	if strings.ToLower(tokenType) == "none" {
		if strings.TrimSpace(token) != "" {
			return fmt.Errorf("token provided but auth type is 'none'")
		}
		return nil
	}

	return m.securityMgr.ValidateTokenFormat(token, tokenType)
}

// SecureStore encrypts and stores sensitive authentication data
func (m *Manager) SecureStore(key string, value string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entries, err := m.loadEntries()
	if err != nil {
		return err
	}

	encrypted, err := m.securityMgr.EncryptCredential(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential: %w", err)
	}

	entries[key] = encrypted
	return m.saveEntries(entries)
}

// SecureRetrieve decrypts and retrieves sensitive authentication data
func (m *Manager) SecureRetrieve(key string) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entries, err := m.loadEntries()
	if err != nil {
		return "", err
	}

	encrypted, exists := entries[key]
	if !exists {
		return "", fmt.Errorf("no credential stored for key %q", key)
	}

	value, err := m.securityMgr.DecryptCredential(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return value, nil
}

// ClearSecureData removes all stored authentication credentials
func (m *Manager) ClearSecureData() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := os.Remove(m.storePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credential store: %w", err)
	}
	return nil
}

// loadEntries reads the encrypted credential map from disk
func (m *Manager) loadEntries() (map[string]string, error) {
	data, err := os.ReadFile(m.storePath)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential store: %w", err)
	}

	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse credential store: %w", err)
	}
	return entries, nil
}

// saveEntries writes the encrypted credential map to disk
func (m *Manager) saveEntries(entries map[string]string) error {
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to serialize credential store: %w", err)
	}

	if err := os.WriteFile(m.storePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential store: %w", err)
	}
	return nil
}
