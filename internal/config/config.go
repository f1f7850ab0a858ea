// Package config implements configuration management for ChatWire. This file
// handles profile loading and persistence (YAML file under the user config
// directory), environment variable overrides, and secure credential storage
// for backend auth tokens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/chatwire/chatwire/internal/interfaces"
)

// Config represents the complete configuration file structure
type Config struct {
	Profiles map[string]interfaces.Profile `yaml:"profiles"`
}

// envOverrides captures per-run overrides from the process environment.
// They are applied on top of whichever profile is loaded, so a token or host
// never has to be written to disk just to try a backend out.
type envOverrides struct {
	Host              string        `env:"CHATWIRE_HOST"`
	Port              int           `env:"CHATWIRE_PORT"`
	Path              string        `env:"CHATWIRE_PATH"`
	TLS               *bool         `env:"CHATWIRE_TLS"`
	Token             string        `env:"CHATWIRE_TOKEN"`
	UserID            string        `env:"CHATWIRE_USER_ID"`
	UserName          string        `env:"CHATWIRE_USER_NAME"`
	HeartbeatInterval time.Duration `env:"CHATWIRE_HEARTBEAT_INTERVAL"`
	ConnectTimeout    time.Duration `env:"CHATWIRE_CONNECT_TIMEOUT"`
}

// Manager implements the ConfigManager interface
type Manager struct {
	configPath   string
	securityMgr  SecurityManager
	cachedConfig *Config
}

// NewManager creates a new configuration manager with OS-appropriate paths and security setup
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine configuration path: %w", err)
	}

	securityMgr, err := NewSecurityManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize security manager: %w", err)
	}

	manager := &Manager{
		configPath:  configPath,
		securityMgr: securityMgr,
	}

	if err := manager.ensureConfigDirectory(); err != nil {
		return nil, fmt.Errorf("failed to create configuration directory: %w", err)
	}

	return manager, nil
}

// getConfigPath determines the OS-appropriate configuration file path
func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}

	var configDir string
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		configDir = filepath.Join(xdgConfigHome, "chatwire")
	} else {
		configDir = filepath.Join(homeDir, ".config", "chatwire")
	}

	return filepath.Join(configDir, "profiles.yaml"), nil
}

// ensureConfigDirectory creates the configuration directory with secure permissions
func (m *Manager) ensureConfigDirectory() error {
	configDir := filepath.Dir(m.configPath)

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return nil
}

// loadConfig reads and parses the configuration file, creating defaults if necessary
func (m *Manager) loadConfig() (*Config, error) {
	if m.cachedConfig != nil {
		return m.cachedConfig, nil
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		config := m.createDefaultConfig()
		if err := m.saveConfig(config); err != nil {
			return nil, fmt.Errorf("failed to create default configuration: %w", err)
		}
		m.cachedConfig = config
		return config, nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	// Decrypt sensitive fields in profiles
	for name, profile := range config.Profiles {
		if profile.Auth.Type == "bearer" && profile.Auth.Token != "" {
			decryptedToken, err := m.securityMgr.DecryptCredential(profile.Auth.Token)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt token for profile %s: %w", name, err)
			}
			profile.Auth.Token = decryptedToken
			config.Profiles[name] = profile
		}
	}

	m.cachedConfig = &config
	return &config, nil
}

// saveConfig writes the configuration to disk with the auth tokens encrypted
func (m *Manager) saveConfig(config *Config) error {
	// Encrypt sensitive fields before persisting, without mutating the
	// in-memory copy callers keep using.
	persisted := Config{Profiles: make(map[string]interfaces.Profile, len(config.Profiles))}
	for name, profile := range config.Profiles {
		if profile.Auth.Type == "bearer" && profile.Auth.Token != "" {
			encrypted, err := m.securityMgr.EncryptCredential(profile.Auth.Token)
			if err != nil {
				return fmt.Errorf("failed to encrypt token for profile %s: %w", name, err)
			}
			profile.Auth.Token = encrypted
		}
		persisted.Profiles[name] = profile
	}

	data, err := yaml.Marshal(&persisted)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// createDefaultConfig builds the configuration written on first run
func (m *Manager) createDefaultConfig() *Config {
	return &Config{
		Profiles: map[string]interfaces.Profile{
			"default": {
				Name: "default",
				Host: "localhost",
				Port: 8080,
				Path: "/ws",
				Auth: interfaces.AuthConfig{
					Type: "none",
				},
				User: interfaces.UserIdentity{
					Name: "you",
				},
			},
		},
	}
}

// LoadProfile retrieves a profile by name and applies environment overrides
func (m *Manager) LoadProfile(name string) (*interfaces.Profile, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, err
	}

	profile, exists := config.Profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found in %s", name, m.configPath)
	}

	if err := applyEnvOverrides(&profile); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &profile, nil
}

// applyEnvOverrides parses CHATWIRE_* environment variables and lays them over
// the loaded profile.
func applyEnvOverrides(profile *interfaces.Profile) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return err
	}

	if overrides.Host != "" {
		profile.Host = overrides.Host
	}
	if overrides.Port != 0 {
		profile.Port = overrides.Port
	}
	if overrides.Path != "" {
		profile.Path = overrides.Path
	}
	if overrides.TLS != nil {
		profile.TLS = *overrides.TLS
	}
	if overrides.Token != "" {
		profile.Auth.Type = "bearer"
		profile.Auth.Token = overrides.Token
	}
	if overrides.UserID != "" {
		profile.User.ID = overrides.UserID
	}
	if overrides.UserName != "" {
		profile.User.Name = overrides.UserName
	}
	if overrides.HeartbeatInterval > 0 {
		profile.HeartbeatInterval = overrides.HeartbeatInterval
	}
	if overrides.ConnectTimeout > 0 {
		profile.ConnectTimeout = overrides.ConnectTimeout
	}

	return nil
}

// SaveProfile persists a profile to the configuration file
func (m *Manager) SaveProfile(profile *interfaces.Profile) error {
	if err := m.ValidateProfile(profile); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	config, err := m.loadConfig()
	if err != nil {
		return err
	}

	if config.Profiles == nil {
		config.Profiles = make(map[string]interfaces.Profile)
	}
	config.Profiles[profile.Name] = *profile

	return m.saveConfig(config)
}

// ListProfiles returns all available profile names
func (m *Manager) ListProfiles() ([]string, error) {
	config, err := m.loadConfig()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}
	return names, nil
}

// ValidateProfile ensures profile has all required fields
func (m *Manager) ValidateProfile(profile *interfaces.Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if strings.TrimSpace(profile.Name) == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if strings.TrimSpace(profile.Host) == "" {
		return fmt.Errorf("profile host cannot be empty")
	}
	if profile.Port <= 0 || profile.Port > 65535 {
		return fmt.Errorf("profile port must be between 1 and 65535")
	}

	switch profile.Auth.Type {
	case "", "none":
		// No credential required
	case "bearer":
		if err := m.securityMgr.ValidateTokenFormat(profile.Auth.Token, "bearer"); err != nil {
			return fmt.Errorf("invalid auth token: %w", err)
		}
	default:
		return fmt.Errorf("unsupported auth type: %s", profile.Auth.Type)
	}

	return nil
}

// GetConfigPath returns the path to the configuration file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
