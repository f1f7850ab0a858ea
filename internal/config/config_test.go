package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwire/chatwire/internal/interfaces"
)

// isolateHome points every config, data, and cache path at a temp directory
// so tests never touch the real user environment.
func isolateHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home+"/.config")
	t.Setenv("XDG_DATA_HOME", home+"/.local/share")
	t.Setenv("XDG_CACHE_HOME", home+"/.cache")

	// Clear any ambient overrides so they cannot leak into assertions
	for _, key := range []string{
		"CHATWIRE_HOST", "CHATWIRE_PORT", "CHATWIRE_PATH", "CHATWIRE_TLS",
		"CHATWIRE_TOKEN", "CHATWIRE_USER_ID", "CHATWIRE_USER_NAME",
		"CHATWIRE_HEARTBEAT_INTERVAL", "CHATWIRE_CONNECT_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFirstRunCreatesDefaultProfile(t *testing.T) {
	isolateHome(t)

	manager, err := NewManager()
	require.NoError(t, err)

	profile, err := manager.LoadProfile("default")
	require.NoError(t, err)
	assert.Equal(t, "localhost", profile.Host)
	assert.Equal(t, 8080, profile.Port)
	assert.Equal(t, "/ws", profile.Path)
	assert.Equal(t, "none", profile.Auth.Type)
}

func TestLoadProfileUnknownName(t *testing.T) {
	isolateHome(t)

	manager, err := NewManager()
	require.NoError(t, err)

	_, err = manager.LoadProfile("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestSaveAndReloadProfile(t *testing.T) {
	isolateHome(t)

	manager, err := NewManager()
	require.NoError(t, err)

	profile := &interfaces.Profile{
		Name: "staging",
		Host: "chat.staging.example.com",
		Port: 443,
		Path: "/ws",
		TLS:  true,
		Auth: interfaces.AuthConfig{Type: "none"},
		User: interfaces.UserIdentity{Name: "Ada"},
	}
	require.NoError(t, manager.SaveProfile(profile))

	names, err := manager.ListProfiles()
	require.NoError(t, err)
	assert.Contains(t, names, "staging")

	got, err := manager.LoadProfile("staging")
	require.NoError(t, err)
	assert.Equal(t, "chat.staging.example.com", got.Host)
	assert.True(t, got.TLS)
}

func TestBearerTokenEncryptedAtRest(t *testing.T) {
	isolateHome(t)

	manager, err := NewManager()
	require.NoError(t, err)

	profile := &interfaces.Profile{
		Name: "secure",
		Host: "chat.example.com",
		Port: 443,
		Auth: interfaces.AuthConfig{Type: "bearer", Token: "super-secret-token"},
	}
	require.NoError(t, manager.SaveProfile(profile))

	// The plaintext token must not appear in the file on disk
	data, err := os.ReadFile(manager.GetConfigPath())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret-token")

	// A fresh manager with the same machine key decrypts it transparently
	reloaded, err := NewManager()
	require.NoError(t, err)
	got, err := reloaded.LoadProfile("secure")
	require.NoError(t, err)
	assert.Equal(t, "super-secret-token", got.Auth.Token)
}

func TestEnvOverridesApplyOnLoad(t *testing.T) {
	isolateHome(t)
	t.Setenv("CHATWIRE_HOST", "override.example.com")
	t.Setenv("CHATWIRE_PORT", "9443")
	t.Setenv("CHATWIRE_TLS", "true")
	t.Setenv("CHATWIRE_TOKEN", "env-token-123")
	t.Setenv("CHATWIRE_HEARTBEAT_INTERVAL", "10s")

	manager, err := NewManager()
	require.NoError(t, err)

	profile, err := manager.LoadProfile("default")
	require.NoError(t, err)
	assert.Equal(t, "override.example.com", profile.Host)
	assert.Equal(t, 9443, profile.Port)
	assert.True(t, profile.TLS)
	assert.Equal(t, "bearer", profile.Auth.Type)
	assert.Equal(t, "env-token-123", profile.Auth.Token)
	assert.Equal(t, 10*time.Second, profile.HeartbeatInterval)
}

func TestValidateProfile(t *testing.T) {
	isolateHome(t)

	manager, err := NewManager()
	require.NoError(t, err)

	valid := &interfaces.Profile{
		Name: "ok",
		Host: "localhost",
		Port: 8080,
		Auth: interfaces.AuthConfig{Type: "none"},
	}
	assert.NoError(t, manager.ValidateProfile(valid))

	assert.Error(t, manager.ValidateProfile(nil))

	noName := *valid
	noName.Name = " "
	assert.Error(t, manager.ValidateProfile(&noName))

	badPort := *valid
	badPort.Port = 70000
	assert.Error(t, manager.ValidateProfile(&badPort))

	badAuth := *valid
	badAuth.Auth.Type = "kerberos"
	assert.Error(t, manager.ValidateProfile(&badAuth))

	shortToken := *valid
	shortToken.Auth = interfaces.AuthConfig{Type: "bearer", Token: "short"}
	assert.Error(t, manager.ValidateProfile(&shortToken))
}

func TestSecurityManagerRoundTrip(t *testing.T) {
	isolateHome(t)

	securityMgr, err := NewSecurityManager()
	require.NoError(t, err)

	ciphertext, err := securityMgr.EncryptCredential("attack at dawn")
	require.NoError(t, err)
	assert.NotEqual(t, "attack at dawn", ciphertext)
	assert.False(t, strings.Contains(ciphertext, "attack"))

	plaintext, err := securityMgr.DecryptCredential(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "attack at dawn", plaintext)

	// Each encryption uses a fresh nonce
	second, err := securityMgr.EncryptCredential("attack at dawn")
	require.NoError(t, err)
	assert.NotEqual(t, ciphertext, second)
}

func TestValidateTokenFormat(t *testing.T) {
	isolateHome(t)

	securityMgr, err := NewSecurityManager()
	require.NoError(t, err)

	assert.NoError(t, securityMgr.ValidateTokenFormat("a-valid-token", "bearer"))
	assert.Error(t, securityMgr.ValidateTokenFormat("", "bearer"))
	assert.Error(t, securityMgr.ValidateTokenFormat("short", "bearer"))
	assert.Error(t, securityMgr.ValidateTokenFormat("has whitespace inside", "bearer"))
	assert.Error(t, securityMgr.ValidateTokenFormat("some-token", "none"))
	assert.Error(t, securityMgr.ValidateTokenFormat("some-token", "saml"))
}
