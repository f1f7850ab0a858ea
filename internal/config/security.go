package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// SecurityManager handles encryption and decryption of sensitive configuration data
type SecurityManager interface {
	// EncryptCredential encrypts sensitive authentication data for storage
	EncryptCredential(plaintext string) (string, error)

	// DecryptCredential decrypts stored authentication data for use
	DecryptCredential(ciphertext string) (string, error)

	// ValidateTokenFormat performs format validation on authentication tokens
	ValidateTokenFormat(token string, tokenType string) error

	// SecureKeyExists checks if encryption key material is available
	SecureKeyExists() bool

	// GenerateSecureKey creates new encryption key material
	GenerateSecureKey() error

	// ClearSecurityData removes all encryption key material
	ClearSecurityData() error
}

const (
	pbkdf2Iterations = 100000
	masterKeyBytes   = 32
	saltBytes        = 32
)

// tokenVault is the AES-256-GCM backed SecurityManager. The ciphertext key
// is derived from a persisted random salt plus a machine-local passphrase,
// so two managers on the same machine can decrypt each other's output but
// a copied config file is useless elsewhere.
type tokenVault struct {
	saltPath  string
	cryptoKey []byte
}

// NewSecurityManager opens the vault, creating salt material on first use
func NewSecurityManager() (SecurityManager, error) {
	saltPath, err := securitySaltPath()
	if err != nil {
		return nil, fmt.Errorf("failed to determine security key path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(saltPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create security directory: %w", err)
	}

	vault := &tokenVault{saltPath: saltPath}
	if vault.SecureKeyExists() {
		err = vault.deriveFromStoredSalt()
	} else {
		err = vault.GenerateSecureKey()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryption key: %w", err)
	}

	return vault, nil
}

// securitySaltPath resolves where the key salt lives, honoring XDG_DATA_HOME
func securitySaltPath() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatwire", "security", "master.key"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "chatwire", "security", "master.key"), nil
}

// machinePassphrase returns a passphrase stable for this host and user
func machinePassphrase() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows compatibility
	}
	return "chatwire-security-" + hostname + "-" + username
}

// deriveFromStoredSalt rebuilds the cipher key from salt saved on disk
func (v *tokenVault) deriveFromStoredSalt() error {
	raw, err := os.ReadFile(v.saltPath)
	if err != nil {
		return fmt.Errorf("failed to read master key file: %w", err)
	}
	salt, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("failed to decode key material: %w", err)
	}
	v.cryptoKey = pbkdf2.Key([]byte(machinePassphrase()), salt, pbkdf2Iterations, masterKeyBytes, sha256.New)
	return nil
}

// GenerateSecureKey creates fresh salt material, persists it with owner-only
// permissions, and derives the cipher key from it
func (v *tokenVault) GenerateSecureKey() error {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate random salt: %w", err)
	}
	if err := os.WriteFile(v.saltPath, []byte(hex.EncodeToString(salt)), 0600); err != nil {
		return fmt.Errorf("failed to write key material: %w", err)
	}
	v.cryptoKey = pbkdf2.Key([]byte(machinePassphrase()), salt, pbkdf2Iterations, masterKeyBytes, sha256.New)
	return nil
}

// SecureKeyExists reports whether salt material is present on disk
func (v *tokenVault) SecureKeyExists() bool {
	_, err := os.Stat(v.saltPath)
	return err == nil
}

// sealer builds the AEAD used for both encryption and decryption
func (v *tokenVault) sealer() (cipher.AEAD, error) {
	if v.cryptoKey == nil {
		return nil, fmt.Errorf("encryption key not available")
	}
	block, err := aes.NewCipher(v.cryptoKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// EncryptCredential seals a token with a fresh random nonce. The nonce is
// prepended to the ciphertext and the whole blob base64 encoded.
func (v *tokenVault) EncryptCredential(plaintext string) (string, error) {
	gcm, err := v.sealer()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptCredential reverses EncryptCredential
func (v *tokenVault) DecryptCredential(ciphertext string) (string, error) {
	gcm, err := v.sealer()
	if err != nil {
		return "", err
	}
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(blob) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce := blob[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, blob[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// ValidateTokenFormat checks a token against the rules for its auth type
func (v *tokenVault) ValidateTokenFormat(token string, tokenType string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token cannot be empty")
	}

	switch strings.ToLower(tokenType) {
	case "bearer":
		return validateBearerToken(token)
	case "none":
		return fmt.Errorf("no token should be provided when auth type is 'none'")
	default:
		return fmt.Errorf("unsupported token type: %s", tokenType)
	}
}

func validateBearerToken(token string) error {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return fmt.Errorf("bearer token cannot be empty")
	case strings.ContainsAny(token, " \t\n\r"):
		return fmt.Errorf("bearer token cannot contain whitespace")
	case len(token) < 8:
		return fmt.Errorf("bearer token appears to be too short (minimum 8 characters)")
	}
	return nil
}

// ClearSecurityData zeroes the in-memory key and removes the salt file
func (v *tokenVault) ClearSecurityData() error {
	for i := range v.cryptoKey {
		v.cryptoKey[i] = 0
	}
	v.cryptoKey = nil

	if err := os.Remove(v.saltPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove security key file: %w", err)
	}
	return nil
}
