// Package crypto provides AES-256-GCM encryption and decryption for sensitive
// data at rest, such as OAuth refresh tokens and client secrets.
//
// Each encryption operation uses a unique random nonce, so encrypting the same
// plaintext twice produces different ciphertexts. GCM authenticates the
// ciphertext, so tampered data fails to decrypt.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"jobtrack/internal/common/errors"
)

// SecretBox handles encryption and decryption of sensitive values using
// AES-256-GCM. It is safe for concurrent use by multiple goroutines.
type SecretBox struct {
	key []byte // 32-byte AES-256 key
}

// NewSecretBox creates a SecretBox from a passphrase. The passphrase is run
// through PBKDF2 so keys of any length produce a proper 32-byte AES-256 key.
func NewSecretBox(key string) (*SecretBox, error) {
	if key == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	// Static salt keeps key derivation deterministic across restarts
	salt := []byte("jobtrack-credential-salt")
	derivedKey := pbkdf2.Key([]byte(key), salt, 10000, 32, sha256.New)

	return &SecretBox{key: derivedKey}, nil
}

// Encrypt encrypts a plaintext string and returns base64(nonce || ciphertext).
// Empty input is returned as an empty string without encryption.
func (e *SecretBox) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Wrong keys, truncated input, or tampering all
// produce an error. Empty input is returned as an empty string.
func (e *SecretBox) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}

	return string(plaintext), nil
}
