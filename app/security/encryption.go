// Package security provides AES-256-GCM encryption for backup files, keyed
// by a per-device key generated on first use.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const keyFileName = "backup.key"

// encryptedPrefix marks an encrypted backup payload so import can tell the
// two formats apart.
const encryptedPrefix = "PLENC1:"

// LoadOrCreateKey returns the device's backup key, generating and persisting
// one under dir on first use.
func LoadOrCreateKey(dir string) ([]byte, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("could not create key directory: %w", err)
	}
	keyPath := filepath.Join(dir, keyFileName)

	if key, err := os.ReadFile(keyPath); err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("invalid key size: expected 32 bytes, got %d", len(key))
		}
		return key, nil
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	if err := os.WriteFile(keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("could not save key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext with AES-256-GCM and wraps it in the encrypted
// payload envelope.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(encryptedPrefix + base64.StdEncoding.EncodeToString(sealed)), nil
}

// IsEncrypted reports whether data carries the encrypted payload envelope
func IsEncrypted(data []byte) bool {
	return strings.HasPrefix(string(data), encryptedPrefix)
}

// Decrypt opens an encrypted payload envelope
func Decrypt(key, data []byte) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, fmt.Errorf("not an encrypted payload")
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(string(data), encryptedPrefix))
	if err != nil {
		return nil, fmt.Errorf("corrupt encrypted payload: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("corrupt encrypted payload: too short")
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
