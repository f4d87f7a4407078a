// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package crypto provides the credential encryption used to protect
// service API keys and passwords at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidKeySize is returned when the encryption key is not 32 bytes.
	ErrInvalidKeySize = errors.New("encryption key must be 32 bytes")
	// ErrDecryptionFailed is returned when a ciphertext fails authentication:
	// corrupted, truncated, or encrypted under a different key. Callers must
	// surface it rather than treat the output as a credential.
	ErrDecryptionFailed = errors.New("decryption failed")
)

// defaultKDFSalt is used when no salt is configured, so that deployments
// sharing a master secret derive the same key across restarts.
const defaultKDFSalt = "queqiao-arr-salt"

// kdfIterations is the PBKDF2 iteration count for key derivation.
const kdfIterations = 100_000

// GenerateSecureToken generates a cryptographically secure random token
// of the specified byte length, returned as a hex-encoded string.
// For example, length=32 produces a 64-character hex string.
func GenerateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// DeriveKey derives a 32-byte AES key from the master secret using
/// PBKDF2-HMAC-SHA256. The derivation is deterministic: the same secret and
// salt always yield the same key, which is what lets ciphertexts survive
// process restarts. An empty salt selects the compiled-in default.
func DeriveKey(masterSecret, salt string) []byte {
	if salt == "" {
		salt = defaultKDFSalt
	}
	return pbkdf2.Key([]byte(masterSecret), []byte(salt), kdfIterations, 32, sha256.New)
}

// Encryptor provides AES-GCM encryption and decryption of credential
// strings. The key is immutable after construction and safe for concurrent
// use.
type Encryptor struct {
	key []byte
}

// NewEncryptor creates an Encryptor with the given 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}
	return &Encryptor{key: key}, nil
}

// NewEncryptorFromSecret derives a key from the master secret and wraps it
// in an Encryptor. This is the constructor the application wires at startup.
func NewEncryptorFromSecret(masterSecret, salt string) (*Encryptor, error) {
	if masterSecret == "" {
		return nil, errors.New("master secret must not be empty")
	}
	return NewEncryptor(DeriveKey(masterSecret, salt))
}

// Encrypt encrypts a plaintext string using AES-GCM and returns
// base64-encoded ciphertext. An empty plaintext is returned unchanged so
// absent credentials never produce a ciphertext of nothing.
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts a base64-encoded ciphertext that was produced by
// Encrypt. An empty input is returned unchanged. Any authentication or
// encoding failure is reported as ErrDecryptionFailed.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertextBytes := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}
