// Package crypto encrypts persisted OAuth tokens with AES-256-GCM.
//
// Each call to Encrypt draws a fresh random nonce, so sealing the same token
// twice yields different ciphertexts. The output is base64 so it fits in a
// text column, a Redis string or a JSON file.
//
// Example usage:
//
//	enc, err := crypto.NewEncryptor(os.Getenv("TOKEN_ENCRYPTION_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	sealed, err := enc.Encrypt(tokenJSON)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"
	"nic-dns/internal/common/errors"
)

const (
	keyDerivationSalt       = "nic-dns-token-store"
	keyDerivationIterations = 10000
	keyLength               = 32
)

// Encryptor seals and opens byte payloads using AES-256-GCM.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor derives a 32-byte key from passphrase with PBKDF2-SHA256 and
// returns an Encryptor using it. The passphrase must not be empty.
func NewEncryptor(passphrase string) (*Encryptor, error) {
	if passphrase == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	key := pbkdf2.Key([]byte(passphrase), []byte(keyDerivationSalt), keyDerivationIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}

	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered data or a wrong key fail GCM
// authentication and return an error.
func (e *Encryptor) Decrypt(ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.InternalError("failed to decode ciphertext", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, errors.ValidationError("ciphertext too short")
	}

	plaintext, err := e.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, errors.InternalError("failed to decrypt", err)
	}
	return plaintext, nil
}
