// Package vault seals and opens account session secrets with AES-256-GCM.
//
// A sealed value is three hex segments joined by colons: iv, ciphertext,
// and authentication tag. The IV is freshly generated per Seal call, so
// sealing the same plaintext twice yields different outputs.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	ivSize  = 16
	tagSize = 16
	keySize = 32
)

// ErrIntegrity is returned when a sealed value is malformed or its
// authentication tag does not verify. Opening never returns partial
// plaintext.
var ErrIntegrity = errors.New("vault: integrity check failed")

// Vault encrypts and decrypts secrets with a key derived from the
// configured secret string.
type Vault struct {
	key []byte
}

// New derives the cipher key from secret, padding with zero bytes or
// truncating to the AES-256 key length.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, errors.New("vault: empty key material")
	}
	key := make([]byte, keySize)
	copy(key, secret)
	return &Vault{key: key}, nil
}

// Seal encrypts plaintext and returns the colon-joined hex form
// "iv:ciphertext:tag".
func (v *Vault) Seal(plaintext string) (string, error) {
	gcm, err := v.cipher()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("vault: generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	// Seal appends the tag to the ciphertext; store it as its own segment.
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct) + ":" + hex.EncodeToString(tag), nil
}

// Open verifies and decrypts a sealed value produced by Seal. Any
// malformed input or tag mismatch yields ErrIntegrity.
func (v *Vault) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, ":")
	if len(parts) != 3 {
		return "", ErrIntegrity
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrIntegrity
	}
	ct, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrIntegrity
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return "", ErrIntegrity
	}

	gcm, err := v.cipher()
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}

func (v *Vault) cipher() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm init: %w", err)
	}
	return gcm, nil
}
