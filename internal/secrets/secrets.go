// Package secrets seals meeting resource credentials at rest so the resource
// store never holds provider secrets in the clear.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var (
	// ErrInvalidKey indicates the sealing key is not 32 bytes of hex.
	ErrInvalidKey = errors.New("secrets: key must be 64 hex characters")
	// ErrCorruptCiphertext indicates the sealed value cannot be opened.
	ErrCorruptCiphertext = errors.New("secrets: cannot open sealed value")
)

// Sealer encrypts and decrypts short credential strings with a fixed
// symmetric key supplied via configuration.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives a sealer from a hex encoded 32 byte key.
func NewSealer(hexKey string) (*Sealer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != keySize {
		return nil, ErrInvalidKey
	}
	sealer := &Sealer{}
	copy(sealer.key[:], raw)
	return sealer, nil
}

// Seal encrypts the plaintext and returns a base64 value carrying the nonce.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if s == nil {
		return "", ErrInvalidKey
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if s == nil {
		return "", ErrInvalidKey
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize {
		return "", ErrCorruptCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrCorruptCiphertext
	}
	return string(plaintext), nil
}
