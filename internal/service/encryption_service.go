package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const sealedSeedVersion byte = 1

var errSealedTooShort = errors.New("sealed value too short")

// AESEncryptionService seals shoe seeds with AES-256-GCM. Each value is
// bound to a round ID through the GCM additional data, so a ciphertext
// copied onto another round fails to open.
type AESEncryptionService struct {
	aead cipher.AEAD
}

// NewAESEncryptionService takes a 64-character hex key.
func NewAESEncryptionService(hexKey string) (*AESEncryptionService, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &AESEncryptionService{aead: aead}, nil
}

// GenerateKeyHex returns a fresh random key in the format NewAESEncryptionService expects.
func GenerateKeyHex() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// Encrypt returns base64url(version || nonce || ciphertext).
func (s *AESEncryptionService) Encrypt(plaintext, binding string) (string, error) {
	out := make([]byte, 1, 1+s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	out[0] = sealedSeedVersion

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, []byte(plaintext), s.additionalData(binding))
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt for the same binding.
func (s *AESEncryptionService) Decrypt(sealed, binding string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decoding sealed value: %w", err)
	}
	if len(raw) < 1+s.aead.NonceSize()+s.aead.Overhead() {
		return "", errSealedTooShort
	}
	if raw[0] != sealedSeedVersion {
		return "", fmt.Errorf("unsupported sealed value version %d", raw[0])
	}

	nonce, body := raw[1:1+s.aead.NonceSize()], raw[1+s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, body, s.additionalData(binding))
	if err != nil {
		return "", fmt.Errorf("opening sealed value: %w", err)
	}
	return string(plaintext), nil
}

func (s *AESEncryptionService) additionalData(binding string) []byte {
	return append([]byte{sealedSeedVersion}, binding...)
}
