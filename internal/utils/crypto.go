package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const tokenKeyIterations = 100_000

// TokenCipher encrypts platform access/refresh tokens at rest. The key is
// derived once from the configured secret and salt.
type TokenCipher struct {
	aead cipher.AEAD
}

func NewTokenCipher(secret, salt string) (*TokenCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("token cipher: empty secret")
	}
	key := pbkdf2.Key([]byte(secret), []byte(salt), tokenKeyIterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("token cipher: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("token cipher: decode: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("token cipher: ciphertext too short")
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("token cipher: open: %w", err)
	}
	return string(plain), nil
}
