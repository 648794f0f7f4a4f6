package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

//nolint:gochecknoglobals // sentinel error
var ErrInvalidKey = errors.New("secrets: invalid encryption key")

// minPassphraseLen guards DeriveVault against trivially guessable inputs.
const minPassphraseLen = 32

// Vault encrypts/decrypts credentials using AES-256-GCM. Callers bind each
// ciphertext to the record that owns it through the associated data, so a
// value copied onto another record fails to decrypt.
type Vault struct {
	aead cipher.AEAD
}

// NewVault creates a Vault with the given 32-byte encryption key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// DeriveVault expands a configured passphrase into a 32-byte key with
// HKDF-SHA256 and returns a Vault using it.
func DeriveVault(passphrase, salt string) (*Vault, error) {
	if len(passphrase) < minPassphraseLen {
		return nil, ErrInvalidKey
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(passphrase), []byte(salt), []byte("mentorpro gateway credentials"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("secrets.DeriveVault: %w", err)
	}

	return NewVault(key)
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext).
func (v *Vault) Encrypt(plaintext string, associated []byte) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets.Encrypt: generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), associated)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. The associated data must match the value used
// when encrypting.
func (v *Vault) Decrypt(ciphertext string, associated []byte) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("secrets.Decrypt: base64 decode: %w", err)
	}

	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("secrets.Decrypt: ciphertext too short")
	}

	plaintext, err := v.aead.Open(nil, data[:nonceSize], data[nonceSize:], associated)
	if err != nil {
		return "", fmt.Errorf("secrets.Decrypt: %w", err)
	}

	return string(plaintext), nil
}

// Mask hides all but the last four characters of a credential.
func Mask(secret string) string {
	const visible = 4
	if len(secret) <= visible {
		return "****"
	}
	return "****" + secret[len(secret)-visible:]
}
