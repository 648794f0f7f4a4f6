package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validKey(t *testing.T) []byte {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	return key
}

func TestNewVault_InvalidKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		keyLen int
	}{
		{name: "too short", keyLen: 16},
		{name: "too long", keyLen: 64},
		{name: "empty", keyLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := NewVault(make([]byte, tt.keyLen))
			assert.Nil(t, v)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestDeriveVault(t *testing.T) {
	t.Parallel()

	passphrase := strings.Repeat("p", 32)

	v1, err := DeriveVault(passphrase, "salt")
	require.NoError(t, err)
	v2, err := DeriveVault(passphrase, "salt")
	require.NoError(t, err)
	other, err := DeriveVault(passphrase, "other-salt")
	require.NoError(t, err)

	ad := []byte("mentor")
	ct, err := v1.Encrypt("asaas-key", ad)
	require.NoError(t, err)

	got, err := v2.Decrypt(ct, ad)
	require.NoError(t, err)
	assert.Equal(t, "asaas-key", got, "same passphrase and salt derive the same key")

	_, err = other.Decrypt(ct, ad)
	assert.Error(t, err)

	_, err = DeriveVault("short", "salt")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	owner := uuid.New()

	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "api key", plaintext: "$aact_YTU5YTE0M2M2N2I4MTIxNzlkN2Q4ZWQ2"},
		{name: "empty string", plaintext: ""},
		{name: "long value", plaintext: strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encrypted, encErr := v.Encrypt(tt.plaintext, owner[:])
			require.NoError(t, encErr)
			assert.NotEqual(t, tt.plaintext, encrypted)

			decrypted, decErr := v.Decrypt(encrypted, owner[:])
			require.NoError(t, decErr)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestDecrypt_WrongAssociatedData(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	owner, intruder := uuid.New(), uuid.New()
	encrypted, err := v.Encrypt("secret", owner[:])
	require.NoError(t, err)

	result, err := v.Decrypt(encrypted, intruder[:])
	require.Error(t, err)
	assert.Empty(t, result)
}

func TestEncrypt_DifferentCiphertexts(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	ct1, err := v.Encrypt("same-secret-value", nil)
	require.NoError(t, err)
	ct2, err := v.Encrypt("same-secret-value", nil)
	require.NoError(t, err)

	assert.NotEqual(t, ct1, ct2)
}

func TestDecrypt_InvalidCiphertext(t *testing.T) {
	t.Parallel()

	v, err := NewVault(validKey(t))
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
	}{
		{name: "not base64", ciphertext: "!!!not-base64!!!"},
		{name: "empty base64", ciphertext: base64.StdEncoding.EncodeToString([]byte{})},
		{name: "too short for nonce", ciphertext: base64.StdEncoding.EncodeToString([]byte("short"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, decErr := v.Decrypt(tt.ciphertext, nil)
			require.Error(t, decErr)
			assert.Empty(t, result)
		})
	}
}

func TestMask(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "****", Mask(""))
	assert.Equal(t, "****", Mask("abcd"))
	assert.Equal(t, "****6789", Mask("$aact_0123456789"))
}
