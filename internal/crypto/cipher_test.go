package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/config"
)

func testCryptoConfig() config.CryptoConfig {
	return config.CryptoConfig{
		Key:              "0123456789abcdef0123456789abcdef",
		Salt:             "static-test-salt",
		PBKDF2Iterations: 1000, // keep tests fast; production default is 100k
	}
}

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(testCryptoConfig(), zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewCipher_RequiresKeyAndSalt(t *testing.T) {
	_, err := NewCipher(config.CryptoConfig{Salt: "salt"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewCipher(config.CryptoConfig{Key: "key"}, zap.NewNop())
	assert.Error(t, err)
}

func TestCipher_EncryptDecrypt(t *testing.T) {
	c := newTestCipher(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple", "customer@example.com"},
		{"empty", ""},
		{"unicode", "bjørn@example.no ✓"},
		{"long", string(make([]byte, 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := c.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.NotContains(t, envelope, tt.plaintext)

			decrypted, err := c.Decrypt(envelope)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestCipher_Encrypt_FreshNonce(t *testing.T) {
	c := newTestCipher(t)

	first, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCipher_Decrypt_FailsClosed(t *testing.T) {
	c := newTestCipher(t)

	envelope, err := c.Encrypt("sensitive value")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(envelope)
	require.NoError(t, err)

	tests := []struct {
		name     string
		envelope string
	}{
		{"not_base64", "%%%not-base64%%%"},
		{"truncated", base64.RawURLEncoding.EncodeToString(raw[:8])},
		{"flipped_ciphertext_bit", flipBit(raw, len(raw)-1)},
		{"flipped_nonce_bit", flipBit(raw, 0)},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.envelope)
			assert.ErrorIs(t, err, ErrEnvelopeInvalid)
		})
	}
}

func TestCipher_KeyDerivationIsDeterministic(t *testing.T) {
	a, err := NewCipher(testCryptoConfig(), zap.NewNop())
	require.NoError(t, err)
	b, err := NewCipher(testCryptoConfig(), zap.NewNop())
	require.NoError(t, err)

	envelope, err := a.Encrypt("shared secret material")
	require.NoError(t, err)

	decrypted, err := b.Decrypt(envelope)
	require.NoError(t, err)
	assert.Equal(t, "shared secret material", decrypted)
}

func TestCipher_DifferentSaltDifferentKey(t *testing.T) {
	a := newTestCipher(t)

	cfg := testCryptoConfig()
	cfg.Salt = "another-salt"
	b, err := NewCipher(cfg, zap.NewNop())
	require.NoError(t, err)

	envelope, err := a.Encrypt("cross-key read")
	require.NoError(t, err)

	_, err = b.Decrypt(envelope)
	assert.ErrorIs(t, err, ErrEnvelopeInvalid)
}

func TestCipher_FieldHelpers(t *testing.T) {
	c := newTestCipher(t)

	encrypted, err := c.EncryptField(nil)
	require.NoError(t, err)
	assert.Nil(t, encrypted)
	assert.Nil(t, c.DecryptField(nil))

	value := "customer@example.com"
	encrypted, err = c.EncryptField(&value)
	require.NoError(t, err)
	require.NotNil(t, encrypted)
	assert.NotEqual(t, value, *encrypted)

	decrypted := c.DecryptField(encrypted)
	require.NotNil(t, decrypted)
	assert.Equal(t, value, *decrypted)

	// Corrupted envelopes degrade to null instead of failing the read.
	garbage := "not-an-envelope"
	assert.Nil(t, c.DecryptField(&garbage))
}

func TestCipher_HashIrreversible(t *testing.T) {
	c := newTestCipher(t)

	hash, salt, err := c.HashIrreversible("national-id-1234", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)

	assert.True(t, c.VerifyHash("national-id-1234", hash, salt))
	assert.False(t, c.VerifyHash("national-id-9999", hash, salt))
	assert.False(t, c.VerifyHash("national-id-1234", hash, "zz-not-hex"))

	// Same value with a fresh random salt yields a different hash.
	otherHash, otherSalt, err := c.HashIrreversible("national-id-1234", nil)
	require.NoError(t, err)
	assert.NotEqual(t, hash, otherHash)
	assert.NotEqual(t, salt, otherSalt)
}

func flipBit(raw []byte, index int) string {
	mutated := make([]byte, len(raw))
	copy(mutated, raw)
	mutated[index] ^= 0x01
	return base64.RawURLEncoding.EncodeToString(mutated)
}
