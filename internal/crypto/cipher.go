// Package crypto provides the field-level encryption facility: PBKDF2 key
// derivation, AES-256-GCM envelopes, and irreversible hashing for values that
// must be comparable but never recovered.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/pbkdf2"

	"github.com/spec-kit/ticket-service/internal/config"
)

const (
	keyLength      = 32 // AES-256
	nonceLength    = 12
	hashSaltLength = 16
)

// ErrEnvelopeInvalid is returned whenever an envelope fails to decode or its
// authentication tag does not verify. Decryption fails closed: callers never
// see partial plaintext.
var ErrEnvelopeInvalid = errors.New("encrypted envelope is invalid")

// Cipher performs authenticated encryption of sensitive field values.
type Cipher struct {
	aead       cipher.AEAD
	iterations int
	logger     *zap.Logger
}

// NewCipher derives the AES key from the configured secret and salt. The raw
// secret is never used directly as a cipher key.
func NewCipher(cfg config.CryptoConfig, logger *zap.Logger) (*Cipher, error) {
	if cfg.Key == "" || cfg.Salt == "" {
		return nil, errors.New("encryption key and salt are required")
	}
	iterations := cfg.PBKDF2Iterations
	if iterations <= 0 {
		iterations = 100000
	}

	key := DeriveKey(cfg.Key, []byte(cfg.Salt), iterations)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead, iterations: iterations, logger: logger}, nil
}

// DeriveKey runs PBKDF2-SHA256 so the same (secret, salt) pair always yields
// the same key.
func DeriveKey(secret string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(secret), salt, iterations, keyLength, sha256.New)
}

// Encrypt seals the plaintext under a fresh random nonce and returns the
// envelope as a single opaque token: base64url(nonce || ciphertext || tag).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens an envelope, verifying the authentication tag before any
// plaintext is returned.
func (c *Cipher) Decrypt(envelope string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(envelope)
	if err != nil {
		return "", ErrEnvelopeInvalid
	}
	if len(raw) < nonceLength+c.aead.Overhead() {
		return "", ErrEnvelopeInvalid
	}
	plaintext, err := c.aead.Open(nil, raw[:nonceLength], raw[nonceLength:], nil)
	if err != nil {
		return "", ErrEnvelopeInvalid
	}
	return string(plaintext), nil
}

// EncryptField is the null-safe wrapper for optional persisted attributes.
func (c *Cipher) EncryptField(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	envelope, err := c.Encrypt(*value)
	if err != nil {
		return nil, err
	}
	return &envelope, nil
}

// DecryptField returns nil on any decrypt failure so one corrupted field
// cannot take down an unrelated read path. The failure is logged, never
// propagated.
func (c *Cipher) DecryptField(envelope *string) *string {
	if envelope == nil {
		return nil
	}
	plaintext, err := c.Decrypt(*envelope)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("failed to decrypt field, returning null", zap.Error(err))
		}
		return nil
	}
	return &plaintext
}

// HashIrreversible derives a one-way hash for values that must be comparable
// but never recovered. A random salt is generated when none is supplied.
func (c *Cipher) HashIrreversible(value string, salt []byte) (hash string, outSalt string, err error) {
	if len(salt) == 0 {
		salt = make([]byte, hashSaltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return "", "", err
		}
	}
	derived := pbkdf2.Key([]byte(value), salt, c.iterations, keyLength, sha256.New)
	return hex.EncodeToString(derived), hex.EncodeToString(salt), nil
}

// VerifyHash recomputes the irreversible hash and compares in constant time.
func (c *Cipher) VerifyHash(value, hash, salt string) bool {
	saltBytes, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	hashBytes, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	derived := pbkdf2.Key([]byte(value), saltBytes, c.iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(derived, hashBytes) == 1
}
