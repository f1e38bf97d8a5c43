// Package webhook verifies the authenticity of inbound webhook payloads via a
// shared-secret HMAC over the exact raw body bytes. Every inbound webhook
// endpoint (chat platform, external ticketing system) uses the same verifier.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const signaturePrefix = "sha256="

// Standard header names shared by every inbound integration.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

var (
	// ErrSignatureMismatch covers a structurally valid signature that does
	// not match the body.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	// ErrSignatureMalformed covers missing prefix or invalid hex.
	ErrSignatureMalformed = errors.New("webhook signature malformed")
	// ErrReplayWindowExceeded covers timestamps outside the allowed skew.
	ErrReplayWindowExceeded = errors.New("webhook timestamp outside replay window")
)

// Verifier checks shared-secret HMAC signatures with replay protection. It is
// agnostic to which webhook source calls it; construct one per integration
// secret.
type Verifier struct {
	secret  []byte
	maxSkew time.Duration
	now     func() time.Time
}

// NewVerifier builds a verifier for one integration's shared secret.
func NewVerifier(secret string, maxSkew time.Duration) *Verifier {
	if maxSkew <= 0 {
		maxSkew = 300 * time.Second
	}
	return &Verifier{secret: []byte(secret), maxSkew: maxSkew, now: time.Now}
}

// Sign computes the HMAC-SHA256 over the exact raw body bytes. The body must
// not be re-serialized before signing: re-serialization can reorder keys or
// change whitespace and silently break verification.
func (v *Verifier) Sign(rawBody []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over rawBody and compares in constant time.
// A non-zero timestamp is additionally checked against the replay window on
// both sides of the verifier's clock.
func (v *Verifier) Verify(rawBody []byte, providedSignature string, timestamp int64) error {
	if timestamp != 0 {
		skew := v.now().Unix() - timestamp
		if skew < 0 {
			skew = -skew
		}
		if time.Duration(skew)*time.Second > v.maxSkew {
			return ErrReplayWindowExceeded
		}
	}

	if !strings.HasPrefix(providedSignature, signaturePrefix) {
		return ErrSignatureMalformed
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(providedSignature, signaturePrefix))
	if err != nil {
		return ErrSignatureMalformed
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

// ParseTimestamp reads a unix-seconds timestamp header value; zero means no
// timestamp was supplied.
func ParseTimestamp(header string) (int64, error) {
	if header == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(header), 10, 64)
	if err != nil {
		return 0, errors.New("webhook timestamp malformed")
	}
	return ts, nil
}
