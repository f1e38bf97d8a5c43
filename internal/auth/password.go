package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordMinLength = 8
	passwordMaxLength = 128
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{};:,.<>?"
)

// commonSequences are trivial runs rejected regardless of other rules.
var commonSequences = []string{
	"abcdef", "qwerty", "asdfgh", "123456", "654321",
	"password", "letmein", "welcome",
}

// StrengthResult reports every policy violation at once so callers can show a
// complete error message instead of one rule at a time.
type StrengthResult struct {
	OK         bool
	Violations []string
}

// PasswordPolicy validates, hashes, and generates passwords.
type PasswordPolicy struct {
	cost int
}

// NewPasswordPolicy builds a policy with the given bcrypt cost.
func NewPasswordPolicy(cost int) *PasswordPolicy {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordPolicy{cost: cost}
}

// ValidateStrength checks the password against every rule and collects all
// violations; it never short-circuits.
func (p *PasswordPolicy) ValidateStrength(password string) StrengthResult {
	var violations []string

	if len(password) < passwordMinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", passwordMinLength))
	}
	if len(password) > passwordMaxLength {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", passwordMaxLength))
	}
	if !strings.ContainsAny(password, lowerChars) {
		violations = append(violations, "missing lowercase letter")
	}
	if !strings.ContainsAny(password, upperChars) {
		violations = append(violations, "missing uppercase letter")
	}
	if !strings.ContainsAny(password, digitChars) {
		violations = append(violations, "missing digit")
	}
	if !strings.ContainsAny(password, symbolChars) {
		violations = append(violations, "missing special character")
	}
	if hasRepeatedRun(password, 3) {
		violations = append(violations, "contains a run of 3 or more identical characters")
	}
	lowered := strings.ToLower(password)
	for _, seq := range commonSequences {
		if strings.Contains(lowered, seq) {
			violations = append(violations, fmt.Sprintf("contains a common sequence %q", seq))
			break
		}
	}

	return StrengthResult{OK: len(violations) == 0, Violations: violations}
}

// Hash produces a salted bcrypt hash of the password.
func (p *PasswordPolicy) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares a password against a stored hash. Malformed stored hashes
// yield false rather than an error; bcrypt itself is resistant to timing on
// early mismatch.
func (p *PasswordPolicy) Verify(password, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// GenerateRandom builds a random password guaranteed to satisfy every
// character-class rule. Used for operator-initiated resets only.
func (p *PasswordPolicy) GenerateRandom(length int) (string, error) {
	if length < passwordMinLength {
		length = 16
	}
	if length > passwordMaxLength {
		length = passwordMaxLength
	}

	classes := []string{lowerChars, upperChars, digitChars, symbolChars}
	chars := make([]byte, 0, length)

	// One character from each required class first, then fill from the union.
	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	all := lowerChars + upperChars + digitChars + symbolChars
	for len(chars) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Shuffle so the class-guaranteed characters are not positional.
	for i := len(chars) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		chars[i], chars[j] = chars[j], chars[i]
	}
	return string(chars), nil
}

func hasRepeatedRun(s string, run int) bool {
	count := 1
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			count++
			if count >= run {
				return true
			}
		} else {
			count = 1
		}
	}
	return false
}

func randomChar(set string) (byte, error) {
	idx, err := randomIndex(len(set))
	if err != nil {
		return 0, err
	}
	return set[idx], nil
}

func randomIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
