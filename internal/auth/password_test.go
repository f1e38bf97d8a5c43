package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordPolicy_ValidateStrength(t *testing.T) {
	policy := NewPasswordPolicy(bcrypt.MinCost)

	tests := []struct {
		name       string
		password   string
		ok         bool
		violations []string
	}{
		{
			name:     "strong_password",
			password: "Str0ng!Pass",
			ok:       true,
		},
		{
			name:     "short_and_missing_classes",
			password: "short1",
			ok:       false,
			violations: []string{
				"must be at least 8 characters",
				"missing uppercase letter",
				"missing special character",
			},
		},
		{
			name:       "missing_digit",
			password:   "NoDigits!here",
			ok:         false,
			violations: []string{"missing digit"},
		},
		{
			name:       "repeated_run",
			password:   "Goood!Pass111x",
			ok:         false,
			violations: []string{"contains a run of 3 or more identical characters"},
		},
		{
			name:       "common_sequence",
			password:   "Qwerty!79zk",
			ok:         false,
			violations: []string{`contains a common sequence "qwerty"`},
		},
		{
			name:     "too_long",
			password: "Aa1!" + strings.Repeat("x", 130),
			ok:       false,
			violations: []string{
				"must be at most 128 characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := policy.ValidateStrength(tt.password)
			assert.Equal(t, tt.ok, result.OK)
			for _, v := range tt.violations {
				assert.Contains(t, result.Violations, v)
			}
			if tt.ok {
				assert.Empty(t, result.Violations)
			}
		})
	}
}

func TestPasswordPolicy_ValidateStrength_CollectsAllViolations(t *testing.T) {
	policy := NewPasswordPolicy(bcrypt.MinCost)

	// Empty input trips every character-class rule plus the length floor.
	result := policy.ValidateStrength("")
	assert.False(t, result.OK)
	assert.Len(t, result.Violations, 5)
}

func TestPasswordPolicy_HashAndVerify(t *testing.T) {
	policy := NewPasswordPolicy(bcrypt.MinCost)

	hash, err := policy.Hash("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!Pass", hash)

	assert.True(t, policy.Verify("Str0ng!Pass", hash))
	assert.False(t, policy.Verify("Wr0ng!Pass", hash))
	assert.False(t, policy.Verify("Str0ng!Pass", "not-a-bcrypt-hash"))
}

func TestPasswordPolicy_Hash_DistinctSalts(t *testing.T) {
	policy := NewPasswordPolicy(bcrypt.MinCost)

	first, err := policy.Hash("Str0ng!Pass")
	require.NoError(t, err)
	second, err := policy.Hash("Str0ng!Pass")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPasswordPolicy_Hash_Empty(t *testing.T) {
	policy := NewPasswordPolicy(bcrypt.MinCost)

	_, err := policy.Hash("")
	require.Error(t, err)
}

func TestPasswordPolicy_GenerateRandom(t *testing.T) {
	policy := NewPasswordPolicy(bcrypt.MinCost)

	tests := []struct {
		name    string
		length  int
		wantLen int
	}{
		{"default_length", 0, 16},
		{"explicit_length", 24, 24},
		{"below_minimum", 4, 16},
		{"above_maximum", 500, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			password, err := policy.GenerateRandom(tt.length)
			require.NoError(t, err)
			assert.Len(t, password, tt.wantLen)

			assert.True(t, strings.ContainsAny(password, lowerChars), "missing lowercase")
			assert.True(t, strings.ContainsAny(password, upperChars), "missing uppercase")
			assert.True(t, strings.ContainsAny(password, digitChars), "missing digit")
			assert.True(t, strings.ContainsAny(password, symbolChars), "missing symbol")
		})
	}
}
