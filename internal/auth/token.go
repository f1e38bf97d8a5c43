package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/ticket-service/internal/config"
	"github.com/spec-kit/ticket-service/internal/domain"
	"github.com/spec-kit/ticket-service/internal/repository"
	apperrors "github.com/spec-kit/ticket-service/pkg/util"
)

// TokenType distinguishes the two credential kinds inside claims.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// AccountSource provides the account lookup that rotation needs.
type AccountSource interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// Claims describes the JWT payload for both credential kinds.
type Claims struct {
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	TokenType TokenType   `json:"token_type"`
	jwt.RegisteredClaims
}

// AccountID returns the subject claim.
func (c *Claims) AccountID() string {
	return c.Subject
}

// TokenPair bundles a freshly issued access/refresh credential pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresInSeconds int
}

// TokenService issues, verifies, and rotates bearer credentials. Access and
// refresh tokens are signed with distinct secrets; refresh validity is a
// store-membership check on top of the signature so logout takes effect before
// the embedded expiry.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	store         repository.RefreshTokenStore
	accounts      AccountSource
	now           func() time.Time
}

// NewTokenService builds the service from validated configuration.
func NewTokenService(cfg config.AuthConfig, store repository.RefreshTokenStore, accounts AccountSource) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL(),
		refreshTTL:    cfg.RefreshTTL(),
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
		store:         store,
		accounts:      accounts,
		now:           time.Now,
	}
}

// Issue mints a credential pair and records the refresh credential against the
// account. ExpiresInSeconds reflects the access credential only.
func (ts *TokenService) Issue(ctx context.Context, accountID, email string, role domain.Role) (*TokenPair, error) {
	accessToken, _, err := ts.sign(accountID, email, role, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refreshToken, _, err := ts.sign(accountID, email, role, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := ts.store.Add(ctx, accountID, Fingerprint(refreshToken), ts.refreshTTL); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresInSeconds: int(ts.accessTTL.Seconds()),
	}, nil
}

// VerifyAccess validates signature, issuer, audience, and expiry of an access
// credential.
func (ts *TokenService) VerifyAccess(token string) (*Claims, error) {
	return ts.parse(token, ts.accessSecret, TokenTypeAccess)
}

// VerifyRefresh validates a refresh credential and confirms the store still
// recognizes it as live for the account.
func (ts *TokenService) VerifyRefresh(ctx context.Context, token string) (*Claims, error) {
	claims, err := ts.parse(token, ts.refreshSecret, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	live, err := ts.store.Contains(ctx, claims.AccountID(), Fingerprint(token))
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, apperrors.NewTokenInvalid("refresh token is revoked")
	}
	return claims, nil
}

// RotateAccess verifies a refresh credential, re-checks the account is still
// active, and issues a new access credential. The refresh credential itself is
// not replaced.
func (ts *TokenService) RotateAccess(ctx context.Context, refreshToken string) (string, int, error) {
	claims, err := ts.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return "", 0, err
	}

	account, err := ts.accounts.GetByID(ctx, claims.AccountID())
	if err != nil {
		return "", 0, apperrors.NewTokenInvalid("account no longer exists")
	}
	if !account.CanAuthenticate() {
		return "", 0, apperrors.NewTokenInvalid("account is deactivated")
	}

	accessToken, _, err := ts.sign(account.ID, account.Email, account.Role, TokenTypeAccess)
	if err != nil {
		return "", 0, err
	}
	return accessToken, int(ts.accessTTL.Seconds()), nil
}

// Revoke removes a single refresh credential for the account; idempotent.
func (ts *TokenService) Revoke(ctx context.Context, accountID, refreshToken string) error {
	return ts.store.Remove(ctx, accountID, Fingerprint(refreshToken))
}

// RevokeAll removes every refresh credential for the account; idempotent.
func (ts *TokenService) RevokeAll(ctx context.Context, accountID string) error {
	return ts.store.RemoveAll(ctx, accountID)
}

// Fingerprint derives the stored identifier for a refresh credential. The raw
// token never reaches the store.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (ts *TokenService) sign(accountID, email string, role domain.Role, tokenType TokenType) (string, time.Time, error) {
	ttl := ts.accessTTL
	secret := ts.accessSecret
	if tokenType == TokenTypeRefresh {
		ttl = ts.refreshTTL
		secret = ts.refreshSecret
	}

	issuedAt := ts.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    ts.issuer,
			Audience:  jwt.ClaimStrings{ts.audience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (ts *TokenService) parse(tokenStr string, secret []byte, expected TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	},
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(ts.audience),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewTokenExpired()
		}
		return nil, apperrors.NewTokenInvalid("")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, apperrors.NewTokenInvalid("")
	}
	if claims.TokenType != expected {
		return nil, apperrors.NewTokenInvalid("wrong token type")
	}
	if !claims.Role.Valid() {
		return nil, apperrors.NewTokenInvalid("unknown role")
	}
	return claims, nil
}
