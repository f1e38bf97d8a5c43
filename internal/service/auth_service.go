package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-service/internal/auth"
	"github.com/spec-kit/ticket-service/internal/config"
	"github.com/spec-kit/ticket-service/internal/domain"
	"github.com/spec-kit/ticket-service/internal/events"
	"github.com/spec-kit/ticket-service/internal/ratelimit"
	"github.com/spec-kit/ticket-service/internal/repository"
	"github.com/spec-kit/ticket-service/internal/worker"
	apperrors "github.com/spec-kit/ticket-service/pkg/util"
)

// Actor identifies the authenticated caller of a management operation.
type Actor struct {
	ID   string
	Role domain.Role
}

// AuthService coordinates registration, login, credential lifecycle, and
// account management flows.
type AuthService struct {
	accounts   repository.AccountRepository
	resets     repository.PasswordResetRepository
	tokens     *auth.TokenService
	authorizer *auth.Authorizer
	policy     *auth.PasswordPolicy
	hashPool   *worker.HashPool
	limiter    *ratelimit.LoginLimiter
	dispatcher events.Dispatcher
	logger     *zap.Logger
	resetTTL   time.Duration
}

// AuthDependencies encapsulates collaborator requirements for the auth service.
type AuthDependencies struct {
	AccountRepo       repository.AccountRepository
	PasswordResetRepo repository.PasswordResetRepository
	TokenStore        repository.RefreshTokenStore
	Limiter           *ratelimit.LoginLimiter
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		resets:     deps.PasswordResetRepo,
		tokens:     auth.NewTokenService(cfg.Auth, deps.TokenStore, deps.AccountRepo),
		authorizer: auth.NewAuthorizer(),
		policy:     auth.NewPasswordPolicy(cfg.Auth.BcryptCost),
		hashPool:   worker.NewHashPool(cfg.Auth.HashWorkers, cfg.Auth.HashTimeout()),
		limiter:    deps.Limiter,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		resetTTL:   cfg.Auth.PasswordResetTTL(),
	}
}

// Register creates a new account and issues its first credential pair. New
// accounts start at the read-only level; role grants are a separate,
// permission-gated operation.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Account, *auth.TokenPair, error) {
	if result := s.policy.ValidateStrength(password); !result.OK {
		return nil, nil, apperrors.NewValidationError("password does not meet policy",
			map[string]any{"violations": result.Violations})
	}

	email = domain.NormalizeEmail(email)
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflict("email is already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return nil, nil, err
	}

	account := &domain.Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         domain.RoleReadOnly,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.Issue(ctx, account.ID, account.Email, account.Role)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventAccountRegistered, account.ID, nil))
	return account, pair, nil
}

// Login authenticates an account and issues a credential pair. Unknown email
// and wrong password produce the identical generic error so responses cannot
// be used to enumerate accounts.
func (s *AuthService) Login(ctx context.Context, email, password, remoteAddr string) (*domain.Account, *auth.TokenPair, error) {
	email = domain.NormalizeEmail(email)

	if !s.limiter.Allow(ctx, email, remoteAddr) {
		return nil, nil, apperrors.NewDomainError("RATE_LIMITED", "too many login attempts", http.StatusTooManyRequests, nil)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.loginFailed(ctx, email, remoteAddr, "unknown email")
			return nil, nil, apperrors.NewAuthenticationFailed()
		}
		return nil, nil, err
	}
	if !account.CanAuthenticate() {
		s.loginFailed(ctx, email, remoteAddr, "account deactivated")
		return nil, nil, apperrors.NewAuthenticationFailed()
	}

	ok, err := s.verifyPassword(ctx, password, account.PasswordHash)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		s.loginFailed(ctx, email, remoteAddr, "wrong password")
		return nil, nil, apperrors.NewAuthenticationFailed()
	}

	now := time.Now()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Error(err))
	}
	account.LastLoginAt = &now

	pair, err := s.tokens.Issue(ctx, account.ID, account.Email, account.Role)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, account.ID,
		events.LoginPayload{Email: email, RemoteAddr: remoteAddr}))
	return account, pair, nil
}

// Refresh mints a new access credential from a live refresh credential.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, int, error) {
	return s.tokens.RotateAccess(ctx, refreshToken)
}

// Logout revokes the presented refresh credential. Revoking one that is
// already gone is a no-op.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		if apperrors.IsCode(err, "TOKEN_INVALID") || apperrors.IsCode(err, "TOKEN_EXPIRED") {
			return nil
		}
		return err
	}
	return s.tokens.Revoke(ctx, claims.AccountID(), refreshToken)
}

// LogoutAll revokes every outstanding refresh credential for the account.
func (s *AuthService) LogoutAll(ctx context.Context, accountID string) error {
	if err := s.tokens.RevokeAll(ctx, accountID); err != nil {
		return err
	}
	s.publish(ctx, events.NewEvent(events.EventTokensRevoked, accountID,
		events.TokensRevokedPayload{Reason: "logout_all"}))
	return nil
}

// ChangePassword verifies the current password, applies the policy to the new
// one, and revokes all outstanding refresh credentials.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return mapAccountErr(err)
	}

	ok, err := s.verifyPassword(ctx, currentPassword, account.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewAuthenticationFailed()
	}

	if result := s.policy.ValidateStrength(newPassword); !result.OK {
		return apperrors.NewValidationError("password does not meet policy",
			map[string]any{"violations": result.Violations})
	}

	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	// Any reset token requested before the change is void now.
	if err := s.resets.MarkAllUsed(ctx, account.ID); err != nil {
		return err
	}

	if err := s.tokens.RevokeAll(ctx, account.ID); err != nil {
		return err
	}
	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, account.ID, nil))
	s.publish(ctx, events.NewEvent(events.EventTokensRevoked, account.ID,
		events.TokensRevokedPayload{Reason: "password_change"}))
	return nil
}

// InitiatePasswordReset creates a single-use reset token when the email is
// known. A nil token with nil error means the email did not match an account;
// callers must respond identically either way.
func (s *AuthService) InitiatePasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	account, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	token := &repository.PasswordResetToken{
		AccountID: account.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token, updates the password, and
// revokes all outstanding refresh credentials.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewTokenInvalid("reset token is invalid or expired")
		}
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewTokenInvalid("reset token is invalid or expired")
	}

	if result := s.policy.ValidateStrength(newPassword); !result.OK {
		return apperrors.NewValidationError("password does not meet policy",
			map[string]any{"violations": result.Violations})
	}

	account, err := s.accounts.GetByID(ctx, token.AccountID)
	if err != nil {
		return mapAccountErr(err)
	}

	hash, err := s.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}
	// Void the consumed token and any other reset emails still in flight.
	if err := s.resets.MarkAllUsed(ctx, account.ID); err != nil {
		return err
	}

	if err := s.tokens.RevokeAll(ctx, account.ID); err != nil {
		return err
	}
	s.publish(ctx, events.NewEvent(events.EventPasswordChanged, account.ID, nil))
	return nil
}

// UpdateRole changes an account's role after both the advisory assignment
// rules and the hard management gate pass. Demoting the last active
// administrator is rejected. The target's refresh credentials are revoked.
func (s *AuthService) UpdateRole(ctx context.Context, actor Actor, targetID string, newRole domain.Role) (*domain.Account, error) {
	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	if result := s.authorizer.ValidateRoleAssignment(actor.Role, newRole, &target.Role); !result.OK {
		return nil, apperrors.NewDomainError("FORBIDDEN", "role assignment not permitted",
			http.StatusForbidden, map[string]any{"errors": result.Errors})
	}
	if !s.authorizer.CanManage(actor.Role, target.Role) {
		return nil, apperrors.NewForbidden("insufficient role to manage this account")
	}

	if target.Role == newRole {
		return target, nil
	}

	if target.Role == domain.RoleAdmin && newRole != domain.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return nil, err
		}
	}

	oldRole := target.Role
	target.Role = newRole
	if err := s.accounts.Update(ctx, target); err != nil {
		return nil, err
	}

	if err := s.tokens.RevokeAll(ctx, target.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventRoleChanged, target.ID,
		events.RoleChangedPayload{OldRole: oldRole, NewRole: newRole, ActorID: actor.ID}))
	return target, nil
}

// SetActive activates or deactivates an account. Deactivating the last active
// administrator is rejected; deactivation revokes all refresh credentials.
func (s *AuthService) SetActive(ctx context.Context, actor Actor, targetID string, active bool) (*domain.Account, error) {
	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	if !s.authorizer.CanManage(actor.Role, target.Role) {
		return nil, apperrors.NewForbidden("insufficient role to manage this account")
	}

	if target.Active == active {
		return target, nil
	}

	if !active && target.Role == domain.RoleAdmin {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return nil, err
		}
	}

	target.Active = active
	if err := s.accounts.Update(ctx, target); err != nil {
		return nil, err
	}

	if !active {
		if err := s.tokens.RevokeAll(ctx, target.ID); err != nil {
			return nil, err
		}
		s.publish(ctx, events.NewEvent(events.EventAccountDeactivated, target.ID,
			events.TokensRevokedPayload{Reason: "deactivation"}))
	}
	return target, nil
}

// TokenService exposes the underlying token service for middleware usage.
func (s *AuthService) TokenService() *auth.TokenService {
	return s.tokens
}

// Authorizer exposes the permission model for middleware and handlers.
func (s *AuthService) Authorizer() *auth.Authorizer {
	return s.authorizer
}

func (s *AuthService) ensureNotLastAdmin(ctx context.Context) error {
	count, err := s.accounts.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return apperrors.NewForbidden("cannot demote or deactivate the last administrator")
	}
	return nil
}

func (s *AuthService) hashPassword(ctx context.Context, password string) (string, error) {
	hash, err := s.hashPool.HashString(ctx, func() (string, error) {
		return s.policy.Hash(password)
	})
	if errors.Is(err, worker.ErrHashTimeout) {
		return "", apperrors.NewDomainError("TRANSIENT_FAILURE", "please retry",
			http.StatusServiceUnavailable, nil)
	}
	return hash, err
}

func (s *AuthService) verifyPassword(ctx context.Context, password, storedHash string) (bool, error) {
	var ok bool
	err := s.hashPool.Do(ctx, func() error {
		ok = s.policy.Verify(password, storedHash)
		return nil
	})
	if errors.Is(err, worker.ErrHashTimeout) {
		return false, apperrors.NewDomainError("TRANSIENT_FAILURE", "please retry",
			http.StatusServiceUnavailable, nil)
	}
	return ok, err
}

func (s *AuthService) loginFailed(ctx context.Context, email, remoteAddr, reason string) {
	s.logger.Info("login failed",
		zap.String("email", email),
		zap.String("remote_addr", remoteAddr),
		zap.String("reason", reason),
	)
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, "",
		events.LoginPayload{Email: email, RemoteAddr: remoteAddr}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func mapAccountErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("account", nil)
	}
	return err
}
