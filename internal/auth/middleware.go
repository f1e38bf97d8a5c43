package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-service/internal/domain"
	apperrors "github.com/spec-kit/ticket-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	AccountID string
	Email     string
	Role      domain.Role
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	tokens     *TokenService
	accounts   AccountSource
	authorizer *Authorizer
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenService, accounts AccountSource, authorizer *Authorizer) *Middleware {
	return &Middleware{tokens: tokens, accounts: accounts, authorizer: authorizer}
}

// Handle enforces authentication for protected routes. The account is
// re-loaded on every request: a deactivated account cannot authenticate even
// while its access credential is still cryptographically valid.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.VerifyAccess(parts[1])
	if err != nil {
		return err
	}

	account, err := m.accounts.GetByID(c.Context(), claims.AccountID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}
	if !account.CanAuthenticate() {
		return apperrors.NewUnauthorized("account is deactivated")
	}

	c.Locals(principalKey, &Principal{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	})
	return c.Next()
}

// RequirePermission gates a route on a (resource, action) grant.
func (m *Middleware) RequirePermission(resource domain.Resource, action domain.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !m.authorizer.HasPermission(principal.Role, resource, action) {
			return apperrors.NewForbidden("role lacks permission")
		}
		return c.Next()
	}
}

// RequireRole gates a route on one of the allowed roles.
func (m *Middleware) RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
