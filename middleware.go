package accounts

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// localsUserKey is where the authentication gate stores the resolved
// user for downstream handlers.
const localsUserKey = "user"

// SessionCookieName is the cookie mirroring the session token.
const SessionCookieName = "jwt"

// SessionGate resolves the caller identity on protected routes.
type SessionGate struct {
	tokens *TokenService
	users  UserStore
	logger Logger
}

func NewSessionGate(tokens *TokenService, users UserStore) *SessionGate {
	return &SessionGate{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
}

func (g *SessionGate) WithLogger(logger Logger) *SessionGate {
	g.logger = logger
	return g
}

// Protect rejects requests without a verifiable session. It fails when
// no token is present, verification fails, the referenced user is gone,
// or the password changed after the token was issued. On success the
// resolved user is attached to the request context.
func (g *SessionGate) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return ErrNotLoggedIn
		}

		user, err := g.resolveUser(c, token)
		if err != nil {
			return err
		}

		c.Locals(localsUserKey, user)
		return c.Next()
	}
}

// OptionalAuth resolves the caller identity when a valid token is
// present but never fails the request; anonymous callers pass through.
func (g *SessionGate) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := extractToken(c); token != "" {
			if user, err := g.resolveUser(c, token); err == nil {
				c.Locals(localsUserKey, user)
			} else {
				g.logger.Debug("optional auth failed, proceeding anonymously", "error", err)
			}
		}
		return c.Next()
	}
}

func (g *SessionGate) resolveUser(c *fiber.Ctx, token string) (*User, error) {
	claims, err := g.tokens.VerifySession(token)
	if err != nil {
		g.logger.Debug("session verification failed", "error", err)
		return nil, ErrTokenInvalid
	}

	user, err := g.users.FindByID(c.Context(), claims.UserID())
	if err != nil {
		return nil, ErrTokenUserGone
	}

	if claims.IssuedAt != nil && user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, ErrStaleToken
	}

	return user, nil
}

// RestrictTo fails with Forbidden unless the authenticated user's role
// is in the allowed set. Must run after Protect.
func RestrictTo(roles ...UserRole) fiber.Handler {
	allowed := make(map[UserRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *fiber.Ctx) error {
		user, ok := CurrentUser(c)
		if !ok || !allowed[user.Role] {
			return ErrForbiddenRole
		}
		return c.Next()
	}
}

// CurrentUser returns the user resolved by Protect or OptionalAuth.
func CurrentUser(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(localsUserKey).(*User)
	return user, ok && user != nil
}

// extractToken prefers an Authorization bearer header over the session
// cookie.
func extractToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return c.Cookies(SessionCookieName)
}
