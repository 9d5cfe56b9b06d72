package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/automax/grievance-backend/pkg/utils"
)

// LocalSubject is the fiber.Ctx local holding the authenticated bearer subject.
const LocalSubject = "subject"

// AuthMiddleware checks bearer tokens. With a JWT manager tokens are verified
// as HS256 JWTs; without one any token longer than minTokenLength is accepted.
type AuthMiddleware struct {
	jwtManager     *utils.JWTManager
	minTokenLength int
}

func NewAuthMiddleware(jwtManager *utils.JWTManager, minTokenLength int) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:     jwtManager,
		minTokenLength: minTokenLength,
	}
}

// Verifies reports whether tokens are cryptographically verified.
func (m *AuthMiddleware) Verifies() bool {
	return m.jwtManager != nil
}

func (m *AuthMiddleware) RequireBearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.ErrorResponseWithHint(c, fiber.StatusUnauthorized,
				"Missing or malformed authorization header", "Send 'Authorization: Bearer <token>'")
		}

		if m.jwtManager == nil {
			if len(token) <= m.minTokenLength {
				return utils.ErrorResponseWithHint(c, fiber.StatusForbidden,
					"Invalid token", "Sign in again to obtain a fresh token")
			}
			c.Locals(LocalSubject, "")
			return c.Next()
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			return utils.ErrorResponseWithHint(c, fiber.StatusForbidden,
				"Invalid or expired token", "Sign in again to obtain a fresh token")
		}

		c.Locals(LocalSubject, claims.Subject)
		return c.Next()
	}
}

// Subject returns the bearer subject set by RequireBearer, or "".
func Subject(c *fiber.Ctx) string {
	subject, _ := c.Locals(LocalSubject).(string)
	return subject
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
