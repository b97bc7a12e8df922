package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocalKey is the key under which the authenticated user's id is stored
// in Fiber's context locals.
const UserIDLocalKey = "user_id"

// TokenVerifier validates a bearer token and returns the user id it belongs to.
type TokenVerifier func(token string) (string, error)

// RequireAuth guards a route group with bearer-token authentication.
//
// Behavior:
// - Reads the Authorization header and requires a "Bearer <token>" scheme.
// - Verifies the token and stores the resulting user id under UserIDLocalKey.
// - Rejects missing or invalid tokens with 401 before the handler runs.
func RequireAuth(verify TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		userID, err := verify(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		c.Locals(UserIDLocalKey, userID)
		return c.Next()
	}
}

// UserIDFromCtx returns the authenticated user id set by RequireAuth, or ""
// when the request is unauthenticated.
func UserIDFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(UserIDLocalKey).(string); ok {
		return v
	}
	return ""
}
