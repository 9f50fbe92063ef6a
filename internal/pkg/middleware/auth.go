package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/oggatonama/oggatonama/internal/pkg/token"
	"github.com/oggatonama/oggatonama/internal/pkg/usercontext"
)

// BearerContext parses an Authorization bearer token, if present, and stores
// the resulting identity in the request context. Invalid tokens are treated
// the same as absent ones; enforcement happens in RequireAuth.
func BearerContext(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if claims, err := token.Parse(raw); err == nil {
			usercontext.SetUserContext(c, usercontext.UserContext{
				UserID:     claims.UserID,
				Name:       claims.Name,
				Email:      claims.Email,
				Contact:    claims.Contact,
				IsLoggedIn: true,
			})
		}
	}
	return c.Next()
}

// RequireAuth guards protected API routes and returns JSON 401 when the
// request carries no valid bearer token.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}
	return c.Next()
}
