package usercontext

import "github.com/gofiber/fiber/v2"

// KeyUserContext is the fiber locals key the auth middleware stores the
// request identity under.
const KeyUserContext = "USER_CONTEXT"

// UserContext represents the authenticated identity for one request. It is
// rebuilt from the bearer token on every call; nothing survives the request.
type UserContext struct {
	UserID     uint   `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Contact    string `json:"contact"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// GetUserContext retrieves the user context from fiber context.
// Returns a default anonymous context if none is set.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		if uc, ok := ctx.(UserContext); ok {
			return uc
		}
	}
	return UserContext{IsLoggedIn: false}
}

// SetUserContext stores the user context on the fiber context.
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetName returns the current user's display name, or empty string if not logged in
func GetName(c *fiber.Ctx) string {
	return GetUserContext(c).Name
}
