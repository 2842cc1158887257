package usercontext

import "github.com/gofiber/fiber/v2"

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyAccountID     = "account_id"
	KeyAdminID       = "admin_id"
	KeyEmail         = "email"
	KeyIsAdmin       = "isAdmin"
	KeyFromProtected = "from_protected"
)

// UserContext represents the visitor context for a request: either a
// customer logged in through a mailed token, or a back-office admin.
// AccountID and AdminID are distinct id spaces; an admin session carries
// no customer account.
type UserContext struct {
	AccountID  uint   `json:"account_id"`
	AdminID    uint   `json:"admin_id"`
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals("USER_CONTEXT"); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// IsLoggedIn checks if the current visitor is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current visitor is a back-office admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetAccountID returns the current account's ID, or 0 if not logged in
func GetAccountID(c *fiber.Ctx) uint {
	return GetUserContext(c).AccountID
}
