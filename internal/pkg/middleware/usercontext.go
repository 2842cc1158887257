package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soutienweb/cagnotte/internal/pkg/session"
	"github.com/soutienweb/cagnotte/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the visitor context for every request.
// This centralizes session handling and eliminates code duplication.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Get session with error handling
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		// On error: treat the visitor as anonymous
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	accountID := sess.Get(usercontext.KeyAccountID)
	adminID := sess.Get(usercontext.KeyAdminID)
	if accountID == nil && adminID == nil {
		// Anonymous visitor - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		c.Locals(usercontext.KeyFromProtected, false)
		c.Locals(usercontext.KeyIsAdmin, false)
		return c.Next()
	}

	email := session.GetSessionValue(c, usercontext.KeyEmail)

	// Admin sessions live under their own key; the operator id never
	// doubles as a customer account id.
	userCtx := usercontext.UserContext{
		Email:      email,
		IsLoggedIn: true,
	}
	if adminID != nil {
		userCtx.AdminID = adminID.(uint)
		userCtx.IsAdmin = true
	} else {
		userCtx.AccountID = accountID.(uint)
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(usercontext.KeyFromProtected, true)
	c.Locals(usercontext.KeyAccountID, userCtx.AccountID)
	c.Locals(usercontext.KeyEmail, email)
	c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)

	return c.Next()
}
