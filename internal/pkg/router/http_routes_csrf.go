package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/soutienweb/cagnotte/app/controllers"
	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") ||
				c.Path() == constants.StripeHooksRoute
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get(constants.PublicRoute, controllers.HandleHomePage)

	group.Get(constants.LoginRoute, controllers.HandleLoginPage)
	group.Post(constants.LoginRoute, controllers.HandleLoginLinkRequest)
	group.Get("/signup", controllers.HandleSignupPage)
	group.Post("/signup", controllers.HandleSignup)

	group.Get(constants.AccountRoute, middleware.RequireAuth, controllers.HandleAccountPage)
	group.Post(constants.AccountRoute, middleware.RequireAuth, controllers.HandleAccountUpdate)
	group.Get("/account/invoices/:id", middleware.RequireAuth, controllers.HandleInvoiceDownload)

	group.Post("/payment/checkout", middleware.RequireAuth, controllers.HandleCheckoutStart)
	group.Post("/account/pot/renew", middleware.RequireAuth, controllers.HandlePotSpend)

	// The back office shares the CSRF net.
	h.registerAdminRoutes(group)
}
