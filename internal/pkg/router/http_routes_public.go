package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soutienweb/cagnotte/app/controllers"
	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/middleware"
)

// middlewareUserContext is the globally-installed session-to-context
// bridge; aliased here so the router file reads top to bottom.
var middlewareUserContext = middleware.UserContextMiddleware

// registerPublicRoutes mounts everything that must stay outside the CSRF
// net: the gateway webhook posts raw JSON with its own signature scheme,
// and the mailed login link is a plain GET.
func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Post(constants.StripeHooksRoute, controllers.HandleStripeWebhook)

	app.Get("/login/:token", controllers.HandleLoginToken)
	app.Get("/logout", controllers.HandleLogout)

	// Gateway redirects after checkout.
	app.Get(constants.CheckoutSuccessPath, controllers.HandleCheckoutSuccess)
	app.Get(constants.CheckoutCancelPath, controllers.HandleCheckoutCancel)
}
