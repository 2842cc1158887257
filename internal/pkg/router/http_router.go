package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soutienweb/cagnotte/app/controllers"
	"github.com/soutienweb/cagnotte/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middlewareUserContext)

	// Initialize admin controller with repositories
	controllers.InitializeAdminController()

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
