package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router is anything able to mount its routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// HttpRouter goes first: it initializes the session store and the
	// global UserContext middleware the API routes rely on.
	setup(app, NewHttpRouter(), NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
