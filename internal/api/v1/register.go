package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soutienweb/cagnotte/internal/pkg/middleware"
)

// RegisterHandlers mounts the v1 routes on the given router group. The sync
// surface is bearer-token protected; ping is open for monitoring.
func RegisterHandlers(router fiber.Router, server *APIServer) {
	router.Get("/ping", server.GetPing)

	protected := router.Group("", middleware.SyncAPIAuthMiddleware())
	protected.Post("/accounts/sync", server.PostAccountSync)
	protected.Get("/accounts/:id/expiration", server.GetAccountExpiration)
}
