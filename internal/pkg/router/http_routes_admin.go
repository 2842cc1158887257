package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soutienweb/cagnotte/app/controllers"
	"github.com/soutienweb/cagnotte/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(group fiber.Router) {
	ac := controllers.GetAdminController()

	group.Get("/admin/login", ac.HandleLoginPage)
	group.Post("/admin/login", ac.HandleLogin)

	admin := group.Group("/admin", middleware.RequireAdmin)
	admin.Get("/", ac.HandleDashboard)

	admin.Get("/accounts", ac.HandleAccounts)
	admin.Post("/accounts", ac.HandleAccountCreate)
	admin.Get("/accounts/:id", ac.HandleAccountEditPage)
	admin.Post("/accounts/:id", ac.HandleAccountUpdate)
	admin.Post("/accounts/:id/manager", ac.HandleAccountSetManager)

	admin.Get("/payments", ac.HandlePayments)
	admin.Get("/payments/export", ac.HandlePaymentsExport)
	admin.Post("/payments/complete", ac.HandlePaymentComplete)
	admin.Post("/payments/:id/paid", ac.HandlePaymentMarkPaid)
	admin.Post("/payments/:id/credit", ac.HandlePaymentCredit)
	admin.Post("/payments/:id/delete", ac.HandlePaymentDelete)
}
