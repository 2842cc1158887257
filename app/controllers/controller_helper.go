package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/database"
	"github.com/soutienweb/cagnotte/internal/pkg/payments"
	"github.com/soutienweb/cagnotte/internal/pkg/usercontext"
)

// currentAccount loads the logged-in visitor's account. Returns nil when
// the session does not reference a live account anymore.
func currentAccount(c *fiber.Ctx) *models.Account {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn || userCtx.AccountID == 0 || userCtx.IsAdmin {
		return nil
	}
	account, err := repository.GetGlobalFactory().GetAccountRepository().GetByID(userCtx.AccountID)
	if err != nil {
		return nil
	}
	return account
}

// newPaymentService wires the payment lifecycle with its live collaborators.
func newPaymentService() *payments.Service {
	return payments.NewDefaultService(database.GetDB())
}

// flashError redirects with an error flash message.
func flashError(c *fiber.Ctx, message, target string) error {
	return flash.WithError(c, fiber.Map{"type": "error", "message": message}).Redirect(target)
}

// flashSuccess redirects with a success flash message.
func flashSuccess(c *fiber.Ctx, message, target string) error {
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": message}).Redirect(target)
}

// formatEuros renders minor units for display, French style.
func formatEuros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d €", sign, cents/100, cents%100)
}

// formatDate renders a time for display.
func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
