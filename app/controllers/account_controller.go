package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/database"
	"github.com/soutienweb/cagnotte/internal/pkg/pot"
)

// HandleAccountPage renders the member dashboard: subscription state,
// payment history, managed accounts and the common-pot status.
func HandleAccountPage(c *fiber.Ctx) error {
	account := currentAccount(c)
	if account == nil {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	now := time.Now()

	factory := repository.GetGlobalFactory()
	history, err := factory.GetPaymentRepository().ListByAccount(account.ID)
	if err != nil {
		log.Errorf("[Account] historique du compte %d illisible: %v", account.ID, err)
	}
	managed, err := factory.GetAccountRepository().ListManagedBy(account.ID)
	if err != nil {
		log.Errorf("[Account] comptes geres du compte %d illisibles: %v", account.ID, err)
	}

	potService := pot.NewServiceFromDB(database.GetDB())
	available, err := potService.AvailableAmount(context.Background())
	if err != nil {
		log.Errorf("[Account] solde de la cagnotte illisible: %v", err)
	}
	refusals, err := potService.CheckEligibility(context.Background(), account, now)
	if err != nil {
		log.Errorf("[Account] eligibilite cagnotte illisible: %v", err)
	}

	return c.Render("account/index", fiber.Map{
		"Title":          "Mon compte",
		"CSRFToken":      c.Locals("csrf"),
		"Flash":          flash.Get(c),
		"Account":        account,
		"Address":        account.Address(),
		"IsFree":         account.IsFree(),
		"IsExpired":      account.IsExpired(now),
		"CanRenew":       account.CanRenew(now),
		"ExpiredAtLabel": formatDate(account.ExpiredAt),
		"Payments":       history,
		"Managed":        managed,
		"PotAvailable":   formatEuros(available),
		"PotEligible":    len(refusals) == 0,
		"PotRefusals":    refusals,
	}, "layouts/main")
}

// HandleAccountUpdate saves the profile form: postal address, company
// fields and billing preferences.
func HandleAccountUpdate(c *fiber.Ctx) error {
	account := currentAccount(c)
	if account == nil {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	account.SetAddress(models.Address{
		Street:     strings.TrimSpace(c.FormValue("street")),
		Complement: strings.TrimSpace(c.FormValue("complement")),
		Zip:        strings.TrimSpace(c.FormValue("zip")),
		City:       strings.TrimSpace(c.FormValue("city")),
		Country:    strings.ToUpper(strings.TrimSpace(c.FormValue("country"))),
	})
	account.CompanyName = strings.TrimSpace(c.FormValue("company_name"))
	account.VATNumber = strings.TrimSpace(c.FormValue("vat_number"))

	if cadence := c.FormValue("cadence"); cadence != "" {
		account.Cadence = cadence
	}
	if method := c.FormValue("payment_method"); method != "" {
		account.PaymentMethod = method
	}
	account.SendReminder = c.FormValue("send_reminder") == "on"

	if err := account.Validate(); err != nil {
		return flashError(c, "Le formulaire contient des champs invalides.", constants.AccountRoute)
	}
	if err := repository.GetGlobalFactory().GetAccountRepository().Update(account); err != nil {
		log.Errorf("[Account] mise a jour du compte %d en echec: %v", account.ID, err)
		return flashError(c, "L'enregistrement a échoué. Réessayez plus tard.", constants.AccountRoute)
	}

	return flashSuccess(c, "Vos informations ont été enregistrées.", constants.AccountRoute)
}
