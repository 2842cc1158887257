package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/database"
	"github.com/soutienweb/cagnotte/internal/pkg/pot"
)

// HandlePotSpend renews the visitor's subscription from the common pot.
// Eligibility is re-checked inside the spending transaction, this handler
// only translates the outcome.
func HandlePotSpend(c *fiber.Ctx) error {
	account := currentAccount(c)
	if account == nil {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	cadence := c.FormValue("cadence")
	if cadence == "" {
		cadence = account.Cadence
	}

	svc := pot.NewServiceFromDB(database.GetDB())
	usage, err := svc.SpendForRenewal(context.Background(), account, cadence, time.Now())
	if err != nil {
		var notEligible *pot.ErrNotEligible
		if errors.As(err, &notEligible) {
			return flashError(c, potRefusalMessage(notEligible.Reasons), constants.AccountRoute)
		}
		log.Errorf("[Pot] renouvellement via la cagnotte pour le compte %d en echec: %v", account.ID, err)
		return flashError(c, "Le renouvellement via la cagnotte a échoué. Réessayez plus tard.", constants.AccountRoute)
	}

	return flashSuccess(c,
		"Votre abonnement a été prolongé grâce à la cagnotte ("+formatEuros(usage.Amount)+" utilisés). Merci aux contributeurs !",
		constants.AccountRoute)
}

func potRefusalMessage(reasons []string) string {
	for _, reason := range reasons {
		switch reason {
		case pot.RefusalInsufficientBalance:
			return "La cagnotte ne contient pas assez pour couvrir ce renouvellement."
		case pot.RefusalFreeAccount:
			return "Votre compte est permanent : il n'a pas besoin de renouvellement."
		case pot.RefusalNotExpiringSoon:
			return "La cagnotte est réservée aux abonnements qui expirent sous 7 jours."
		}
	}
	return "Votre compte n'est pas éligible à la cagnotte pour le moment."
}
