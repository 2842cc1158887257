package controllers

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/app/repository"
	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
	"github.com/soutienweb/cagnotte/internal/pkg/payments"
)

// gatewayTimeout bounds the synchronous calls to the payment gateway.
const gatewayTimeout = 10 * time.Second

// HandleCheckoutStart validates the payment form and redirects the visitor
// to the gateway's hosted checkout page. An amount of zero on a
// subscription is the free-renewal path: the expiration is extended
// directly, without any payment.
func HandleCheckoutStart(c *fiber.Ctx) error {
	account := currentAccount(c)
	if account == nil {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	paymentType := c.FormValue("type")
	cadence := c.FormValue("cadence")
	amount, err := parseAmountToCents(c.FormValue("amount"))
	if err != nil {
		return flashError(c, "Le montant saisi est illisible.", constants.AccountRoute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
	defer cancel()
	svc := newPaymentService()

	if amount == 0 && paymentType == models.PaymentTypeSubscription {
		if err := svc.FreeRenewal(ctx, account, cadence); err != nil {
			return flashError(c, renewalErrorMessage(err), constants.AccountRoute)
		}
		return flashSuccess(c, "Votre abonnement a été prolongé gratuitement.", constants.AccountRoute)
	}

	domain := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	successURL := domain + constants.CheckoutSuccessPath
	cancelURL := domain + constants.CheckoutCancelPath + "?session_id={CHECKOUT_SESSION_ID}"

	_, checkoutURL, err := svc.StartCheckout(ctx, account, paymentType, cadence, amount, successURL, cancelURL)
	if err != nil {
		return flashError(c, checkoutErrorMessage(err), constants.AccountRoute)
	}

	return c.Redirect(checkoutURL, fiber.StatusSeeOther)
}

// HandleCheckoutSuccess is the gateway's success redirect. The webhook and
// the reconciliation job finish the payment; this page only informs.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	return flashSuccess(c,
		"Merci ! Votre paiement est en cours de traitement, votre facture arrivera par email.",
		constants.AccountRoute)
}

// HandleCheckoutCancel is the gateway's cancellation redirect: the pending
// payment is abandoned when the gateway confirms nothing was charged.
func HandleCheckoutCancel(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), gatewayTimeout)
		defer cancel()
		if err := newPaymentService().Abandon(ctx, sessionID); err != nil {
			log.Errorf("[Payment] abandon de la session %s en echec: %v", sessionID, err)
		}
	}
	return flashError(c, "Le paiement a été annulé. Aucun montant n'a été prélevé.", constants.AccountRoute)
}

// HandleInvoiceDownload serves one of the visitor's own invoice PDFs.
func HandleInvoiceDownload(c *fiber.Ctx) error {
	account := currentAccount(c)
	if account == nil {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	payment, err := repository.GetGlobalFactory().GetPaymentRepository().GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if payment.AccountID != account.ID {
		return c.SendStatus(fiber.StatusForbidden)
	}
	if payment.InvoiceNumber == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	path := filepath.Join(constants.InvoiceDir, payment.InvoiceNumber+".pdf")
	return c.Download(path, payment.InvoiceNumber+".pdf")
}

// parseAmountToCents reads a French-formatted euro amount ("24", "24,50",
// "24.50") into minor units.
func parseAmountToCents(raw string) (int64, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errors.New("unreadable amount")
	}
	return int64(value*100 + 0.5), nil
}

func checkoutErrorMessage(err error) string {
	var verr *payments.ValidationError
	switch {
	case errors.As(err, &verr):
		return "Le formulaire de paiement contient des champs invalides."
	case errors.Is(err, payments.ErrRenewalTooEarly):
		return "Votre abonnement ne peut être renouvelé que dans le mois précédant son échéance."
	case errors.Is(err, payments.ErrCheckoutOngoing):
		return "Un paiement est déjà en cours pour votre compte. Terminez-le ou annulez-le d'abord."
	}
	return "Le paiement n'a pas pu être initié. Réessayez plus tard."
}

func renewalErrorMessage(err error) string {
	var verr *payments.ValidationError
	switch {
	case errors.As(err, &verr):
		return "La cadence choisie n'est pas valide."
	case errors.Is(err, payments.ErrRenewalTooEarly):
		return "Votre abonnement ne peut être renouvelé que dans le mois précédant son échéance."
	}
	return "Le renouvellement n'a pas pu être effectué. Réessayez plus tard."
}
