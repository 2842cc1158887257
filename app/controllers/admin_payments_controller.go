package controllers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/internal/pkg/payments"
)

const adminPaymentsPageSize = 50

// HandlePayments renders the paginated payment list.
func (ac *AdminController) HandlePayments(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	list, err := ac.repos.Payment.List((page-1)*adminPaymentsPageSize, adminPaymentsPageSize)
	if err != nil {
		return ac.handleError(c, "lecture des paiements", err)
	}
	total, err := ac.repos.Payment.Count()
	if err != nil {
		return ac.handleError(c, "comptage des paiements", err)
	}

	return c.Render("admin/payments", fiber.Map{
		"Title":     "Paiements",
		"CSRFToken": c.Locals("csrf"),
		"Flash":     flash.Get(c),
		"Payments":  list,
		"Total":     total,
		"Page":      page,
		"NextPage":  page + 1,
		"PrevPage":  page - 1,
	}, "layouts/admin")
}

// HandlePaymentMarkPaid flags a payment paid by hand, for payments settled
// by check or transfer outside the gateway. The reconciliation job then
// completes it like any webhook-confirmed payment.
func (ac *AdminController) HandlePaymentMarkPaid(c *fiber.Ctx) error {
	payment, err := ac.paymentFromParams(c)
	if err != nil {
		return flashError(c, "Paiement introuvable.", "/admin/payments")
	}
	if payment.IsPaid {
		return flashError(c, "Ce paiement est déjà marqué payé.", "/admin/payments")
	}

	payment.IsPaid = true
	if err := ac.repos.Payment.Update(payment); err != nil {
		log.Errorf("[Admin] marquage paye du paiement %d en echec: %v", payment.ID, err)
		return flashError(c, "Le marquage a échoué.", "/admin/payments")
	}
	return flashSuccess(c, "Paiement marqué payé. Il sera finalisé par la réconciliation.", "/admin/payments")
}

// HandlePaymentComplete runs the reconciliation for every paid payment now
// instead of waiting for the periodic job.
func (ac *AdminController) HandlePaymentComplete(c *fiber.Ctx) error {
	n, err := newPaymentService().CompleteAllPaid(context.Background())
	if err != nil {
		log.Errorf("[Admin] reconciliation manuelle en echec: %v", err)
		return flashError(c, "La réconciliation a échoué.", "/admin/payments")
	}
	return flashSuccess(c, strconv.Itoa(n)+" paiement(s) finalisé(s).", "/admin/payments")
}

// HandlePaymentCredit issues a credit against a payment. Crediting twice,
// or crediting a credit, is refused.
func (ac *AdminController) HandlePaymentCredit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return flashError(c, "Paiement introuvable.", "/admin/payments")
	}

	credit, err := newPaymentService().Credit(context.Background(), uint(id))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return flashError(c, "Paiement introuvable.", "/admin/payments")
	case errors.Is(err, payments.ErrAlreadyCredited):
		return flashError(c, "Ce paiement a déjà fait l'objet d'un avoir.", "/admin/payments")
	case errors.Is(err, payments.ErrNotCreditable):
		return flashError(c, "Un avoir ne peut pas être avoiré à son tour.", "/admin/payments")
	case err != nil:
		log.Errorf("[Admin] avoir sur le paiement %d en echec: %v", id, err)
		return flashError(c, "L'avoir n'a pas pu être émis.", "/admin/payments")
	}
	return flashSuccess(c, "Avoir "+credit.InvoiceNumber+" émis.", "/admin/payments")
}

// HandlePaymentDelete removes an unpaid, uninvoiced payment.
func (ac *AdminController) HandlePaymentDelete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return flashError(c, "Paiement introuvable.", "/admin/payments")
	}

	err = newPaymentService().DeleteByAdmin(context.Background(), uint(id))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return flashError(c, "Paiement introuvable.", "/admin/payments")
	case errors.Is(err, payments.ErrPaymentLocked):
		return flashError(c, "Un paiement payé ou facturé ne peut pas être supprimé.", "/admin/payments")
	case err != nil:
		log.Errorf("[Admin] suppression du paiement %d en echec: %v", id, err)
		return flashError(c, "La suppression a échoué.", "/admin/payments")
	}
	return flashSuccess(c, "Paiement supprimé.", "/admin/payments")
}

// HandlePaymentsExport streams the completed payments as CSV for the
// accountant: one line per invoice.
func (ac *AdminController) HandlePaymentsExport(c *fiber.Ctx) error {
	list, err := ac.repos.Payment.ListAll()
	if err != nil {
		return ac.handleError(c, "export des paiements", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	_ = w.Write([]string{"facture", "date", "type", "cadence", "quantite", "montant", "total", "frais_estimes", "compte"})
	for i := range list {
		p := &list[i]
		if p.InvoiceNumber == "" || p.CompletedAt == nil {
			continue
		}
		_ = w.Write([]string{
			p.InvoiceNumber,
			p.CompletedAt.Format("2006-01-02"),
			p.Type,
			p.Cadence,
			strconv.Itoa(p.Quantity),
			centsForCSV(p.Amount),
			centsForCSV(p.TotalAmount()),
			centsForCSV(p.GatewayFeeEstimate()),
			strconv.FormatUint(uint64(p.AccountID), 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return ac.handleError(c, "ecriture du CSV", err)
	}

	filename := "factures-" + time.Now().Format("2006-01-02") + ".csv"
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

func (ac *AdminController) paymentFromParams(c *fiber.Ctx) (*models.Payment, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, err
	}
	return ac.repos.Payment.GetByID(uint(id))
}

// centsForCSV writes minor units as a decimal without locale formatting.
func centsForCSV(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + twoDigits(cents%100)
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
