package invoice

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

// Issuer is the seller block printed on every invoice.
type Issuer struct {
	Name    string
	Street  string
	City    string
	Country string
	VAT     string
}

// IssuerFromEnv reads the seller identity from the environment.
func IssuerFromEnv() Issuer {
	return Issuer{
		Name:    env.GetEnv("INVOICE_ISSUER_NAME", "Association Cagnotte"),
		Street:  env.GetEnv("INVOICE_ISSUER_STREET", ""),
		City:    env.GetEnv("INVOICE_ISSUER_CITY", ""),
		Country: env.GetEnv("INVOICE_ISSUER_COUNTRY", "France"),
		VAT:     env.GetEnv("INVOICE_ISSUER_VAT", ""),
	}
}

// Generator renders invoice PDFs. One page, A4, no template file.
type Generator struct {
	issuer Issuer
}

func NewGenerator(issuer Issuer) *Generator {
	return &Generator{issuer: issuer}
}

// Generate writes the PDF for a completed payment to path. The payment must
// carry its invoice number and completion time.
func (g *Generator) Generate(payment *models.Payment, account *models.Account, path string) error {
	if payment.InvoiceNumber == "" || payment.CompletedAt == nil {
		return fmt.Errorf("payment %d is not invoiceable", payment.ID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create invoice directory: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Facture "+payment.InvoiceNumber), true)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(g.issuer.Name))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{g.issuer.Street, g.issuer.City, g.issuer.Country} {
		if line == "" {
			continue
		}
		pdf.Cell(0, 5, tr(line))
		pdf.Ln(5)
	}
	if g.issuer.VAT != "" {
		pdf.Cell(0, 5, tr("TVA : "+g.issuer.VAT))
		pdf.Ln(5)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	if payment.IsCredit() {
		pdf.Cell(0, 8, tr("Avoir n° "+payment.InvoiceNumber))
	} else {
		pdf.Cell(0, 8, tr("Facture n° "+payment.InvoiceNumber))
	}
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr("Date : "+payment.CompletedAt.Format("02/01/2006")))
	pdf.Ln(10)

	// Customer block
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, tr("Client"))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 10)
	customerLines := []string{account.Email}
	if account.CompanyName != "" {
		customerLines = append([]string{account.CompanyName}, customerLines...)
	}
	address := account.Address()
	for _, line := range []string{address.Street, address.Complement, address.Zip + " " + address.City, address.Country} {
		if line != "" && line != " " {
			customerLines = append(customerLines, line)
		}
	}
	if account.VATNumber != "" {
		customerLines = append(customerLines, "TVA : "+account.VATNumber)
	}
	for _, line := range customerLines {
		pdf.Cell(0, 5, tr(line))
		pdf.Ln(5)
	}
	pdf.Ln(8)

	// Line item table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(90, 8, tr("Désignation"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, tr("Quantité"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, tr("Prix unitaire"), "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, tr("Montant"), "1", 1, "R", true, 0, "")

	quantity := payment.Quantity
	if quantity < 1 {
		quantity = 1
	}
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(90, 8, tr(lineItemLabel(payment)), "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 8, fmt.Sprintf("%d", quantity), "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 8, euros(payment.Amount), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, euros(payment.TotalAmount()), "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(150, 8, tr("Total TTC"), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, euros(payment.TotalAmount()), "1", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 5, tr("TVA non applicable, art. 293 B du CGI."))
	pdf.Ln(5)
	if payment.IsCredit() {
		pdf.Cell(0, 5, tr("Avoir émis en remboursement du paiement d'origine."))
		pdf.Ln(5)
	}

	return pdf.OutputFileAndClose(path)
}

func lineItemLabel(payment *models.Payment) string {
	switch payment.Type {
	case models.PaymentTypeSubscription:
		if payment.Cadence == models.CadenceMonth {
			return "Abonnement mensuel"
		}
		return "Abonnement annuel"
	case models.PaymentTypeCommonPot:
		return "Contribution à la cagnotte"
	case models.PaymentTypeCredit:
		return "Avoir"
	}
	return "Paiement"
}

func euros(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d,%02d EUR", sign, cents/100, cents%100)
}
