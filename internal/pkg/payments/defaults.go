package payments

import (
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/internal/pkg/constants"
	"github.com/soutienweb/cagnotte/internal/pkg/invoice"
	"github.com/soutienweb/cagnotte/internal/pkg/mail"
	"github.com/soutienweb/cagnotte/internal/pkg/s3archive"
	"github.com/soutienweb/cagnotte/internal/pkg/stripe"
)

type smtpInvoiceMailer struct{}

func (smtpInvoiceMailer) SendInvoice(to, subject, body, attachmentPath string) bool {
	return mail.SendInvoice(to, subject, body, attachmentPath)
}

// NewDefaultService wires the lifecycle with its production collaborators:
// the Stripe client, the PDF generator, the SMTP mailer and, when enabled,
// the S3 invoice archive.
func NewDefaultService(db *gorm.DB) *Service {
	var archiver Archiver
	if cfg, err := s3archive.LoadConfig(); err == nil && cfg.IsEnabled() {
		if client, err := s3archive.NewClient(cfg); err == nil {
			archiver = client
		}
	}

	return NewServiceFromDB(db, stripe.NewClientFromEnv(), Config{
		InvoiceDir: constants.InvoiceDir,
		Invoices:   invoice.NewGenerator(invoice.IssuerFromEnv()),
		Mailer:     smtpInvoiceMailer{},
		Archiver:   archiver,
	})
}
