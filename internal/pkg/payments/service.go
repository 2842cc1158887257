package payments

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/internal/pkg/stripe"
)

// Gateway is the slice of the external payment processor the lifecycle
// consumes. *stripe.Client satisfies it.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, amount int64, quantity int, description, successURL, cancelURL string) (*stripe.CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
	CancelPaymentIntent(ctx context.Context, intentID string) error
}

// InvoiceGenerator renders the PDF artifact for a completed payment.
type InvoiceGenerator interface {
	Generate(payment *models.Payment, account *models.Account, path string) error
}

// Mailer delivers the receipt email. Failure is reported, never escalated.
type Mailer interface {
	SendInvoice(to, subject, body, attachmentPath string) bool
}

// Archiver pushes invoice artifacts to long-term storage.
type Archiver interface {
	UploadInvoice(ctx context.Context, localPath string) error
}

// Config wires the side-effect collaborators of the lifecycle service.
// Invoices, Mailer and Archiver may be nil; the matching side effect is
// then skipped.
type Config struct {
	InvoiceDir string
	Invoices   InvoiceGenerator
	Mailer     Mailer
	Archiver   Archiver
	Now        func() time.Time
}

// Service drives payments through their lifecycle: checkout creation,
// webhook confirmation, completion with invoice numbering and side effects,
// abandonment and admin credits.
type Service struct {
	repo    Repository
	gateway Gateway
	cfg     Config
}

// NewService creates a payment lifecycle service.
func NewService(repo Repository, gateway Gateway, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.InvoiceDir == "" {
		cfg.InvoiceDir = "invoices"
	}
	return &Service{repo: repo, gateway: gateway, cfg: cfg}
}

// NewServiceFromDB creates a lifecycle service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, cfg Config) *Service {
	return NewService(NewRepository(db), gateway, cfg)
}

// StartCheckout validates a checkout request, opens a gateway session and
// persists the Pending payment. The returned URL is where the customer
// finishes paying.
func (s *Service) StartCheckout(ctx context.Context, account *models.Account, paymentType, cadence string, amount int64, successURL, cancelURL string) (*models.Payment, string, error) {
	if account == nil {
		return nil, "", errors.New("account is required")
	}
	if err := ValidateNewCheckout(paymentType, cadence, amount); err != nil {
		return nil, "", err
	}

	now := s.cfg.Now()
	quantity := 1
	if paymentType == models.PaymentTypeSubscription {
		if !account.CanRenew(now) {
			return nil, "", ErrRenewalTooEarly
		}
		managed, err := s.repo.CountManagedBy(account.ID)
		if err != nil {
			return nil, "", err
		}
		quantity = 1 + int(managed)
	}

	if _, err := s.repo.OngoingPaymentForAccount(account.ID); err == nil {
		return nil, "", ErrCheckoutOngoing
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, amount, quantity, checkoutDescription(paymentType, cadence), successURL, cancelURL)
	if err != nil {
		return nil, "", fmt.Errorf("gateway session creation failed: %w", err)
	}

	payment := &models.Payment{
		AccountID: account.ID,
		Type:      paymentType,
		Amount:    amount,
		Quantity:  quantity,
		Cadence:   cadence,
		SessionID: session.ID,
	}
	if session.PaymentIntent != nil {
		payment.PaymentIntentID = session.PaymentIntent.ID
	}
	if err := s.repo.CreatePayment(payment); err != nil {
		return nil, "", err
	}
	return payment, session.URL, nil
}

// FreeRenewal extends the subscription without any payment and records an
// anonymous audit entry.
func (s *Service) FreeRenewal(ctx context.Context, account *models.Account, cadence string) error {
	_ = ctx
	if account == nil {
		return errors.New("account is required")
	}
	if fields := validateCadence(cadence, true); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	now := s.cfg.Now()
	if !account.CanRenew(now) {
		return ErrRenewalTooEarly
	}

	return s.repo.Transaction(func(tx Repository) error {
		account.ExtendBy(cadence, now)
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		return tx.RecordFreeRenewal(cadence)
	})
}

// HandleCheckoutCompleted is the webhook path: it flags the matching
// payment paid. An unknown intent is acknowledged and logged as an anomaly
// so the gateway does not retry forever.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, intentID string) (*models.Payment, error) {
	_ = ctx
	payment, err := s.repo.GetPaymentByIntentID(intentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Payments] webhook for unknown payment intent %s", intentID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if payment.IsPaid {
		return payment, nil
	}
	payment.IsPaid = true
	if err := s.repo.SavePayment(payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// Complete reconciles a paid payment: invoice number, subscription
// extension, then best-effort invoice/mail/archive side effects.
// Completing an already-completed payment is a no-op, as is completing a
// payment the webhook has not flagged paid yet.
func (s *Service) Complete(ctx context.Context, paymentID uint) (*models.Payment, error) {
	now := s.cfg.Now()

	var payment *models.Payment
	var account *models.Account
	err := s.repo.Transaction(func(tx Repository) error {
		var err error
		payment, err = tx.GetPayment(paymentID)
		if err != nil {
			return err
		}
		if payment.IsCompleted() || !payment.IsPaid {
			return nil
		}

		if payment.InvoiceNumber == "" {
			number, err := nextInvoiceNumber(tx, now)
			if err != nil {
				return err
			}
			payment.InvoiceNumber = number
		}
		payment.CompletedAt = &now

		account, err = tx.GetAccount(payment.AccountID)
		if err != nil {
			return err
		}

		if payment.Type == models.PaymentTypeSubscription {
			account.ExtendBy(payment.Cadence, now)
			if err := tx.SaveAccount(account); err != nil {
				return err
			}
			// A batch payment renews every managed account as well.
			if payment.Quantity > 1 {
				managed, err := tx.ListManagedBy(account.ID)
				if err != nil {
					return err
				}
				for i := range managed {
					managed[i].ExtendBy(payment.Cadence, now)
					if err := tx.SaveAccount(&managed[i]); err != nil {
						return err
					}
				}
			}
		}

		return tx.SavePayment(payment)
	})
	if err != nil {
		return nil, err
	}
	if account == nil {
		// No-op path: nothing was completed.
		return payment, nil
	}

	s.runCompletionSideEffects(ctx, payment, account)
	return payment, nil
}

// CompleteAllPaid reconciles every paid-but-uncompleted payment. Invoked by
// the background job and the one-shot CLI.
func (s *Service) CompleteAllPaid(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPaidUncompleted()
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, p := range pending {
		if _, err := s.Complete(ctx, p.ID); err != nil {
			log.Errorf("[Payments] completing payment %d failed: %v", p.ID, err)
			continue
		}
		completed++
	}
	return completed, nil
}

// Abandon handles the customer landing on the cancel page. When the
// gateway confirms the charge did not go through, the intent is canceled
// and the local record deleted. A charge still processing is left alone.
func (s *Service) Abandon(ctx context.Context, sessionID string) error {
	payment, err := s.repo.GetPaymentBySessionID(sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if payment.IsPaid || payment.IsCompleted() {
		return nil
	}

	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("gateway session lookup failed: %w", err)
	}
	status := ""
	if session.PaymentIntent != nil {
		status = session.PaymentIntent.Status
	}
	switch status {
	case stripe.IntentStatusSucceeded:
		// The webhook will flag it paid; nothing to abandon.
		return nil
	case stripe.IntentStatusProcessing:
		// Outcome unknown, leave the record pending resolution.
		return nil
	}

	if payment.PaymentIntentID != "" {
		if err := s.gateway.CancelPaymentIntent(ctx, payment.PaymentIntentID); err != nil && !stripe.IsAlreadyCanceled(err) {
			log.Errorf("[Payments] canceling intent %s failed: %v", payment.PaymentIntentID, err)
		}
	}
	return s.repo.DeletePayment(payment.ID)
}

// Credit issues an admin reimbursement against a payment. A payment can be
// credited at most once; the second attempt is a conflict. The credit note
// is born completed, so its PDF, mail and archive run here rather than
// through the reconciler.
func (s *Service) Credit(ctx context.Context, paymentID uint) (*models.Payment, error) {
	now := s.cfg.Now()

	var credit *models.Payment
	err := s.repo.Transaction(func(tx Repository) error {
		original, err := tx.GetPayment(paymentID)
		if err != nil {
			return err
		}
		if original.IsCredit() {
			return ErrNotCreditable
		}
		credited, err := tx.HasCreditFor(original.ID)
		if err != nil {
			return err
		}
		if credited {
			return ErrAlreadyCredited
		}

		number, err := nextInvoiceNumber(tx, now)
		if err != nil {
			return err
		}

		originalID := original.ID
		credit = &models.Payment{
			AccountID:         original.AccountID,
			Type:              models.PaymentTypeCredit,
			Amount:            original.Amount,
			Quantity:          original.Quantity,
			IsPaid:            true,
			InvoiceNumber:     number,
			CreditedPaymentID: &originalID,
			CompletedAt:       &now,
		}
		return tx.CreatePayment(credit)
	})
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccount(credit.AccountID)
	if err != nil {
		log.Errorf("[Payments] account lookup for credit %s failed: %v", credit.InvoiceNumber, err)
		return credit, nil
	}
	s.runCompletionSideEffects(ctx, credit, account)
	return credit, nil
}

// DeleteByAdmin removes a payment from the back office. Paid or invoiced
// payments are locked.
func (s *Service) DeleteByAdmin(ctx context.Context, paymentID uint) error {
	_ = ctx
	payment, err := s.repo.GetPayment(paymentID)
	if err != nil {
		return err
	}
	if payment.IsPaid || payment.InvoiceNumber != "" {
		return ErrPaymentLocked
	}
	return s.repo.DeletePayment(payment.ID)
}

// InvoicePath returns where a payment's PDF artifact lives.
func (s *Service) InvoicePath(payment *models.Payment) string {
	return filepath.Join(s.cfg.InvoiceDir, payment.InvoiceNumber+".pdf")
}

func (s *Service) runCompletionSideEffects(ctx context.Context, payment *models.Payment, account *models.Account) {
	path := s.InvoicePath(payment)

	if s.cfg.Invoices != nil {
		// The generator is not idempotent; the existence check at the call
		// site keeps it invoked at most once per payment.
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.cfg.Invoices.Generate(payment, account, path); err != nil {
				log.Errorf("[Payments] invoice PDF for %s failed: %v", payment.InvoiceNumber, err)
				return
			}
		}
	}

	if s.cfg.Mailer != nil {
		subject := fmt.Sprintf("Votre recu %s", payment.InvoiceNumber)
		body := fmt.Sprintf("<p>Merci pour votre paiement de %.2f EUR. Votre facture %s est jointe.</p>",
			float64(payment.TotalAmount())/100, payment.InvoiceNumber)
		if payment.IsCredit() {
			subject = fmt.Sprintf("Votre avoir %s", payment.InvoiceNumber)
			body = fmt.Sprintf("<p>Votre avoir %s de %.2f EUR est joint.</p>",
				payment.InvoiceNumber, float64(payment.TotalAmount())/100)
		}
		if !s.cfg.Mailer.SendInvoice(account.Email, subject, body, path) {
			log.Errorf("[Payments] receipt email for %s to %s failed", payment.InvoiceNumber, account.Email)
		}
	}

	if s.cfg.Archiver != nil {
		if err := s.cfg.Archiver.UploadInvoice(ctx, path); err != nil {
			log.Errorf("[Payments] invoice archive for %s failed: %v", payment.InvoiceNumber, err)
		}
	}
}

func checkoutDescription(paymentType, cadence string) string {
	switch paymentType {
	case models.PaymentTypeCommonPot:
		return "Contribution a la cagnotte"
	case models.PaymentTypeSubscription:
		if cadence == models.CadenceMonth {
			return "Abonnement mensuel"
		}
		return "Abonnement annuel"
	}
	return "Paiement"
}
