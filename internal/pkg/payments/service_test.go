package payments

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soutienweb/cagnotte/app/models"
	"github.com/soutienweb/cagnotte/internal/pkg/stripe"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeRepository is an in-memory Repository. LastInvoiceNumberForYear scans
// the stored rows the way the SQL query does.
type fakeRepository struct {
	payments     map[uint]*models.Payment
	accounts     map[uint]*models.Account
	nextID       uint
	freeRenewals []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		payments: make(map[uint]*models.Payment),
		accounts: make(map[uint]*models.Account),
		nextID:   1,
	}
}

func (r *fakeRepository) addAccount(a *models.Account) *models.Account {
	r.accounts[a.ID] = a
	return a
}

func (r *fakeRepository) CreatePayment(p *models.Payment) error {
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	r.payments[p.ID] = p
	return nil
}

func (r *fakeRepository) SavePayment(p *models.Payment) error {
	r.payments[p.ID] = p
	return nil
}

func (r *fakeRepository) DeletePayment(id uint) error {
	delete(r.payments, id)
	return nil
}

func (r *fakeRepository) GetPayment(id uint) (*models.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeRepository) GetPaymentByIntentID(intentID string) (*models.Payment, error) {
	for _, p := range r.payments {
		if p.PaymentIntentID == intentID && intentID != "" {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) GetPaymentBySessionID(sessionID string) (*models.Payment, error) {
	for _, p := range r.payments {
		if p.SessionID == sessionID && sessionID != "" {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) OngoingPaymentForAccount(accountID uint) (*models.Payment, error) {
	for _, p := range r.payments {
		if p.AccountID == accountID && p.IsOngoing() {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepository) HasCreditFor(paymentID uint) (bool, error) {
	for _, p := range r.payments {
		if p.CreditedPaymentID != nil && *p.CreditedPaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepository) ListPaidUncompleted() ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.payments {
		if p.IsPaid && p.CompletedAt == nil {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) LastInvoiceNumberForYear(year int) (string, error) {
	prefix := invoiceYearPrefix(year)
	best := ""
	bestSeq := -1
	for _, p := range r.payments {
		if !strings.HasPrefix(p.InvoiceNumber, prefix) {
			continue
		}
		seq, err := parseInvoiceSequence(p.InvoiceNumber)
		if err != nil {
			continue
		}
		if seq > bestSeq {
			bestSeq = seq
			best = p.InvoiceNumber
		}
	}
	if best == "" {
		return "", gorm.ErrRecordNotFound
	}
	return best, nil
}

func (r *fakeRepository) GetAccount(id uint) (*models.Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}

func (r *fakeRepository) SaveAccount(a *models.Account) error {
	r.accounts[a.ID] = a
	return nil
}

func (r *fakeRepository) CountManagedBy(managerID uint) (int64, error) {
	var n int64
	for _, a := range r.accounts {
		if a.ManagedByID != nil && *a.ManagedByID == managerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeRepository) ListManagedBy(managerID uint) ([]models.Account, error) {
	var out []models.Account
	for _, a := range r.accounts {
		if a.ManagedByID != nil && *a.ManagedByID == managerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepository) RecordFreeRenewal(cadence string) error {
	r.freeRenewals = append(r.freeRenewals, cadence)
	return nil
}

func (r *fakeRepository) Transaction(fn func(Repository) error) error {
	return fn(r)
}

type fakeGateway struct {
	session    *stripe.CheckoutSession
	createErr  error
	retrieved  *stripe.CheckoutSession
	canceled   []string
	cancelErr  error
	createArgs struct {
		amount   int64
		quantity int
	}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, amount int64, quantity int, _, _, _ string) (*stripe.CheckoutSession, error) {
	g.createArgs.amount = amount
	g.createArgs.quantity = quantity
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.session, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, _ string) (*stripe.CheckoutSession, error) {
	return g.retrieved, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, intentID string) error {
	g.canceled = append(g.canceled, intentID)
	return g.cancelErr
}

func fixedNow() func() time.Time {
	return func() time.Time { return testNow }
}

func newTestService(t *testing.T, repo *fakeRepository, gateway *fakeGateway) *Service {
	t.Helper()
	return NewService(repo, gateway, Config{
		InvoiceDir: t.TempDir(),
		Now:        fixedNow(),
	})
}

func expiringAccount(id uint) *models.Account {
	return &models.Account{
		ID:        id,
		Email:     "membre@example.org",
		ExpiredAt: testNow.Add(5 * 24 * time.Hour),
		Cadence:   models.CadenceYear,
	}
}

func TestStartCheckoutValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeGateway{})
	account := repo.addAccount(expiringAccount(1))

	_, _, err := svc.StartCheckout(context.Background(), account, models.PaymentTypeSubscription, "weekly", 50, "https://s", "https://c")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"amount":  KindOutOfRange,
		"cadence": KindInvalid,
	}, verr.FieldMap())
	assert.Empty(t, repo.payments)
}

func TestStartCheckoutRefusesCreditType(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeGateway{})
	account := repo.addAccount(expiringAccount(1))

	_, _, err := svc.StartCheckout(context.Background(), account, models.PaymentTypeCredit, "", 2400, "https://s", "https://c")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, KindInvalid, verr.FieldMap()["type"])
}

func TestStartCheckoutRenewalWindow(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo, &fakeGateway{})
	account := repo.addAccount(&models.Account{
		ID:        1,
		Email:     "membre@example.org",
		ExpiredAt: testNow.AddDate(0, 6, 0),
	})

	_, _, err := svc.StartCheckout(context.Background(), account, models.PaymentTypeSubscription, models.CadenceYear, 2400, "https://s", "https://c")
	assert.ErrorIs(t, err, ErrRenewalTooEarly)

	// Pot contributions are not gated by the renewal window.
	gw := &fakeGateway{session: &stripe.CheckoutSession{ID: "cs_1", URL: "https://pay/1"}}
	svc = newTestService(t, repo, gw)
	_, _, err = svc.StartCheckout(context.Background(), account, models.PaymentTypeCommonPot, "", 500, "https://s", "https://c")
	assert.NoError(t, err)
}

func TestStartCheckoutQuantityIncludesManagedAccounts(t *testing.T) {
	repo := newFakeRepository()
	manager := repo.addAccount(expiringAccount(1))
	managerID := manager.ID
	repo.addAccount(&models.Account{ID: 2, Email: "a@example.org", ManagedByID: &managerID})
	repo.addAccount(&models.Account{ID: 3, Email: "b@example.org", ManagedByID: &managerID})

	gw := &fakeGateway{session: &stripe.CheckoutSession{
		ID:            "cs_1",
		URL:           "https://pay/1",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1"},
	}}
	svc := newTestService(t, repo, gw)

	payment, url, err := svc.StartCheckout(context.Background(), manager, models.PaymentTypeSubscription, models.CadenceYear, 2400, "https://s", "https://c")
	require.NoError(t, err)

	assert.Equal(t, 3, payment.Quantity)
	assert.Equal(t, 3, gw.createArgs.quantity)
	assert.Equal(t, int64(7200), payment.TotalAmount())
	assert.Equal(t, "https://pay/1", url)
	assert.Equal(t, "cs_1", payment.SessionID)
	assert.Equal(t, "pi_1", payment.PaymentIntentID)
	assert.False(t, payment.IsPaid)
	assert.Empty(t, payment.InvoiceNumber)
}

func TestStartCheckoutOngoingConflict(t *testing.T) {
	repo := newFakeRepository()
	account := repo.addAccount(expiringAccount(1))
	repo.CreatePayment(&models.Payment{
		AccountID: account.ID,
		Type:      models.PaymentTypeSubscription,
		Amount:    2400,
		SessionID: "cs_old",
	})

	svc := newTestService(t, repo, &fakeGateway{})
	_, _, err := svc.StartCheckout(context.Background(), account, models.PaymentTypeCommonPot, "", 500, "https://s", "https://c")
	assert.ErrorIs(t, err, ErrCheckoutOngoing)
}

func TestHandleCheckoutCompleted(t *testing.T) {
	repo := newFakeRepository()
	repo.CreatePayment(&models.Payment{
		AccountID:       1,
		Type:            models.PaymentTypeCommonPot,
		Amount:          500,
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
	})
	svc := newTestService(t, repo, &fakeGateway{})

	payment, err := svc.HandleCheckoutCompleted(context.Background(), "pi_1")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.True(t, payment.IsPaid)
	assert.Nil(t, payment.CompletedAt, "completion belongs to the reconciler, not the webhook")

	// Replays are harmless.
	again, err := svc.HandleCheckoutCompleted(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.True(t, again.IsPaid)
}

func TestHandleCheckoutCompletedUnknownIntent(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeGateway{})

	payment, err := svc.HandleCheckoutCompleted(context.Background(), "pi_nobody")
	assert.NoError(t, err, "unknown intents are acknowledged, not retried")
	assert.Nil(t, payment)
}

func TestCompleteSubscriptionExtendsOwnerAndManaged(t *testing.T) {
	repo := newFakeRepository()
	owner := repo.addAccount(expiringAccount(1))
	ownerID := owner.ID
	repo.addAccount(&models.Account{ID: 2, Email: "a@example.org", ExpiredAt: testNow.Add(24 * time.Hour), ManagedByID: &ownerID})
	expiredBefore := owner.ExpiredAt

	repo.CreatePayment(&models.Payment{
		AccountID: owner.ID,
		Type:      models.PaymentTypeSubscription,
		Amount:    2400,
		Quantity:  2,
		Cadence:   models.CadenceYear,
		IsPaid:    true,
		SessionID: "cs_1",
	})
	svc := newTestService(t, repo, &fakeGateway{})

	payment, err := svc.Complete(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-0001", payment.InvoiceNumber)
	require.NotNil(t, payment.CompletedAt)
	assert.Equal(t, testNow, *payment.CompletedAt)
	assert.Equal(t, expiredBefore.AddDate(1, 0, 0), repo.accounts[1].ExpiredAt)
	assert.Equal(t, testNow.Add(24*time.Hour).AddDate(1, 0, 0), repo.accounts[2].ExpiredAt)
}

func TestCompleteIsIdempotent(t *testing.T) {
	repo := newFakeRepository()
	repo.addAccount(expiringAccount(1))
	repo.CreatePayment(&models.Payment{
		AccountID: 1,
		Type:      models.PaymentTypeSubscription,
		Amount:    2400,
		Quantity:  1,
		Cadence:   models.CadenceYear,
		IsPaid:    true,
		SessionID: "cs_1",
	})
	svc := newTestService(t, repo, &fakeGateway{})

	first, err := svc.Complete(context.Background(), 1)
	require.NoError(t, err)
	expiredAfterFirst := repo.accounts[1].ExpiredAt

	second, err := svc.Complete(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, expiredAfterFirst, repo.accounts[1].ExpiredAt, "re-completion must not extend again")
}

func TestCompleteUnpaidIsNoOp(t *testing.T) {
	repo := newFakeRepository()
	repo.addAccount(expiringAccount(1))
	repo.CreatePayment(&models.Payment{
		AccountID: 1,
		Type:      models.PaymentTypeCommonPot,
		Amount:    500,
		SessionID: "cs_1",
	})
	svc := newTestService(t, repo, &fakeGateway{})

	payment, err := svc.Complete(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, payment.InvoiceNumber)
	assert.Nil(t, payment.CompletedAt)
}

func TestCompleteAllPaid(t *testing.T) {
	repo := newFakeRepository()
	repo.addAccount(expiringAccount(1))
	repo.CreatePayment(&models.Payment{AccountID: 1, Type: models.PaymentTypeCommonPot, Amount: 500, IsPaid: true, SessionID: "cs_1"})
	repo.CreatePayment(&models.Payment{AccountID: 1, Type: models.PaymentTypeCommonPot, Amount: 700, SessionID: "cs_2"})
	repo.CreatePayment(&models.Payment{AccountID: 1, Type: models.PaymentTypeCommonPot, Amount: 900, IsPaid: true, SessionID: "cs_3"})
	svc := newTestService(t, repo, &fakeGateway{})

	n, err := svc.CompleteAllPaid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "2025-03-0001", repo.payments[1].InvoiceNumber)
	assert.Equal(t, "2025-03-0002", repo.payments[3].InvoiceNumber)
	assert.Empty(t, repo.payments[2].InvoiceNumber)
}

func TestAbandonCancelsAndDeletes(t *testing.T) {
	repo := newFakeRepository()
	repo.CreatePayment(&models.Payment{
		AccountID:       1,
		Type:            models.PaymentTypeCommonPot,
		Amount:          500,
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
	})
	gw := &fakeGateway{retrieved: &stripe.CheckoutSession{
		ID:            "cs_1",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", Status: "requires_payment_method"},
	}}
	svc := newTestService(t, repo, gw)

	require.NoError(t, svc.Abandon(context.Background(), "cs_1"))
	assert.Equal(t, []string{"pi_1"}, gw.canceled)
	assert.Empty(t, repo.payments)
}

func TestAbandonToleratesAlreadyCanceledIntent(t *testing.T) {
	repo := newFakeRepository()
	repo.CreatePayment(&models.Payment{
		AccountID:       1,
		Type:            models.PaymentTypeCommonPot,
		Amount:          500,
		SessionID:       "cs_1",
		PaymentIntentID: "pi_1",
	})
	gw := &fakeGateway{
		retrieved: &stripe.CheckoutSession{
			ID:            "cs_1",
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.IntentStatusCanceled},
		},
		cancelErr: &stripe.APIError{StatusCode: 400, Code: "payment_intent_unexpected_state"},
	}
	svc := newTestService(t, repo, gw)

	require.NoError(t, svc.Abandon(context.Background(), "cs_1"))
	assert.Empty(t, repo.payments)
}

func TestAbandonLeavesSettledOrProcessingCharges(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{"succeeded charge stays", stripe.IntentStatusSucceeded},
		{"processing charge stays", stripe.IntentStatusProcessing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepository()
			repo.CreatePayment(&models.Payment{
				AccountID:       1,
				Type:            models.PaymentTypeCommonPot,
				Amount:          500,
				SessionID:       "cs_1",
				PaymentIntentID: "pi_1",
			})
			gw := &fakeGateway{retrieved: &stripe.CheckoutSession{
				ID:            "cs_1",
				PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", Status: tc.status},
			}}
			svc := newTestService(t, repo, gw)

			require.NoError(t, svc.Abandon(context.Background(), "cs_1"))
			assert.Empty(t, gw.canceled)
			assert.Len(t, repo.payments, 1)
		})
	}
}

func TestAbandonUnknownSessionIsNoOp(t *testing.T) {
	svc := newTestService(t, newFakeRepository(), &fakeGateway{})
	assert.NoError(t, svc.Abandon(context.Background(), "cs_missing"))
}

func TestCreditIssuesMirrorPayment(t *testing.T) {
	repo := newFakeRepository()
	repo.addAccount(expiringAccount(1))
	completedAt := testNow.Add(-24 * time.Hour)
	repo.CreatePayment(&models.Payment{
		AccountID:     1,
		Type:          models.PaymentTypeCommonPot,
		Amount:        500,
		Quantity:      1,
		IsPaid:        true,
		InvoiceNumber: "2025-03-0001",
		CompletedAt:   &completedAt,
	})
	svc := newTestService(t, repo, &fakeGateway{})

	credit, err := svc.Credit(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentTypeCredit, credit.Type)
	assert.Equal(t, int64(500), credit.Amount)
	assert.True(t, credit.IsPaid)
	assert.Equal(t, "2025-03-0002", credit.InvoiceNumber)
	require.NotNil(t, credit.CreditedPaymentID)
	assert.Equal(t, uint(1), *credit.CreditedPaymentID)
	require.NotNil(t, credit.CompletedAt)

	_, err = svc.Credit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyCredited)
}

type fakeInvoiceRenderer struct {
	payments []*models.Payment
	paths    []string
}

func (f *fakeInvoiceRenderer) Generate(p *models.Payment, _ *models.Account, path string) error {
	f.payments = append(f.payments, p)
	f.paths = append(f.paths, path)
	return nil
}

func TestCreditRendersCreditNote(t *testing.T) {
	repo := newFakeRepository()
	repo.addAccount(expiringAccount(1))
	completedAt := testNow.Add(-24 * time.Hour)
	repo.CreatePayment(&models.Payment{
		AccountID:     1,
		Type:          models.PaymentTypeCommonPot,
		Amount:        500,
		Quantity:      1,
		IsPaid:        true,
		InvoiceNumber: "2025-03-0001",
		CompletedAt:   &completedAt,
	})
	renderer := &fakeInvoiceRenderer{}
	svc := NewService(repo, &fakeGateway{}, Config{
		InvoiceDir: t.TempDir(),
		Invoices:   renderer,
		Now:        fixedNow(),
	})

	// A credit is born completed, so the reconciler never picks it up;
	// its PDF has to come from the Credit call itself.
	credit, err := svc.Credit(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, renderer.payments, 1)
	assert.Equal(t, credit.InvoiceNumber, renderer.payments[0].InvoiceNumber)
	assert.Equal(t, models.PaymentTypeCredit, renderer.payments[0].Type)
	assert.Equal(t, []string{svc.InvoicePath(credit)}, renderer.paths)
}

func TestCreditOfCreditIsRefused(t *testing.T) {
	repo := newFakeRepository()
	originalID := uint(9)
	now := testNow
	repo.CreatePayment(&models.Payment{
		AccountID:         1,
		Type:              models.PaymentTypeCredit,
		Amount:            500,
		IsPaid:            true,
		CreditedPaymentID: &originalID,
		CompletedAt:       &now,
	})
	svc := newTestService(t, repo, &fakeGateway{})

	_, err := svc.Credit(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotCreditable)
}

func TestDeleteByAdmin(t *testing.T) {
	repo := newFakeRepository()
	repo.CreatePayment(&models.Payment{AccountID: 1, Type: models.PaymentTypeCommonPot, Amount: 500, SessionID: "cs_1"})
	repo.CreatePayment(&models.Payment{AccountID: 1, Type: models.PaymentTypeCommonPot, Amount: 700, IsPaid: true, SessionID: "cs_2"})
	svc := newTestService(t, repo, &fakeGateway{})

	assert.NoError(t, svc.DeleteByAdmin(context.Background(), 1))
	assert.ErrorIs(t, svc.DeleteByAdmin(context.Background(), 2), ErrPaymentLocked)
	assert.Len(t, repo.payments, 1)

	err := svc.DeleteByAdmin(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFreeRenewal(t *testing.T) {
	repo := newFakeRepository()
	account := repo.addAccount(expiringAccount(1))
	expiredBefore := account.ExpiredAt
	svc := newTestService(t, repo, &fakeGateway{})

	require.NoError(t, svc.FreeRenewal(context.Background(), account, models.CadenceMonth))
	assert.Equal(t, expiredBefore.AddDate(0, 1, 0), repo.accounts[1].ExpiredAt)
	assert.Equal(t, []string{models.CadenceMonth}, repo.freeRenewals)
}

func TestFreeRenewalTooEarly(t *testing.T) {
	repo := newFakeRepository()
	account := repo.addAccount(&models.Account{
		ID:        1,
		Email:     "membre@example.org",
		ExpiredAt: testNow.AddDate(0, 6, 0),
	})
	svc := newTestService(t, repo, &fakeGateway{})

	err := svc.FreeRenewal(context.Background(), account, models.CadenceMonth)
	assert.ErrorIs(t, err, ErrRenewalTooEarly)
	assert.Empty(t, repo.freeRenewals)
}

func TestStartCheckoutGatewayFailure(t *testing.T) {
	repo := newFakeRepository()
	account := repo.addAccount(expiringAccount(1))
	gw := &fakeGateway{createErr: errors.New("stripe is down")}
	svc := newTestService(t, repo, gw)

	_, _, err := svc.StartCheckout(context.Background(), account, models.PaymentTypeCommonPot, "", 500, "https://s", "https://c")
	require.Error(t, err)
	assert.Empty(t, repo.payments, "no row is persisted when the gateway refuses")
}
