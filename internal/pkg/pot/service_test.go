package pot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soutienweb/cagnotte/app/models"
)

// fakeRepository mirrors the balance queries over in-memory rows.
type fakeRepository struct {
	payments []models.Payment
	usages   []models.PotUsage
	accounts []*models.Account

	failContributions error
}

func (f *fakeRepository) CompletedContributionTotal() (int64, error) {
	if f.failContributions != nil {
		return 0, f.failContributions
	}
	credited := make(map[uint]bool)
	for _, p := range f.payments {
		if p.Type == models.PaymentTypeCredit && p.CompletedAt != nil && p.CreditedPaymentID != nil {
			credited[*p.CreditedPaymentID] = true
		}
	}
	var total int64
	for _, p := range f.payments {
		if p.Type != models.PaymentTypeCommonPot || p.CompletedAt == nil {
			continue
		}
		if credited[p.ID] {
			continue
		}
		total += p.Amount
	}
	return total, nil
}

func (f *fakeRepository) CompletedUsageTotal() (int64, error) {
	var total int64
	for _, u := range f.usages {
		if u.IsPaid {
			total += u.Amount
		}
	}
	return total, nil
}

func (f *fakeRepository) CreateUsage(usage *models.PotUsage) error {
	usage.ID = uint(len(f.usages) + 1)
	f.usages = append(f.usages, *usage)
	return nil
}

func (f *fakeRepository) SaveAccount(account *models.Account) error {
	f.accounts = append(f.accounts, account)
	return nil
}

func (f *fakeRepository) Transaction(fn func(Repository) error) error {
	return fn(f)
}

func completedAt(t time.Time) *time.Time { return &t }

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestAvailableAmount(t *testing.T) {
	repo := &fakeRepository{
		payments: []models.Payment{
			{ID: 1, Type: models.PaymentTypeCommonPot, Amount: 500, CompletedAt: completedAt(testNow)},
			{ID: 2, Type: models.PaymentTypeCommonPot, Amount: 1000}, // not completed
			{ID: 3, Type: models.PaymentTypeSubscription, Amount: 2400, CompletedAt: completedAt(testNow)},
		},
		usages: []models.PotUsage{
			{ID: 1, Amount: 300, IsPaid: true},
		},
	}

	got, err := NewService(repo).AvailableAmount(context.Background())
	if err != nil {
		t.Fatalf("AvailableAmount: %v", err)
	}
	if got != 200 {
		t.Fatalf("AvailableAmount = %d, want 200", got)
	}
}

func TestAvailableAmountExcludesCreditedContributions(t *testing.T) {
	creditRef := uint(1)
	repo := &fakeRepository{
		payments: []models.Payment{
			{ID: 1, Type: models.PaymentTypeCommonPot, Amount: 500, CompletedAt: completedAt(testNow)},
			{ID: 2, Type: models.PaymentTypeCommonPot, Amount: 700, CompletedAt: completedAt(testNow)},
			{ID: 3, Type: models.PaymentTypeCredit, Amount: 500, CreditedPaymentID: &creditRef, CompletedAt: completedAt(testNow)},
		},
	}

	got, err := NewService(repo).AvailableAmount(context.Background())
	if err != nil {
		t.Fatalf("AvailableAmount: %v", err)
	}
	// The reimbursed 500 contribution must not count toward the pool.
	if got != 700 {
		t.Fatalf("AvailableAmount = %d, want 700", got)
	}
}

func TestAvailableAmountNeverNegative(t *testing.T) {
	repo := &fakeRepository{
		usages: []models.PotUsage{{ID: 1, Amount: 900, IsPaid: true}},
	}
	got, err := NewService(repo).AvailableAmount(context.Background())
	if err != nil {
		t.Fatalf("AvailableAmount: %v", err)
	}
	if got != 0 {
		t.Fatalf("AvailableAmount = %d, want 0", got)
	}
}

func TestCheckEligibility(t *testing.T) {
	contribution := models.Payment{ID: 1, Type: models.PaymentTypeCommonPot, Amount: 1000, CompletedAt: completedAt(testNow)}

	tests := []struct {
		name     string
		payments []models.Payment
		account  models.Account
		want     []string
	}{
		{
			name:     "eligible",
			payments: []models.Payment{contribution},
			account:  models.Account{ID: 7, ExpiredAt: testNow.Add(2 * 24 * time.Hour)},
			want:     nil,
		},
		{
			name:     "not expiring soon",
			payments: []models.Payment{contribution},
			account:  models.Account{ID: 7, ExpiredAt: testNow.Add(8 * 24 * time.Hour)},
			want:     []string{RefusalNotExpiringSoon},
		},
		{
			name:     "insufficient balance",
			payments: []models.Payment{{ID: 1, Type: models.PaymentTypeCommonPot, Amount: 200, CompletedAt: completedAt(testNow)}},
			account:  models.Account{ID: 7, ExpiredAt: testNow.Add(2 * 24 * time.Hour)},
			want:     []string{RefusalInsufficientBalance},
		},
		{
			name:     "free account",
			payments: []models.Payment{contribution},
			account:  models.Account{ID: 7, ExpiredAt: time.Unix(0, 0)},
			want:     []string{RefusalFreeAccount},
		},
		{
			name:     "multiple failures reported together",
			payments: nil,
			account:  models.Account{ID: 7, ExpiredAt: testNow.Add(30 * 24 * time.Hour)},
			want:     []string{RefusalInsufficientBalance, RefusalNotExpiringSoon},
		},
	}

	for _, tt := range tests {
		repo := &fakeRepository{payments: tt.payments}
		got, err := NewService(repo).CheckEligibility(context.Background(), &tt.account, testNow)
		if err != nil {
			t.Fatalf("%s: CheckEligibility: %v", tt.name, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("%s: reasons = %v, want %v", tt.name, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("%s: reasons = %v, want %v", tt.name, got, tt.want)
			}
		}
	}
}

func TestSpendForRenewal(t *testing.T) {
	repo := &fakeRepository{
		payments: []models.Payment{
			{ID: 1, Type: models.PaymentTypeCommonPot, Amount: 500, CompletedAt: completedAt(testNow)},
		},
	}
	account := &models.Account{ID: 7, ExpiredAt: testNow.Add(2 * 24 * time.Hour)}

	usage, err := NewService(repo).SpendForRenewal(context.Background(), account, models.CadenceMonth, testNow)
	if err != nil {
		t.Fatalf("SpendForRenewal: %v", err)
	}
	if usage.Amount != UsageTariffMonth || !usage.IsPaid {
		t.Fatalf("usage = %+v, want paid usage of %d", usage, UsageTariffMonth)
	}
	if want := testNow.Add(2*24*time.Hour).AddDate(0, 1, 0); !account.ExpiredAt.Equal(want) {
		t.Fatalf("ExpiredAt = %v, want %v", account.ExpiredAt, want)
	}

	// The usage is recorded, so a second spend sees the reduced balance.
	balance, _ := NewService(repo).AvailableAmount(context.Background())
	if balance != 200 {
		t.Fatalf("balance after spend = %d, want 200", balance)
	}
	if _, err := NewService(repo).SpendForRenewal(context.Background(), account, models.CadenceMonth, testNow); err == nil {
		t.Fatal("second spend should be refused for insufficient balance")
	}
}

func TestSpendForRenewalRejections(t *testing.T) {
	repo := &fakeRepository{
		payments: []models.Payment{
			{ID: 1, Type: models.PaymentTypeCommonPot, Amount: 1000, CompletedAt: completedAt(testNow)},
		},
	}
	account := &models.Account{ID: 7, ExpiredAt: testNow.Add(8 * 24 * time.Hour)}

	_, err := NewService(repo).SpendForRenewal(context.Background(), account, models.CadenceMonth, testNow)
	var notEligible *ErrNotEligible
	if !errors.As(err, &notEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
	if len(notEligible.Reasons) != 1 || notEligible.Reasons[0] != RefusalNotExpiringSoon {
		t.Fatalf("reasons = %v, want [%s]", notEligible.Reasons, RefusalNotExpiringSoon)
	}
	if len(repo.usages) != 0 {
		t.Fatalf("refused spend must create zero usage rows, got %d", len(repo.usages))
	}

	// Yearly usage needs the yearly tariff even when the minimum balance is met.
	account = &models.Account{ID: 7, ExpiredAt: testNow.Add(2 * 24 * time.Hour)}
	if _, err := NewService(repo).SpendForRenewal(context.Background(), account, models.CadenceYear, testNow); err == nil {
		t.Fatal("yearly spend with balance 1000 should be refused")
	}
}
