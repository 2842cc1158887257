package pot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
)

// Fixed tariffs for spending pot balance on a renewal, in minor units.
const (
	UsageTariffMonth int64 = 300
	UsageTariffYear  int64 = 3000
)

// MinimumSpendableBalance is the smallest balance that allows any usage.
const MinimumSpendableBalance = UsageTariffMonth

// Eligibility clauses reported when a pot usage is refused.
const (
	RefusalInsufficientBalance = "insufficient_balance"
	RefusalFreeAccount         = "free_account"
	RefusalNotExpiringSoon     = "not_expiring_soon"
)

// ErrNotEligible wraps the failed eligibility clauses; a rejection, not a
// system fault.
type ErrNotEligible struct {
	Reasons []string
}

func (e *ErrNotEligible) Error() string {
	return "pot usage refused: " + strings.Join(e.Reasons, ", ")
}

// Service computes the spendable common-pot balance and turns it into
// subscription extensions.
type Service struct {
	repo Repository
}

// NewService creates a pot service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a pot service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// UsageTariff returns the fixed cost of a pot-funded renewal.
func UsageTariff(cadence string) (int64, error) {
	switch cadence {
	case models.CadenceMonth:
		return UsageTariffMonth, nil
	case models.CadenceYear:
		return UsageTariffYear, nil
	}
	return 0, fmt.Errorf("unknown cadence %q", cadence)
}

// AvailableAmount returns the currently spendable pot balance in minor
// units: completed contributions, minus reimbursed ones, minus consumed
// usages. Never negative.
func (s *Service) AvailableAmount(ctx context.Context) (int64, error) {
	_ = ctx
	return availableAmount(s.repo)
}

func availableAmount(repo Repository) (int64, error) {
	contributions, err := repo.CompletedContributionTotal()
	if err != nil {
		return 0, err
	}
	usages, err := repo.CompletedUsageTotal()
	if err != nil {
		return 0, err
	}
	balance := contributions - usages
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}

// CheckEligibility returns every clause the account fails. An empty slice
// means the account may spend pot balance right now.
func (s *Service) CheckEligibility(ctx context.Context, account *models.Account, now time.Time) ([]string, error) {
	_ = ctx
	if account == nil {
		return nil, errors.New("account is required")
	}
	balance, err := availableAmount(s.repo)
	if err != nil {
		return nil, err
	}
	return eligibilityFailures(account, balance, now), nil
}

func eligibilityFailures(account *models.Account, balance int64, now time.Time) []string {
	var reasons []string
	if balance < MinimumSpendableBalance {
		reasons = append(reasons, RefusalInsufficientBalance)
	}
	if account.IsFree() {
		reasons = append(reasons, RefusalFreeAccount)
	}
	if !account.IsFree() && !account.IsExpiringSoon(now) {
		reasons = append(reasons, RefusalNotExpiringSoon)
	}
	return reasons
}

// SpendForRenewal consumes pot balance to extend the account by one cadence.
// Eligibility is re-checked inside the transaction so a usage can never
// spend balance that a concurrent completion or credit is taking away.
func (s *Service) SpendForRenewal(ctx context.Context, account *models.Account, cadence string, now time.Time) (*models.PotUsage, error) {
	_ = ctx
	if account == nil {
		return nil, errors.New("account is required")
	}
	tariff, err := UsageTariff(cadence)
	if err != nil {
		return nil, err
	}

	var usage *models.PotUsage
	err = s.repo.Transaction(func(tx Repository) error {
		balance, err := availableAmount(tx)
		if err != nil {
			return err
		}
		if reasons := eligibilityFailures(account, balance, now); len(reasons) > 0 {
			return &ErrNotEligible{Reasons: reasons}
		}
		if balance < tariff {
			return &ErrNotEligible{Reasons: []string{RefusalInsufficientBalance}}
		}

		usage = &models.PotUsage{
			AccountID:   account.ID,
			Amount:      tariff,
			Cadence:     cadence,
			IsPaid:      true,
			CompletedAt: now,
		}
		if err := tx.CreateUsage(usage); err != nil {
			return err
		}

		account.ExtendBy(cadence, now)
		return tx.SaveAccount(account)
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}
