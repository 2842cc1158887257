package pot

import (
	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the balance engine.
type Repository interface {
	// CompletedContributionTotal sums completed common-pot payments,
	// excluding contributions that were reimbursed by a completed credit.
	CompletedContributionTotal() (int64, error)
	// CompletedUsageTotal sums all completed pot usages.
	CompletedUsageTotal() (int64, error)
	CreateUsage(usage *models.PotUsage) error
	SaveAccount(account *models.Account) error
	// Transaction runs fn against a repository bound to one transaction, so
	// a balance read and the usage it funds commit (or roll back) together.
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a pot repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CompletedContributionTotal() (int64, error) {
	var total int64
	err := r.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND completed_at IS NOT NULL", models.PaymentTypeCommonPot).
		Where("id NOT IN (?)", r.db.Model(&models.Payment{}).
			Select("credited_payment_id").
			Where("type = ? AND completed_at IS NOT NULL AND credited_payment_id IS NOT NULL", models.PaymentTypeCredit)).
		Scan(&total).Error
	return total, err
}

func (r *gormRepository) CompletedUsageTotal() (int64, error) {
	var total int64
	err := r.db.Model(&models.PotUsage{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("is_paid = ?", true).
		Scan(&total).Error
	return total, err
}

func (r *gormRepository) CreateUsage(usage *models.PotUsage) error {
	return r.db.Create(usage).Error
}

func (r *gormRepository) SaveAccount(account *models.Account) error {
	return r.db.Save(account).Error
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
