package repository

import (
	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
)

// potUsageRepository implements the PotUsageRepository interface
type potUsageRepository struct {
	db *gorm.DB
}

// NewPotUsageRepository creates a new pot usage repository instance
func NewPotUsageRepository(db *gorm.DB) PotUsageRepository {
	return &potUsageRepository{db: db}
}

func (r *potUsageRepository) Create(usage *models.PotUsage) error {
	return r.db.Create(usage).Error
}

func (r *potUsageRepository) ListByAccount(accountID uint) ([]models.PotUsage, error) {
	var usages []models.PotUsage
	err := r.db.Where("account_id = ?", accountID).Order("id DESC").Find(&usages).Error
	return usages, err
}

func (r *potUsageRepository) List(offset, limit int) ([]models.PotUsage, error) {
	var usages []models.PotUsage
	err := r.db.Order("id DESC").Offset(offset).Limit(limit).Find(&usages).Error
	return usages, err
}

func (r *potUsageRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.PotUsage{}).Count(&count).Error
	return count, err
}

func (r *potUsageRepository) ReassignAccount(fromAccountID, toAccountID uint) error {
	return r.db.Model(&models.PotUsage{}).Where("account_id = ?", fromAccountID).
		Update("account_id", toAccountID).Error
}
