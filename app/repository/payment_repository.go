package repository

import (
	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetByID(id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Update(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *paymentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Payment{}, id).Error
}

func (r *paymentRepository) List(offset, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Order("id DESC").Offset(offset).Limit(limit).Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) ListByAccount(accountID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("account_id = ?", accountID).Order("id DESC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) ListAll() ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Order("id ASC").Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).Count(&count).Error
	return count, err
}

// ReassignAccount moves all payments from one account to another (clearing
// job support).
func (r *paymentRepository) ReassignAccount(fromAccountID, toAccountID uint) error {
	return r.db.Model(&models.Payment{}).Where("account_id = ?", fromAccountID).
		Update("account_id", toAccountID).Error
}
