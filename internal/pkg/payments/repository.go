package payments

import (
	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the payment lifecycle
// service. The GORM implementation maps one-to-one onto the entity
// repositories; it exists so the service can run several of these operations
// inside one transaction.
type Repository interface {
	CreatePayment(payment *models.Payment) error
	SavePayment(payment *models.Payment) error
	DeletePayment(id uint) error
	GetPayment(id uint) (*models.Payment, error)
	GetPaymentByIntentID(intentID string) (*models.Payment, error)
	GetPaymentBySessionID(sessionID string) (*models.Payment, error)
	OngoingPaymentForAccount(accountID uint) (*models.Payment, error)
	HasCreditFor(paymentID uint) (bool, error)
	ListPaidUncompleted() ([]models.Payment, error)
	// LastInvoiceNumberForYear locks and returns the highest invoice number
	// of the year; returns gorm.ErrRecordNotFound when none was issued yet.
	LastInvoiceNumberForYear(year int) (string, error)

	GetAccount(id uint) (*models.Account, error)
	SaveAccount(account *models.Account) error
	CountManagedBy(managerID uint) (int64, error)
	ListManagedBy(managerID uint) ([]models.Account, error)

	RecordFreeRenewal(cadence string) error

	// Transaction runs fn against a repository bound to one transaction.
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) SavePayment(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *gormRepository) DeletePayment(id uint) error {
	return r.db.Delete(&models.Payment{}, id).Error
}

func (r *gormRepository) GetPayment(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) GetPaymentByIntentID(intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("payment_intent_id = ?", intentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) GetPaymentBySessionID(sessionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("session_id = ?", sessionID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) OngoingPaymentForAccount(accountID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.Where("account_id = ? AND completed_at IS NULL AND session_id IS NOT NULL AND session_id <> ''", accountID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormRepository) HasCreditFor(paymentID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("type = ? AND credited_payment_id = ?", models.PaymentTypeCredit, paymentID).
		Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) ListPaidUncompleted() ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("is_paid = ? AND completed_at IS NULL", true).
		Order("id ASC").Find(&payments).Error
	return payments, err
}

func (r *gormRepository) LastInvoiceNumberForYear(year int) (string, error) {
	var payment models.Payment
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invoice_number LIKE ?", invoiceYearPrefix(year)+"%").
		Order("invoice_number DESC").
		First(&payment).Error
	if err != nil {
		return "", err
	}
	return payment.InvoiceNumber, nil
}

func (r *gormRepository) GetAccount(id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) SaveAccount(account *models.Account) error {
	return r.db.Save(account).Error
}

func (r *gormRepository) CountManagedBy(managerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Where("managed_by_id = ?", managerID).Count(&count).Error
	return count, err
}

func (r *gormRepository) ListManagedBy(managerID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("managed_by_id = ?", managerID).Find(&accounts).Error
	return accounts, err
}

func (r *gormRepository) RecordFreeRenewal(cadence string) error {
	return r.db.Create(&models.FreeRenewal{Cadence: cadence}).Error
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
