package repository

import (
	"time"

	"github.com/soutienweb/cagnotte/app/models"
)

// AccountRepository defines the interface for account-related database operations
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id uint) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetByIDs(ids []uint) ([]models.Account, error)
	Update(account *models.Account) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Account, error)
	Count() (int64, error)
	Search(query string) ([]models.Account, error)
	CountManagedBy(managerID uint) (int64, error)
	ListManagedBy(managerID uint) ([]models.Account, error)
	SetManager(accountID uint, managerID *uint) error
	TouchLastSync(ids []uint, at time.Time) error
	ListExpiringBetween(from, to time.Time) ([]models.Account, error)
	ListInactiveSince(cutoff time.Time) ([]models.Account, error)
	GetDefault() (*models.Account, error)
}

// PaymentRepository defines the interface for payment-related database
// operations used by the back office and the account pages. The payment
// lifecycle (intent/session lookups, invoice sequencing) goes through the
// payments package's own transactional repository instead.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	Update(payment *models.Payment) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Payment, error)
	ListByAccount(accountID uint) ([]models.Payment, error)
	ListAll() ([]models.Payment, error)
	Count() (int64, error)
	ReassignAccount(fromAccountID, toAccountID uint) error
}

// PotUsageRepository defines the interface for common-pot usage records
type PotUsageRepository interface {
	Create(usage *models.PotUsage) error
	ListByAccount(accountID uint) ([]models.PotUsage, error)
	List(offset, limit int) ([]models.PotUsage, error)
	Count() (int64, error)
	ReassignAccount(fromAccountID, toAccountID uint) error
}

// TokenRepository defines the interface for passwordless login tokens
type TokenRepository interface {
	Create(token *models.LoginToken) error
	Get(token string) (*models.LoginToken, error)
	Invalidate(token string, at time.Time) error
	DeleteExpired(before time.Time) (int64, error)
	DeleteForAccount(accountID uint) error
}

// FreeRenewalRepository records anonymous free-renewal audit entries
type FreeRenewalRepository interface {
	Record(cadence string) error
	Count() (int64, error)
}

// AdminUserRepository defines the interface for back-office operators
type AdminUserRepository interface {
	Create(user *models.AdminUser) error
	GetByID(id uint) (*models.AdminUser, error)
	GetByEmail(email string) (*models.AdminUser, error)
	Update(user *models.AdminUser) error
}
