package repository

import (
	"strings"
	"time"

	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account in the database
func (r *accountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByEmail retrieves an account by its email address
func (r *accountRepository) GetByEmail(email string) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("email = ?", strings.TrimSpace(strings.ToLower(email))).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByIDs(ids []uint) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("id IN ?", ids).Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) Update(account *models.Account) error {
	return r.db.Save(account).Error
}

func (r *accountRepository) Delete(id uint) error {
	return r.db.Delete(&models.Account{}, id).Error
}

func (r *accountRepository) List(offset, limit int) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Order("id DESC").Offset(offset).Limit(limit).Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Count(&count).Error
	return count, err
}

// Search finds accounts by email or city fragments (admin back office).
func (r *accountRepository) Search(query string) ([]models.Account, error) {
	var accounts []models.Account
	like := "%" + query + "%"
	err := r.db.Where("email LIKE ? OR city LIKE ? OR company_name LIKE ?", like, like, like).
		Order("id DESC").Limit(100).Find(&accounts).Error
	return accounts, err
}

// CountManagedBy returns how many accounts a manager batch-renews for.
func (r *accountRepository) CountManagedBy(managerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Where("managed_by_id = ?", managerID).Count(&count).Error
	return count, err
}

func (r *accountRepository) ListManagedBy(managerID uint) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("managed_by_id = ?", managerID).Find(&accounts).Error
	return accounts, err
}

// SetManager assigns or clears the managing account. A nil managerID detaches
// the account from its current manager.
func (r *accountRepository) SetManager(accountID uint, managerID *uint) error {
	return r.db.Model(&models.Account{}).Where("id = ?", accountID).
		Update("managed_by_id", managerID).Error
}

// TouchLastSync bumps the sync watermark for the given accounts.
func (r *accountRepository) TouchLastSync(ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Account{}).Where("id IN ?", ids).
		Update("last_sync_at", at).Error
}

// ListExpiringBetween returns reminder-eligible accounts: opted in, not
// the sentinel, not yet reminded this cycle, expiring inside (from, to].
// Free accounts never match because their epoch expiration sits below any
// from bound callers pass.
func (r *accountRepository) ListExpiringBetween(from, to time.Time) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.
		Where("send_reminder = ?", true).
		Where("is_default = ?", false).
		Where("reminder_sent_at IS NULL").
		Where("expired_at > ? AND expired_at <= ?", from, to).
		Find(&accounts).Error
	return accounts, err
}

// ListInactiveSince returns accounts whose subscription lapsed at or before
// the cutoff, candidates for the clearing job. The sentinel and free
// accounts are excluded.
func (r *accountRepository) ListInactiveSince(cutoff time.Time) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.
		Where("is_default = ?", false).
		Where("expired_at > ?", time.Unix(0, 0)).
		Where("expired_at <= ?", cutoff).
		Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) GetDefault() (*models.Account, error) {
	return models.GetOrCreateDefaultAccount(r.db)
}
