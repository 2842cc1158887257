package repository

import (
	"time"

	"github.com/soutienweb/cagnotte/app/models"
	"gorm.io/gorm"
)

// tokenRepository implements the TokenRepository interface
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new token repository instance
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(token *models.LoginToken) error {
	return r.db.Create(token).Error
}

func (r *tokenRepository) Get(token string) (*models.LoginToken, error) {
	var t models.LoginToken
	err := r.db.Where("token = ?", token).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Invalidate marks a token consumed so it can never log in again.
func (r *tokenRepository) Invalidate(token string, at time.Time) error {
	return r.db.Model(&models.LoginToken{}).Where("token = ?", token).
		Update("invalidated_at", at).Error
}

// DeleteExpired drops stale tokens; used by housekeeping.
func (r *tokenRepository) DeleteExpired(before time.Time) (int64, error) {
	tx := r.db.Where("expires_at < ?", before).Delete(&models.LoginToken{})
	return tx.RowsAffected, tx.Error
}

// DeleteForAccount drops every token of an account, consumed or not. Part
// of account clearing.
func (r *tokenRepository) DeleteForAccount(accountID uint) error {
	return r.db.Where("account_id = ?", accountID).Delete(&models.LoginToken{}).Error
}

// freeRenewalRepository implements the FreeRenewalRepository interface
type freeRenewalRepository struct {
	db *gorm.DB
}

// NewFreeRenewalRepository creates a new free renewal repository instance
func NewFreeRenewalRepository(db *gorm.DB) FreeRenewalRepository {
	return &freeRenewalRepository{db: db}
}

func (r *freeRenewalRepository) Record(cadence string) error {
	return r.db.Create(&models.FreeRenewal{Cadence: cadence}).Error
}

func (r *freeRenewalRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.FreeRenewal{}).Count(&count).Error
	return count, err
}

// adminUserRepository implements the AdminUserRepository interface
type adminUserRepository struct {
	db *gorm.DB
}

// NewAdminUserRepository creates a new admin user repository instance
func NewAdminUserRepository(db *gorm.DB) AdminUserRepository {
	return &adminUserRepository{db: db}
}

func (r *adminUserRepository) Create(user *models.AdminUser) error {
	return r.db.Create(user).Error
}

func (r *adminUserRepository) GetByID(id uint) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *adminUserRepository) GetByEmail(email string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *adminUserRepository) Update(user *models.AdminUser) error {
	return r.db.Save(user).Error
}
