package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances
type Repositories struct {
	Account     AccountRepository
	Payment     PaymentRepository
	PotUsage    PotUsageRepository
	Token       TokenRepository
	FreeRenewal FreeRenewalRepository
	AdminUser   AdminUserRepository
}

// NewRepositories creates all repositories backed by the given DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:     NewAccountRepository(db),
		Payment:     NewPaymentRepository(db),
		PotUsage:    NewPotUsageRepository(db),
		Token:       NewTokenRepository(db),
		FreeRenewal: NewFreeRenewalRepository(db),
		AdminUser:   NewAdminUserRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetAccountRepository returns the account repository instance
func (f *Factory) GetAccountRepository() AccountRepository {
	return f.GetRepositories().Account
}

// GetPaymentRepository returns the payment repository instance
func (f *Factory) GetPaymentRepository() PaymentRepository {
	return f.GetRepositories().Payment
}

// GetPotUsageRepository returns the pot usage repository instance
func (f *Factory) GetPotUsageRepository() PotUsageRepository {
	return f.GetRepositories().PotUsage
}

// GetTokenRepository returns the login token repository instance
func (f *Factory) GetTokenRepository() TokenRepository {
	return f.GetRepositories().Token
}

// GetFreeRenewalRepository returns the free renewal repository instance
func (f *Factory) GetFreeRenewalRepository() FreeRenewalRepository {
	return f.GetRepositories().FreeRenewal
}

// GetAdminUserRepository returns the admin user repository instance
func (f *Factory) GetAdminUserRepository() AdminUserRepository {
	return f.GetRepositories().AdminUser
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
