package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	CadenceMonth = "month"
	CadenceYear  = "year"

	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodCheck    = "check"

	DefaultCountry = "FR"

	// DefaultAccountEmail identifies the sentinel account that inherits
	// payments and pot usages when an inactive account is cleared.
	DefaultAccountEmail = "compte-defaut@cagnotte.local"
)

// ExpiringSoonWindow is how close to expiration an account must be before it
// may spend common-pot balance on its own renewal.
const ExpiringSoonWindow = 7 * 24 * time.Hour

type Account struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Email string `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	// DATETIME, not TIMESTAMP: the epoch-zero free-account sentinel is
	// below the TIMESTAMP range on MySQL.
	ExpiredAt       time.Time  `gorm:"type:datetime;not null;index" json:"expired_at"`
	Cadence         string     `gorm:"type:varchar(10);default:'year'" json:"cadence" validate:"oneof=month year"`
	PaymentMethod   string     `gorm:"type:varchar(20);default:'card'" json:"payment_method" validate:"oneof=card transfer check"`
	SendReminder    bool       `gorm:"default:true" json:"send_reminder"`
	ReminderSentAt  *time.Time `gorm:"type:timestamp;default:null" json:"-"`
	Street          string     `gorm:"type:varchar(200)" json:"street" validate:"max=200"`
	Complement      string     `gorm:"type:varchar(200)" json:"complement" validate:"max=200"`
	Zip             string     `gorm:"type:varchar(20)" json:"zip" validate:"max=20"`
	City            string     `gorm:"type:varchar(100)" json:"city" validate:"max=100"`
	Country         string     `gorm:"type:varchar(2)" json:"country" validate:"omitempty,iso3166_1_alpha2"`
	CompanyName     string     `gorm:"type:varchar(200);default:null" json:"company_name" validate:"max=200"`
	VATNumber       string     `gorm:"type:varchar(40);default:null" json:"vat_number" validate:"max=40"`
	ManagedByID     *uint      `gorm:"index;default:null" json:"managed_by_id,omitempty"`
	LastSyncAt      *time.Time `gorm:"type:timestamp;default:null" json:"last_sync_at,omitempty"`
	IsDefault       bool       `gorm:"default:false" json:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ManagedAccounts []Account  `gorm:"foreignKey:ManagedByID" json:"-"`
}

// Address groups the postal fields of an account.
type Address struct {
	Street     string
	Complement string
	Zip        string
	City       string
	Country    string
}

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// Address returns the postal address; the country falls back to FR when unset.
func (a *Account) Address() Address {
	country := a.Country
	if country == "" {
		country = DefaultCountry
	}
	return Address{
		Street:     a.Street,
		Complement: a.Complement,
		Zip:        a.Zip,
		City:       a.City,
		Country:    country,
	}
}

func (a *Account) SetAddress(addr Address) {
	a.Street = addr.Street
	a.Complement = addr.Complement
	a.Zip = addr.Zip
	a.City = addr.City
	a.Country = addr.Country
}

// IsFree reports whether the account is a permanently-free account, encoded
// as an expiration pinned to the epoch.
func (a *Account) IsFree() bool {
	return a.ExpiredAt.Unix() <= 0
}

func (a *Account) IsExpired(now time.Time) bool {
	return !a.IsFree() && a.ExpiredAt.Before(now)
}

// IsExpiringSoon reports whether the subscription expires within the pot
// usage window (inclusive). Already-expired accounts count as expiring soon.
func (a *Account) IsExpiringSoon(now time.Time) bool {
	if a.IsFree() {
		return false
	}
	return !a.ExpiredAt.After(now.Add(ExpiringSoonWindow))
}

// CanRenew reports whether the subscription expires within one month, the
// window in which renewal is accepted.
func (a *Account) CanRenew(now time.Time) bool {
	if a.IsFree() {
		return false
	}
	return !a.ExpiredAt.After(now.AddDate(0, 1, 0))
}

// ExtendBy pushes the expiration one cadence forward. An expired account is
// extended from now, not from its stale expiration.
func (a *Account) ExtendBy(cadence string, now time.Time) {
	base := a.ExpiredAt
	if base.Before(now) {
		base = now
	}
	switch cadence {
	case CadenceMonth:
		a.ExpiredAt = base.AddDate(0, 1, 0)
	default:
		a.ExpiredAt = base.AddDate(1, 0, 0)
	}
	// The reminder cycle re-arms for the new expiration.
	a.ReminderSentAt = nil
}

// IsManaged reports whether another account batch-renews for this one.
func (a *Account) IsManaged() bool {
	return a.ManagedByID != nil && *a.ManagedByID != 0
}

// GetOrCreateDefaultAccount returns the sentinel account used when clearing
// inactive accounts, creating it on first use.
func GetOrCreateDefaultAccount(db *gorm.DB) (*Account, error) {
	var account Account
	err := db.Where("is_default = ?", true).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	account = Account{
		Email:     DefaultAccountEmail,
		ExpiredAt: time.Unix(0, 0),
		IsDefault: true,
	}
	if err := db.Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
