package models

import "time"

const (
	PaymentTypeSubscription = "subscription"
	PaymentTypeCommonPot    = "common_pot"
	PaymentTypeCredit       = "credit"
)

// Amount bounds in minor currency units (1 to 1000 EUR).
const (
	MinPaymentAmount int64 = 100
	MaxPaymentAmount int64 = 100000
)

// Payment is a monetary transaction routed through the external gateway.
// A payment starts unpaid, is flagged paid by the gateway webhook and is
// completed (invoice number, side effects) by the reconciliation job.
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	AccountID         uint       `gorm:"not null;index" json:"account_id"`
	Type              string     `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount            int64      `gorm:"not null" json:"amount"`
	Quantity          int        `gorm:"not null;default:1" json:"quantity"`
	Cadence           string     `gorm:"type:varchar(10);default:null" json:"cadence,omitempty"`
	IsPaid            bool       `gorm:"default:false;index" json:"is_paid"`
	InvoiceNumber     string     `gorm:"type:varchar(20);uniqueIndex;default:null" json:"invoice_number,omitempty"`
	PaymentIntentID   string     `gorm:"type:varchar(191);index;default:null" json:"-"`
	SessionID         string     `gorm:"type:varchar(191);index;default:null" json:"-"`
	CreditedPaymentID *uint      `gorm:"uniqueIndex;default:null" json:"credited_payment_id,omitempty"`
	CompletedAt       *time.Time `gorm:"type:timestamp;default:null;index" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsOngoing reports whether a gateway checkout is still in flight for this
// payment.
func (p *Payment) IsOngoing() bool {
	return p.CompletedAt == nil && p.SessionID != ""
}

func (p *Payment) IsCompleted() bool {
	return p.CompletedAt != nil
}

// IsCredit reports whether this payment reimburses another one.
func (p *Payment) IsCredit() bool {
	return p.Type == PaymentTypeCredit
}

// TotalAmount is the charged amount for the whole batch (managed accounts
// renew several subscriptions in one payment).
func (p *Payment) TotalAmount() int64 {
	q := p.Quantity
	if q < 1 {
		q = 1
	}
	return p.Amount * int64(q)
}

// GatewayFeeEstimate approximates the processor fee for display purposes.
// The schedule (1.4% + 0.25) is an estimate, not an accounting value.
func (p *Payment) GatewayFeeEstimate() int64 {
	return p.TotalAmount()*14/1000 + 25
}

// PotUsage records an account spending common-pot balance on its own
// renewal. It never touches the gateway; it is paid and completed at birth.
type PotUsage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AccountID   uint      `gorm:"not null;index" json:"account_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Cadence     string    `gorm:"type:varchar(10);not null" json:"cadence"`
	IsPaid      bool      `gorm:"not null;default:true" json:"is_paid"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FreeRenewal is an anonymous audit entry for the zero-amount renewal path.
// No account reference on purpose.
type FreeRenewal struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Cadence   string    `gorm:"type:varchar(10);not null" json:"cadence"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
