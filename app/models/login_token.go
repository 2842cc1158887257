package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// LoginTokenTTL is how long a login link stays usable.
const LoginTokenTTL = 1 * time.Hour

// LoginToken is a single-use, time-limited credential for passwordless login.
type LoginToken struct {
	Token         string     `gorm:"primaryKey;type:varchar(64)" json:"-"`
	AccountID     uint       `gorm:"not null;index" json:"account_id"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt     time.Time  `gorm:"not null" json:"expires_at"`
	InvalidatedAt *time.Time `gorm:"type:timestamp;default:null" json:"-"`
}

// NewLoginToken creates a random token bound to an account.
func NewLoginToken(accountID uint, now time.Time) (*LoginToken, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &LoginToken{
		Token:     hex.EncodeToString(b),
		AccountID: accountID,
		ExpiresAt: now.Add(LoginTokenTTL),
	}, nil
}

// Valid reports whether the token can still be consumed.
func (t *LoginToken) Valid(now time.Time) bool {
	return t.InvalidatedAt == nil && now.Before(t.ExpiresAt)
}

// Invalidate marks the token consumed; it never validates again.
func (t *LoginToken) Invalidate(now time.Time) {
	t.InvalidatedAt = &now
}
