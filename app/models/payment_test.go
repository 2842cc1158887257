package models

import (
	"testing"
	"time"
)

func TestPaymentIsOngoing(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		payment Payment
		want    bool
	}{
		{name: "pending with session", payment: Payment{SessionID: "cs_123"}, want: true},
		{name: "draft without session", payment: Payment{}, want: false},
		{name: "completed", payment: Payment{SessionID: "cs_123", CompletedAt: &now}, want: false},
	}

	for _, tt := range tests {
		if got := tt.payment.IsOngoing(); got != tt.want {
			t.Fatalf("%s: IsOngoing = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPaymentTotalAmount(t *testing.T) {
	p := Payment{Amount: 1200, Quantity: 3}
	if got := p.TotalAmount(); got != 3600 {
		t.Fatalf("TotalAmount = %d, want 3600", got)
	}

	// Zero quantity is treated as a single subscription.
	p = Payment{Amount: 1200}
	if got := p.TotalAmount(); got != 1200 {
		t.Fatalf("TotalAmount = %d, want 1200", got)
	}
}

func TestGatewayFeeEstimate(t *testing.T) {
	// floor(2000 * 1.4%) + 25 = 53
	p := Payment{Amount: 2000, Quantity: 1}
	if got := p.GatewayFeeEstimate(); got != 53 {
		t.Fatalf("GatewayFeeEstimate = %d, want 53", got)
	}
}

func TestLoginTokenValidity(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tok, err := NewLoginToken(42, now)
	if err != nil {
		t.Fatalf("NewLoginToken: %v", err)
	}
	if len(tok.Token) != 48 {
		t.Fatalf("token length = %d, want 48 hex chars", len(tok.Token))
	}
	if !tok.Valid(now) {
		t.Fatal("fresh token should be valid")
	}
	if tok.Valid(now.Add(LoginTokenTTL + time.Minute)) {
		t.Fatal("expired token should be invalid")
	}

	tok.Invalidate(now)
	if tok.Valid(now.Add(time.Minute)) {
		t.Fatal("consumed token should be invalid")
	}
}
