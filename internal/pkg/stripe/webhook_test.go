package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func signedHeader(payload []byte, at time.Time, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	header := signedHeader(payload, now, testSecret)
	if !VerifyWebhookSignature(payload, header, testSecret, DefaultWebhookTolerance, now) {
		t.Fatal("valid signature rejected")
	}

	if VerifyWebhookSignature(payload, header, "whsec_other", DefaultWebhookTolerance, now) {
		t.Fatal("signature accepted with wrong secret")
	}

	if VerifyWebhookSignature([]byte(`{"tampered":true}`), header, testSecret, DefaultWebhookTolerance, now) {
		t.Fatal("signature accepted for tampered payload")
	}

	// Stale timestamps are refused within tolerance bounds.
	old := signedHeader(payload, now.Add(-10*time.Minute), testSecret)
	if VerifyWebhookSignature(payload, old, testSecret, DefaultWebhookTolerance, now) {
		t.Fatal("stale signature accepted")
	}

	if VerifyWebhookSignature(payload, "", testSecret, DefaultWebhookTolerance, now) {
		t.Fatal("empty header accepted")
	}
	if VerifyWebhookSignature(payload, header, "", DefaultWebhookTolerance, now) {
		t.Fatal("empty secret accepted")
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_42",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_123", "payment_intent": "pi_456", "payment_status": "paid"}}
	}`)

	event, err := ParseEvent(payload)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.ID != "evt_42" || event.Type != "checkout.session.completed" {
		t.Fatalf("unexpected envelope: %+v", event)
	}

	session, err := event.DecodeCheckoutSession()
	if err != nil {
		t.Fatalf("DecodeCheckoutSession: %v", err)
	}
	if session.PaymentIntent != "pi_456" || session.PaymentStatus != "paid" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestParseEventRejectsGarbage(t *testing.T) {
	if _, err := ParseEvent([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if _, err := ParseEvent([]byte(`{"id":"evt_1"}`)); err == nil {
		t.Fatal("expected error for missing event type")
	}
}
