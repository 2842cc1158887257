package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultWebhookTolerance bounds the age of a signed webhook payload.
const DefaultWebhookTolerance = 5 * time.Minute

// Event is the decoded webhook envelope. Object holds the raw event payload
// for per-type decoding.
type Event struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Object json.RawMessage
}

// CheckoutSessionEvent is the object carried by checkout.session.* events.
type CheckoutSessionEvent struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	PaymentStatus string `json:"payment_status"`
}

// VerifyWebhookSignature checks a Stripe-Signature header against the
// endpoint secret. The header carries a timestamp and one or more v1 HMACs:
// t=1492774577,v1=5257a86...
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	var timestamp int64
	var candidates [][]byte
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return false
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue
			}
			candidates = append(candidates, sig)
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return false
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(timestamp, 0))
		if age > tolerance || age < -tolerance {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range candidates {
		if hmac.Equal(expected, sig) {
			return true
		}
	}
	return false
}

// ParseEvent decodes the webhook envelope and exposes the inner object raw.
func ParseEvent(payload []byte) (*Event, error) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object json.RawMessage `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, err
	}
	if envelope.Type == "" {
		return nil, errors.New("stripe: event type missing")
	}
	return &Event{
		ID:     envelope.ID,
		Type:   envelope.Type,
		Object: envelope.Data.Object,
	}, nil
}

// DecodeCheckoutSession decodes the session object of a checkout event.
func (e *Event) DecodeCheckoutSession() (*CheckoutSessionEvent, error) {
	var session CheckoutSessionEvent
	if err := json.Unmarshal(e.Object, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, errors.New("stripe: checkout session id missing")
	}
	return &session, nil
}
