package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// Intent statuses we branch on. Anything else is treated as not succeeded.
const (
	IntentStatusSucceeded  = "succeeded"
	IntentStatusProcessing = "processing"
	IntentStatusCanceled   = "canceled"
)

// Client is a thin HTTP client for the Stripe Checkout API. Only the three
// calls the billing flows need are implemented.
type Client struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// CheckoutSession is the subset of a Stripe checkout session we consume.
type CheckoutSession struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	PaymentIntent *PaymentIntent `json:"payment_intent"`
}

// PaymentIntent carries the intent id and its lifecycle status.
type PaymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// APIError is Stripe's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

// IsAlreadyCanceled reports whether an error is Stripe telling us the intent
// was canceled before we asked. Benign during checkout abandonment.
func IsAlreadyCanceled(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == "payment_intent_unexpected_state" ||
		strings.Contains(apiErr.Message, "already been canceled")
}

func NewClientFromEnv() *Client {
	return &Client{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

// CreateCheckoutSession opens a hosted checkout page for the given amount.
// Amounts are minor currency units.
func (c *Client) CreateCheckoutSession(ctx context.Context, amount int64, quantity int, description, successURL, cancelURL string) (*CheckoutSession, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if quantity < 1 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][price_data][currency]", "eur")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", description)
	form.Set("line_items[0][quantity]", strconv.Itoa(quantity))
	form.Set("expand[]", "payment_intent")

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RetrieveSession fetches a checkout session with its intent expanded.
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errors.New("session id is required")
	}

	form := url.Values{}
	form.Set("expand[]", "payment_intent")

	var session CheckoutSession
	path := "/checkout/sessions/" + url.PathEscape(sessionID) + "?" + form.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CancelPaymentIntent proactively cancels an abandoned checkout's intent.
func (c *Client) CancelPaymentIntent(ctx context.Context, intentID string) error {
	if strings.TrimSpace(intentID) == "" {
		return errors.New("payment intent id is required")
	}
	var intent PaymentIntent
	return c.do(ctx, http.MethodPost, "/payment_intents/"+url.PathEscape(intentID)+"/cancel", url.Values{}, &intent)
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		// Stripe deduplicates retried POSTs on this key.
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &envelope)
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("stripe: invalid response body: %w", err)
	}
	return nil
}
