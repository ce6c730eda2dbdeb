// Package billing integrates the payment processor: checkout session
// creation, webhook verification and event mapping, and the background sync
// that writes billing outcomes into provider user metadata.
package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Webhook event types the application reacts to. Anything else is
// acknowledged and dropped.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrBadSignature means the webhook payload failed signature verification.
var ErrBadSignature = errors.New("billing: invalid webhook signature")

// Event is a verified webhook event, reduced to the fields gating cares
// about.
type Event struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Subject   string     `json:"subject"`
	PriceID   string     `json:"price_id"`
	Status    string     `json:"status"`
	PeriodEnd *time.Time `json:"period_end,omitempty"`
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	Subject    string
	Email      string
	PriceID    string
	Reference  string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the processor's answer: where to send the browser.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Processor is the payment-processor collaborator. Signature cryptography and
// billing state machines live on the processor's side; this interface only
// carries verified results.
type Processor interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error)
	VerifyWebhook(payload []byte, signature string) (*Event, error)
}

// RESTProcessor talks to the processor's REST API and verifies webhook
// signatures with the shared endpoint secret (timestamped HMAC-SHA256,
// stripe-style "t=...,v1=..." header).
type RESTProcessor struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	tolerance     time.Duration
	http          *http.Client
	// now is swappable for tests.
	now func() time.Time
}

// NewRESTProcessor builds a processor client.
func NewRESTProcessor(baseURL, apiKey, webhookSecret string) *RESTProcessor {
	return &RESTProcessor{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		tolerance:     5 * time.Minute,
		http:          &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
}

// CreateCheckoutSession asks the processor for a hosted checkout URL.
func (p *RESTProcessor) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	body, err := json.Marshal(map[string]any{
		"price_id":         params.PriceID,
		"client_reference": params.Reference,
		"subject":          params.Subject,
		"customer_email":   params.Email,
		"success_url":      params.SuccessURL,
		"cancel_url":       params.CancelURL,
		"mode":             "subscription",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: checkout request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("billing: checkout request: %s", resp.Status)
	}
	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("billing: decode checkout session: %w", err)
	}
	return &session, nil
}

// VerifyWebhook checks the signature header against the payload and decodes
// the event. The timestamp in the header must be within tolerance.
func (p *RESTProcessor) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	ts, sig, err := parseSignatureHeader(signature)
	if err != nil {
		return nil, err
	}
	if d := p.now().Sub(time.Unix(ts, 0)); d > p.tolerance || d < -p.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(expected, got) {
		return nil, ErrBadSignature
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("billing: decode event: %w", err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("billing: event missing id or type")
	}
	return &ev, nil
}

// SignPayload produces a valid signature header for tests and local tooling.
func (p *RESTProcessor) SignPayload(payload []byte, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(p.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(h string) (ts int64, sig string, err error) {
	for _, part := range strings.Split(h, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("%w: bad timestamp", ErrBadSignature)
			}
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", fmt.Errorf("%w: missing header fields", ErrBadSignature)
	}
	return ts, sig, nil
}
