// Package stripe is a minimal client for the parts of the Stripe API this
// service uses: Checkout Sessions, refunds, and webhook signature
// verification.
package stripe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAPIBaseURL is the live Stripe API endpoint
const DefaultAPIBaseURL = "https://api.stripe.com"

// Config holds Stripe credentials and checkout settings
type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
	APIBaseURL    string // overridable for tests
}

// Client talks to the Stripe REST API
type Client struct {
	config  *Config
	logger  *logrus.Logger
	client  *http.Client
	baseURL string
}

// NewClient creates a new Stripe client
func NewClient(cfg *Config, logger *logrus.Logger) *Client {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		config:  cfg,
		logger:  logger,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// IsConfigured returns true if API credentials are present
func (c *Client) IsConfigured() bool {
	return c.config.SecretKey != "" && c.config.WebhookSecret != ""
}

// WebhookSecret returns the endpoint signing secret
func (c *Client) WebhookSecret() string {
	return c.config.WebhookSecret
}

// CheckoutParams describes a single-line-item checkout session
type CheckoutParams struct {
	AmountCents   int64
	ProductName   string
	Description   string
	CustomerEmail string
	Metadata      map[string]string
}

// Session is the subset of a Stripe Checkout Session this service reads
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
}

// Refund is the subset of a Stripe refund object this service reads
type Refund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCheckoutSession creates a hosted checkout session for a card payment
// of AmountCents, carrying Metadata back verbatim on the completion webhook.
func (c *Client) CreateCheckoutSession(params *CheckoutParams) (*Session, error) {
	if c.config.SecretKey == "" {
		return nil, fmt.Errorf("stripe not configured: missing secret key")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", c.config.Currency)
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	if params.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.Description)
	}
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", c.config.SuccessURL)
	form.Set("cancel_url", c.config.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	for key, value := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	var session Session
	if err := c.post("/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}

	if session.URL == "" {
		return nil, fmt.Errorf("checkout session created without redirect URL")
	}

	c.logger.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"amount_cents": params.AmountCents,
		"currency":     c.config.Currency,
	}).Info("Stripe checkout session created")

	return &session, nil
}

// RefundPaymentIntent issues a full refund against a payment intent
func (c *Client) RefundPaymentIntent(paymentIntentID string) (*Refund, error) {
	if paymentIntentID == "" {
		return nil, fmt.Errorf("payment intent id is required")
	}

	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)

	var refund Refund
	if err := c.post("/v1/refunds", form, &refund); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"refund_id":      refund.ID,
		"payment_intent": paymentIntentID,
		"status":         refund.Status,
	}).Info("Stripe refund created")

	return &refund, nil
}

func (c *Client) post(path string, form url.Values, out interface{}) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s (%s)", path, apiErr.Error.Message, apiErr.Error.Type)
		}
		return fmt.Errorf("stripe %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse stripe response: %w", err)
	}

	return nil
}
