package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

var (
	ErrNotConfigured = errors.New("stripe is not configured")
	ErrNotFound      = errors.New("stripe object not found")
)

// Config holds Stripe API configuration
type Config struct {
	BaseURL    string
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int64
}

// Client creates and retrieves Checkout Sessions through stripe-go.
type Client struct {
	config   Config
	sessions *session.Client
}

// CheckoutRequest describes a one-off credit package purchase.
type CheckoutRequest struct {
	Email       string
	Item        string
	Description string
	AmountCents int
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the subset of the Checkout Session object the studio reads.
type CheckoutSession struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	AmountTotal       int
	Currency          string
	CustomerEmail     string
	CustomerDetails   *CustomerDetails
	ClientReferenceID string
	Metadata          map[string]string
}

type CustomerDetails struct {
	Email string
}

// Paid reports whether the session has collected payment.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == string(stripego.CheckoutSessionPaymentStatusPaid)
}

// Email returns the buyer email, preferring checkout metadata.
func (s *CheckoutSession) Email() string {
	if e := s.Metadata["email"]; e != "" {
		return e
	}
	if s.CustomerEmail != "" {
		return s.CustomerEmail
	}
	if s.CustomerDetails != nil {
		return s.CustomerDetails.Email
	}
	return ""
}

func fromStripeSession(s *stripego.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		AmountTotal:       int(s.AmountTotal),
		Currency:          string(s.Currency),
		CustomerEmail:     s.CustomerEmail,
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if s.CustomerDetails != nil {
		out.CustomerDetails = &CustomerDetails{Email: s.CustomerDetails.Email}
	}
	return out
}

// NewClient creates new Stripe API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = stripego.APIURL
	}
	backend := stripego.GetBackendWithConfig(stripego.APIBackend, &stripego.BackendConfig{
		URL:               stripego.String(strings.TrimRight(cfg.BaseURL, "/")),
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripego.Int64(cfg.MaxRetries),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
	})
	return &Client{
		config:   cfg,
		sessions: &session.Client{B: backend, Key: cfg.SecretKey},
	}
}

// Configured reports whether a secret key is present.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.config.SecretKey) != ""
}

// CreateCheckoutSession creates a payment-mode Checkout Session.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	currency := req.Currency
	if currency == "" {
		currency = string(stripego.CurrencyUSD)
	}

	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL:        stripego.String(req.SuccessURL),
		CancelURL:         stripego.String(req.CancelURL),
		CustomerEmail:     stripego.String(req.Email),
		ClientReferenceID: stripego.String(req.Email),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			Quantity: stripego.Int64(1),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(currency),
				UnitAmount: stripego.Int64(int64(req.AmountCents)),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(req.Description),
				},
			},
		}},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, mapError(err)
	}
	return fromStripeSession(s), nil
}

// GetCheckoutSession retrieves a session by id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("validation error: session id must be non-empty")
	}

	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	s, err := c.sessions.Get(sessionID, params)
	if err != nil {
		return nil, mapError(err)
	}
	return fromStripeSession(s), nil
}

func mapError(err error) error {
	var se *stripego.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == http.StatusNotFound || se.Code == stripego.ErrorCodeResourceMissing {
			return fmt.Errorf("%w: %s", ErrNotFound, se.Msg)
		}
		return fmt.Errorf("stripe api returned %d: %s", se.HTTPStatusCode, se.Msg)
	}
	return fmt.Errorf("stripe api call failed: %w", err)
}
