package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureHeader is the request header carrying the webhook signature.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is how old a signed timestamp may be.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSignatureExpired = errors.New("webhook timestamp outside tolerance")
)

// EventCheckoutSessionCompleted is the only event type that grants credits.
const EventCheckoutSessionCompleted = string(stripego.EventTypeCheckoutSessionCompleted)

// Event is a verified webhook envelope. Object is decoded per type.
type Event struct {
	ID     string
	Type   string
	Object json.RawMessage
}

// CheckoutSession decodes the event object as a Checkout Session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	if len(e.Object) == 0 {
		return nil, errors.New("decode checkout session: event has no object")
	}
	var s stripego.CheckoutSession
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return fromStripeSession(&s), nil
}

// SignHeader builds a Stripe-Signature value for fixtures and local replay.
func SignHeader(payload []byte, secret string, timestamp time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: timestamp,
	}).Header
}

// ConstructEvent verifies the signature against secret within
// DefaultTolerance and decodes the event envelope. Any v1 entry may match,
// which allows secret rotation.
func ConstructEvent(payload []byte, header, secret string) (*Event, error) {
	if secret == "" {
		return nil, ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned):
			return nil, ErrMissingSignature
		case errors.Is(err, webhook.ErrTooOld):
			return nil, ErrSignatureExpired
		case errors.Is(err, webhook.ErrInvalidHeader), errors.Is(err, webhook.ErrNoValidSignature):
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, fmt.Errorf("decode event: missing id or type")
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
	}
	return out, nil
}
