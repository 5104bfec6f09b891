package stripe

import (
	"errors"
	"testing"
	"time"
)

func TestConstructEventSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	secret := "whsec_test"
	now := time.Now()
	valid := SignHeader(payload, secret, now)

	tests := []struct {
		name    string
		payload []byte
		header  string
		secret  string
		want    error
	}{
		{"valid", payload, valid, secret, nil},
		{"missing header", payload, "", secret, ErrMissingSignature},
		{"wrong secret", payload, valid, "whsec_other", ErrInvalidSignature},
		{"tampered payload", []byte(`{"id":"evt_2","object":"event","type":"checkout.session.completed"}`), valid, secret, ErrInvalidSignature},
		{"no v1", payload, "t=1760000000", secret, ErrInvalidSignature},
		{"expired", payload, SignHeader(payload, secret, now.Add(-6*time.Minute)), secret, ErrSignatureExpired},
		{"rotated secret", payload, valid + ",v1=deadbeef", secret, nil},
		{"empty secret", payload, valid, "", ErrInvalidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConstructEvent(tt.payload, tt.header, tt.secret)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConstructEventDecodesCheckoutSession(t *testing.T) {
	payload := []byte(`{"id":"evt_9","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_9","object":"checkout.session","payment_status":"paid","metadata":{"email":"a@x.com","item":"standard"}}}}`)

	evt, err := ConstructEvent(payload, SignHeader(payload, "s", time.Now()), "s")
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if evt.Type != EventCheckoutSessionCompleted {
		t.Fatalf("unexpected type %q", evt.Type)
	}
	sess, err := evt.CheckoutSession()
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.ID != "cs_9" || !sess.Paid() || sess.Email() != "a@x.com" || sess.Metadata["item"] != "standard" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestConstructEventWithoutObject(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed"}`)

	evt, err := ConstructEvent(payload, SignHeader(payload, "s", time.Now()), "s")
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if _, err := evt.CheckoutSession(); err == nil {
		t.Fatal("expected error decoding missing object")
	}
}
