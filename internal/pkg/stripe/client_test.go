package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url, SecretKey: "sk_test", Timeout: time.Second})
}

func TestCreateCheckoutSessionSendsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("line_items[0][price_data][unit_amount]"); got != "1999" {
			t.Errorf("unit_amount = %q", got)
		}
		if got := r.PostForm.Get("metadata[item]"); got != "standard" {
			t.Errorf("metadata[item] = %q", got)
		}
		if got := r.PostForm.Get("mode"); got != "payment" {
			t.Errorf("mode = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.test/cs_1","payment_status":"unpaid","metadata":{"item":"standard"}}`))
	}))
	defer srv.Close()

	sess, err := newTestClient(srv.URL).CreateCheckoutSession(context.Background(), CheckoutRequest{
		Email:       "a@x.com",
		Item:        "standard",
		Description: "250 credits",
		AmountCents: 1999,
		SuccessURL:  "http://localhost/success",
		CancelURL:   "http://localhost/cancel",
		Metadata:    map[string]string{"item": "standard"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.ID != "cs_1" || sess.URL == "" || sess.Paid() {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/checkout/sessions/cs_paid":
			w.Write([]byte(`{"id":"cs_paid","object":"checkout.session","payment_status":"paid","amount_total":1999,"customer_details":{"email":"buyer@x.com"}}`))
		case "/v1/checkout/sessions/cs_missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such checkout.session"}}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"boom"}}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	sess, err := c.GetCheckoutSession(context.Background(), "cs_paid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !sess.Paid() || sess.AmountTotal != 1999 || sess.Email() != "buyer@x.com" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if _, err := c.GetCheckoutSession(context.Background(), "cs_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.GetCheckoutSession(context.Background(), "cs_bad"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestClientNotConfigured(t *testing.T) {
	c := NewClient(Config{})
	if c.Configured() {
		t.Fatal("client without key reports configured")
	}
	if _, err := c.GetCheckoutSession(context.Background(), "cs_1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
