package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/songstudio/studio-api/internal/domain/payment"
	"github.com/songstudio/studio-api/internal/pkg/stripe"
)

func webhookPayload(t *testing.T, eventID, eventType, sessionID, paymentStatus string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_status": paymentStatus,
				"amount_total":   499,
				"metadata": map[string]string{
					"email":   "buyer@example.com",
					"item":    "starter",
					"credits": "50",
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func postWebhook(h http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/stripe", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(stripe.SignatureHeader, signature)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	router := payment.NewHandler(f.svc).WebhookRoutes()
	payload := webhookPayload(t, "evt_1", stripe.EventCheckoutSessionCompleted, "cs_1", "paid")

	cases := map[string]string{
		"missing":      "",
		"wrong secret": stripe.SignHeader(payload, "whsec_other", time.Now()),
		"expired":      stripe.SignHeader(payload, webhookSecret, time.Now().Add(-time.Hour)),
		"garbage":      "t=abc,v1=zz",
	}
	for name, sig := range cases {
		rr := postWebhook(router, payload, sig)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rr.Code)
		}
	}

	txs, _ := f.svc.ListTransactions(context.Background(), "buyer@example.com", payment.Pagination{})
	if len(txs) != 0 {
		t.Fatalf("bad signatures must not mutate, got %d transactions", len(txs))
	}
}

func TestStripeWebhookRejectsOversizedBody(t *testing.T) {
	f := newFixture(t)
	router := payment.NewHandler(f.svc).WebhookRoutes()

	payload := append(webhookPayload(t, "evt_big", stripe.EventCheckoutSessionCompleted, "cs_big", "paid"), bytes.Repeat([]byte(" "), 70<<10)...)
	rr := postWebhook(router, payload, stripe.SignHeader(payload, webhookSecret, time.Now()))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rr.Code, rr.Body.String())
	}

	txs, _ := f.svc.ListTransactions(context.Background(), "buyer@example.com", payment.Pagination{})
	if len(txs) != 0 {
		t.Fatalf("oversized delivery must not mutate, got %d transactions", len(txs))
	}
}

func TestStripeWebhookAppliesPaidCheckoutOnce(t *testing.T) {
	f := newFixture(t)
	router := payment.NewHandler(f.svc).WebhookRoutes()
	payload := webhookPayload(t, "evt_1", stripe.EventCheckoutSessionCompleted, "cs_1", "paid")

	for i := 0; i < 3; i++ {
		rr := postWebhook(router, payload, stripe.SignHeader(payload, webhookSecret, time.Now()))
		if rr.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d: %s", i, rr.Code, rr.Body.String())
		}
	}

	if got, _ := f.credits.GetCredits(context.Background(), "buyer@example.com"); got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}
}

func TestStripeWebhookIgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	router := payment.NewHandler(f.svc).WebhookRoutes()

	for _, payload := range [][]byte{
		webhookPayload(t, "evt_1", "invoice.paid", "cs_1", "paid"),
		webhookPayload(t, "evt_2", stripe.EventCheckoutSessionCompleted, "cs_2", "unpaid"),
	} {
		rr := postWebhook(router, payload, stripe.SignHeader(payload, webhookSecret, time.Now()))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var body struct {
			Data payment.WebhookResult `json:"data"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Data.Handled {
			t.Fatalf("expected event to be ignored, got %+v", body.Data)
		}
	}

	txs, _ := f.svc.ListTransactions(context.Background(), "buyer@example.com", payment.Pagination{})
	if len(txs) != 0 {
		t.Fatalf("expected no transactions, got %d", len(txs))
	}
}

func TestConfirmThenWebhookAppliesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.CreateCheckout(ctx, "buyer@example.com", "starter")
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	f.gateway.markPaid(out.SessionID)

	res, err := f.svc.ConfirmSession(ctx, "buyer@example.com", out.SessionID)
	if err != nil || !res.Applied {
		t.Fatalf("confirm: %+v %v", res, err)
	}

	router := payment.NewHandler(f.svc).WebhookRoutes()
	payload := webhookPayload(t, "evt_late", stripe.EventCheckoutSessionCompleted, out.SessionID, "paid")
	rr := postWebhook(router, payload, stripe.SignHeader(payload, webhookSecret, time.Now()))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body struct {
		Data payment.WebhookResult `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Result == nil || body.Data.Result.Applied || body.Data.Result.Reason != payment.ReasonDuplicateSession {
		t.Fatalf("expected duplicate_session, got %+v", body.Data.Result)
	}
	if got, _ := f.credits.GetCredits(ctx, "buyer@example.com"); got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}
}

func TestPackagesIsPublic(t *testing.T) {
	f := newFixture(t)
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	router := payment.NewHandler(f.svc).Routes(deny)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/packages", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte(`{"item":"starter"}`))))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
