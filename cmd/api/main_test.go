package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/songstudio/studio-api/internal/config"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/jwt"
	"github.com/songstudio/studio-api/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "test",
		StorageDriver:       "memory",
		JWTSecret:           "test-secret",
		JWTAccessTTL:        time.Hour,
		AllowedOrigins:      []string{"http://localhost:3000"},
		AdminAPIKey:         "admin-key",
		StripeWebhookSecret: "whsec_test",
		LLMTimeout:          5 * time.Second,
		CostSong:            4,
		CostArt:             2,
		CostSocial:          1,
		GenerationRateLimit: 5,
		GenerationWindow:    time.Minute,
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	return newRouter(cfg, memoryStores(memory.New()), deps{}), cfg
}

func bearer(t *testing.T, cfg *config.Config, email string) string {
	t.Helper()
	token, err := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL).GenerateAccessToken(email)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRouter_CreditsRequireAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRouter_BalanceCreatesProfile(t *testing.T) {
	r, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("Authorization", bearer(t, cfg, "writer@studio.io"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Data struct {
			Credits int    `json:"credits"`
			Tier    string `json:"tier"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Credits != 25 || body.Data.Tier != "public" {
		t.Fatalf("unexpected balance: %+v", body.Data)
	}
}

func TestRouter_GenerationPrices(t *testing.T) {
	r, cfg := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/generate/prices", nil)
	req.Header.Set("Authorization", bearer(t, cfg, "writer@studio.io"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_WebhookRejectsBadSignature(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRouter_AdminKey(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("missing key", func(t *testing.T) {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/members", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/members", nil)
		req.Header.Set(middleware.AdminKeyHeader, "admin-key")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}
