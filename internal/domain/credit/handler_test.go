package credit_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/middleware"
)

func withEmail(email string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if email != "" {
				r = r.WithContext(middleware.WithEmail(r.Context(), email))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TestHandlerBalance(t *testing.T) {
	f := newFixture(t)
	router := credit.NewHandler(f.svc).Routes(withEmail("user@example.com"))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Success bool                   `json:"success"`
		Data    credit.BalanceResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data.Credits != 25 || body.Data.Tier != credit.TierPublic {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHandlerUnauthorized(t *testing.T) {
	f := newFixture(t)
	router := credit.NewHandler(f.svc).Routes(withEmail(""))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandlerCheck(t *testing.T) {
	f := newFixture(t)
	router := credit.NewHandler(f.svc).Routes(withEmail("user@example.com"))

	tests := []struct {
		query  string
		status int
		enough bool
	}{
		{"?amount=4", http.StatusOK, true},
		{"?amount=26", http.StatusOK, false},
		{"?amount=0", http.StatusBadRequest, false},
		{"?amount=abc", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/check"+tt.query, nil))
		if rr.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.query, tt.status, rr.Code)
		}
		if tt.status != http.StatusOK {
			continue
		}
		var body struct {
			Data credit.CheckResponse `json:"data"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Data.HasEnough != tt.enough {
			t.Fatalf("%s: expected has_enough=%v", tt.query, tt.enough)
		}
	}
}

func TestHandlerLedgerPaging(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Spend(t.Context(), "user@example.com", 1, credit.ReasonGenerateSocial); err != nil {
			t.Fatalf("spend: %v", err)
		}
	}
	router := credit.NewHandler(f.svc).Routes(withEmail("user@example.com"))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ledger?limit=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Data []credit.LedgerEntry `json:"data"`
		Meta struct {
			Limit   int  `json:"limit"`
			HasMore bool `json:"has_more"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 2 || !body.Meta.HasMore || body.Meta.Limit != 2 {
		t.Fatalf("unexpected page %+v", body)
	}
	if body.Data[0].Reason != credit.ReasonGenerateSocial {
		t.Fatalf("expected newest first, got %s", body.Data[0].Reason)
	}
}
