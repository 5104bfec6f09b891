package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/songstudio/studio-api/internal/domain/account"
	"github.com/songstudio/studio-api/internal/domain/admin"
	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/membership"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/storage/memory"
)

const adminKey = "test-admin-key"

type fixture struct {
	credits *credit.Service
	members *membership.Service
	router  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	members := membership.NewService([]string{"static@example.com"}, membership.NewMemorySet())
	credits := credit.NewService(store.Credit(), members)
	accounts := account.NewService(store.Accounts(), credits)
	h := admin.NewHandler(admin.NewCreditHandler(credits, accounts), admin.NewMemberHandler(members), adminKey)
	return &fixture{credits: credits, members: members, router: h.Routes()}
}

func (f *fixture) do(method, path, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(middleware.AdminKeyHeader, key)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestAdminRequiresKey(t *testing.T) {
	f := newFixture(t)

	if rr := f.do(http.MethodPost, "/credits/grant", `{}`, ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/credits/grant", `{}`, "wrong"); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rr.Code)
	}
}

func TestAdminDisabledWithoutConfiguredKey(t *testing.T) {
	store := memory.New()
	credits := credit.NewService(store.Credit(), nil)
	h := admin.NewHandler(admin.NewCreditHandler(credits, account.NewService(store.Accounts(), credits)), admin.NewMemberHandler(membership.NewService(nil, nil)), "")

	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	req.Header.Set(middleware.AdminKeyHeader, "anything")
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestAdminGrantAndReconcile(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/credits/grant", `{"email":"Fan@Example.com","amount":30,"note":"contest winner"}`, adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var grant struct {
		Data admin.GrantResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &grant); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if grant.Data.NewBalance != 55 || grant.Data.Reason != string(credit.ReasonAdminGrant) || grant.Data.Email != "fan@example.com" {
		t.Fatalf("unexpected grant %+v", grant.Data)
	}

	rr = f.do(http.MethodGet, "/users/fan@example.com/reconcile", "", adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var rec struct {
		Data credit.Reconciliation `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rec.Data.Consistent || rec.Data.Balance != 55 || rec.Data.Entries != 2 {
		t.Fatalf("unexpected reconciliation %+v", rec.Data)
	}

	rr = f.do(http.MethodGet, "/users/fan@example.com/ledger?limit=1", "", adminKey)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	if rr := f.do(http.MethodGet, "/users/ghost@example.com/reconcile", "", adminKey); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rr.Code)
	}
	if rr := f.do(http.MethodPost, "/credits/grant", `{"email":"fan@example.com","amount":0}`, adminKey); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero amount, got %d", rr.Code)
	}
}

func TestAdminMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if rr := f.do(http.MethodPost, "/members", `{"email":"New@Example.com"}`, adminKey); rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if ok, _ := f.members.IsMember(ctx, "new@example.com"); !ok {
		t.Fatal("expected new member")
	}
	p, err := f.credits.GetOrCreateProfile(ctx, "new@example.com")
	if err != nil || p.Tier != credit.TierSkool {
		t.Fatalf("expected skool profile, got %+v %v", p, err)
	}

	if rr := f.do(http.MethodDelete, "/members", `{"email":"static@example.com"}`, adminKey); rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for static member, got %d", rr.Code)
	}
	if rr := f.do(http.MethodDelete, "/members", `{"email":"new@example.com"}`, adminKey); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr := f.do(http.MethodGet, "/members", "", adminKey)
	var list struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0] != "static@example.com" {
		t.Fatalf("unexpected members %v", list.Data)
	}
}

func TestAdminDeleteUser(t *testing.T) {
	f := newFixture(t)
	if _, err := f.credits.GetOrCreateProfile(context.Background(), "gone@example.com"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if rr := f.do(http.MethodDelete, "/users/gone@example.com", "", adminKey); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr := f.do(http.MethodDelete, "/users/gone@example.com", "", adminKey); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rr.Code)
	}
}
