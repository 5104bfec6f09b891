package admin

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/songstudio/studio-api/internal/domain/account"
	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/response"
	"github.com/songstudio/studio-api/internal/pkg/validator"
)

// CreditHandler handles operator credit operations.
type CreditHandler struct {
	credits  *credit.Service
	accounts *account.Service
}

func NewCreditHandler(credits *credit.Service, accounts *account.Service) *CreditHandler {
	return &CreditHandler{credits: credits, accounts: accounts}
}

// GrantCredits handles POST /admin/credits/grant
func (h *CreditHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	var req GrantCreditsRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	reason := credit.ReasonAdminGrant
	if req.Reason != "" {
		reason = credit.Reason(req.Reason)
	}
	var meta credit.Metadata
	if req.Note != "" {
		meta = credit.Metadata{"note": req.Note}
	}

	balance, err := h.credits.Grant(r.Context(), req.Email, req.Amount, reason, meta)
	if err != nil {
		credit.WriteError(w, r, "admin.grant", err)
		return
	}

	logger.FromContext(r.Context()).Info().
		Str("email", user.NormalizeEmail(req.Email)).
		Int("amount", req.Amount).
		Str("reason", string(reason)).
		Msg("admin credit grant")

	response.OK(w, GrantResponse{
		Email:      user.NormalizeEmail(req.Email),
		Amount:     req.Amount,
		Reason:     string(reason),
		NewBalance: balance,
	})
}

// Ledger handles GET /admin/users/{email}/ledger
func (h *CreditHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	page := credit.ParsePagination(r)
	entries, err := h.credits.ListLedger(r.Context(), email, page)
	if err != nil {
		credit.WriteError(w, r, "admin.ledger", err)
		return
	}
	response.WithMeta(w, entries, response.Meta{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Count:   len(entries),
		HasMore: len(entries) == page.Limit,
	})
}

// Reconcile handles GET /admin/users/{email}/reconcile
func (h *CreditHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	rec, err := h.credits.Reconcile(r.Context(), email)
	if err != nil {
		credit.WriteError(w, r, "admin.reconcile", err)
		return
	}
	response.OK(w, rec)
}

// DeleteUser handles DELETE /admin/users/{email}
func (h *CreditHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}

	summary, err := h.accounts.DeleteAccount(r.Context(), email)
	if err != nil {
		credit.WriteError(w, r, "admin.delete_user", err)
		return
	}
	response.OK(w, summary)
}

func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		response.BadRequest(w, "Invalid email")
		return "", false
	}
	email, err := user.ParseEmail(raw)
	if err != nil {
		response.BadRequest(w, "Invalid email")
		return "", false
	}
	return email, true
}
