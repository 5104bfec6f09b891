package credit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/errorhandler"
	"github.com/songstudio/studio-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Balance handles GET /credits. Reading the balance applies a due monthly reset.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	p, err := h.svc.GetOrCreateProfile(r.Context(), email)
	if err != nil {
		WriteError(w, r, "credit.balance", err)
		return
	}
	response.OK(w, NewBalanceResponse(p))
}

// Ledger handles GET /credits/ledger?limit=&offset=
func (h *Handler) Ledger(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	page := ParsePagination(r)
	entries, err := h.svc.ListLedger(r.Context(), email, page)
	if err != nil {
		WriteError(w, r, "credit.ledger", err)
		return
	}
	response.WithMeta(w, entries, response.Meta{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Count:   len(entries),
		HasMore: len(entries) == page.Limit,
	})
}

// Check handles GET /credits/check?amount=N
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	amount, err := strconv.Atoi(r.URL.Query().Get("amount"))
	if err != nil || amount <= 0 {
		response.BadRequest(w, "amount must be a positive integer")
		return
	}

	balance, err := h.svc.GetCredits(r.Context(), email)
	if err != nil {
		WriteError(w, r, "credit.check", err)
		return
	}
	response.OK(w, CheckResponse{Balance: balance, Required: amount, HasEnough: balance >= amount})
}

// ParsePagination reads limit/offset query params; the service clamps them.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// WriteError maps credit and user errors onto the response envelope.
func WriteError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidEmail):
		response.BadRequest(w, "invalid email")
	case errors.Is(err, user.ErrUserNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, ErrProfileNotFound):
		response.NotFound(w, "profile not found")
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, ErrInvalidReason):
		response.BadRequest(w, "invalid reason")
	case errors.Is(err, ErrInsufficientCredits):
		response.Error(w, http.StatusPaymentRequired, "INSUFFICIENT_CREDITS", "Not enough credits")
	default:
		errorhandler.HandleError(r.Context(), w, op, err)
	}
}
