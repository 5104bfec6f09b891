package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/errorhandler"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/response"
	"github.com/songstudio/studio-api/internal/pkg/stripe"
	"github.com/songstudio/studio-api/internal/pkg/validator"
)

// maxWebhookBytes bounds a Stripe webhook body.
const maxWebhookBytes = 64 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Packages handles GET /payments/packages
func (h *Handler) Packages(w http.ResponseWriter, r *http.Request) {
	response.OK(w, Packages())
}

// Checkout handles POST /payments/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CheckoutRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	out, err := h.service.CreateCheckout(r.Context(), email, req.Item)
	if err != nil {
		h.writeError(w, r, "payment.checkout", err)
		return
	}
	response.Created(w, out)
}

// Confirm handles POST /payments/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ConfirmRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	res, err := h.service.ConfirmSession(r.Context(), email, req.SessionID)
	if err != nil {
		h.writeError(w, r, "payment.confirm", err)
		return
	}
	response.OK(w, res)
}

// Transactions handles GET /payments/transactions
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, err := h.service.ListTransactions(r.Context(), email, Pagination{Limit: limit, Offset: offset})
	if err != nil {
		h.writeError(w, r, "payment.transactions", err)
		return
	}
	response.WithMeta(w, items, response.Meta{
		Limit:   limit,
		Offset:  offset,
		Count:   len(items),
		HasMore: len(items) == limit,
	})
}

// StripeWebhook handles POST /webhooks/stripe. Bad signatures get 400 so
// Stripe surfaces them; processing failures get 500 so Stripe retries.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.FromContext(r.Context()).Warn().Int64("limit", tooLarge.Limit).Msg("stripe webhook body too large")
			response.PayloadTooLarge(w, "Webhook body too large")
			return
		}
		response.BadRequest(w, "Invalid webhook body")
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(stripe.SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			logger.FromContext(r.Context()).Warn().Err(err).Msg("rejected stripe webhook")
			response.BadRequest(w, "Invalid signature")
		case errors.Is(err, ErrInvalidEvent), errors.Is(err, ErrUnknownPackage), errors.Is(err, user.ErrInvalidEmail), errors.Is(err, ErrInvalidGrant):
			// Not retryable; acknowledge so Stripe stops redelivering.
			logger.FromContext(r.Context()).Error().Err(err).Msg("unprocessable stripe webhook")
			response.OK(w, map[string]string{"status": "ignored"})
		default:
			errorhandler.HandleError(r.Context(), w, "payment.webhook", err)
		}
		return
	}
	response.OK(w, res)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrUnknownPackage):
		response.BadRequest(w, "Unknown credit package")
	case errors.Is(err, ErrPaymentsDisabled):
		response.Error(w, http.StatusServiceUnavailable, "PAYMENTS_DISABLED", "Payments are not configured")
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(w, "Checkout session not found")
	case errors.Is(err, ErrSessionMismatch):
		response.Forbidden(w, "Checkout session belongs to another account")
	case errors.Is(err, ErrSessionNotPaid):
		response.Conflict(w, "Checkout session is not paid yet")
	case errors.Is(err, ErrInvalidGrant):
		response.BadRequest(w, "Invalid checkout")
	default:
		credit.WriteError(w, r, op, err)
	}
}

// Routes returns the /payments router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/packages", h.Packages)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/checkout", h.Checkout)
		r.Post("/confirm", h.Confirm)
		r.Get("/transactions", h.Transactions)
	})
	return r
}

// WebhookRoutes returns the /webhooks router (no auth, signature verified)
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/stripe", h.StripeWebhook)
	return r
}
