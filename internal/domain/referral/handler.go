package referral

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/response"
	"github.com/songstudio/studio-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Code handles GET /referrals/code
func (h *Handler) Code(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	code, err := h.service.GetOrCreateCode(r.Context(), email)
	if err != nil {
		writeError(w, r, "referral.code", err)
		return
	}
	response.OK(w, CodeResponse{Code: code, RewardReferrer: RewardReferrer, RewardReferred: RewardReferred})
}

// Claim handles POST /referrals/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req ClaimRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	req.Code = NormalizeCode(req.Code)
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	ref, err := h.service.Claim(r.Context(), email, req.Code)
	if err != nil {
		writeError(w, r, "referral.claim", err)
		return
	}
	response.Created(w, ref)
}

// Stats handles GET /referrals/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	stats, err := h.service.Stats(r.Context(), email)
	if err != nil {
		writeError(w, r, "referral.stats", err)
		return
	}
	response.OK(w, stats)
}

func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrUnknownCode):
		response.NotFound(w, "Referral code not found")
	case errors.Is(err, ErrSelfReferral), errors.Is(err, ErrCircularReferral):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrAlreadyReferred):
		response.Conflict(w, "You have already claimed a referral code")
	case errors.Is(err, ErrClaimWindowClosed):
		response.Forbidden(w, "Referral codes can only be claimed within 7 days of signing up")
	default:
		credit.WriteError(w, r, op, err)
	}
}

// Routes returns the /referrals router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/code", h.Code)
	r.Post("/claim", h.Claim)
	r.Get("/stats", h.Stats)
	return r
}
