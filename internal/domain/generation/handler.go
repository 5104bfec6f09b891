package generation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/errorhandler"
	"github.com/songstudio/studio-api/internal/pkg/llm"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/response"
	"github.com/songstudio/studio-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Prices handles GET /generate/prices
func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	c := h.service.Costs()
	response.OK(w, map[Kind]int{KindSong: c.Song, KindArt: c.Art, KindSocial: c.Social})
}

// Generate handles POST /generate/{kind}
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		response.NotFound(w, "Unknown generation kind")
		return
	}

	var req Request
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return
	}

	res, err := h.service.Generate(r.Context(), email, kind, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *InsufficientCreditsError
	var failed *FailedError
	switch {
	case errors.As(err, &insufficient):
		response.PaymentRequired(w, insufficient.Balance, insufficient.Required)
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, ErrArtUnavailable):
		response.Error(w, http.StatusServiceUnavailable, "GENERATION_DISABLED", "Generation is not configured")
	case errors.As(err, &failed):
		logger.FromContext(r.Context()).Error().Err(err).Str("kind", string(failed.Kind)).Bool("refunded", failed.Refunded).Msg("generation failed")
		response.ErrorWithDetails(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Generation failed, please try again", map[string]string{
			"balance":  strconv.Itoa(failed.Balance),
			"refunded": strconv.FormatBool(failed.Refunded),
		})
	case errors.Is(err, ErrGenerationFailed):
		errorhandler.HandleUpstreamError(r.Context(), w, "generation", err)
	default:
		credit.WriteError(w, r, "generation.generate", err)
	}
}

// Routes returns the /generate router. limit throttles POSTs per user.
func (h *Handler) Routes(authMiddleware, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/prices", h.Prices)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/{kind}", h.Generate)
	})
	return r
}
