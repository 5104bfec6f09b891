package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me handles GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	p, err := h.service.Me(r.Context(), email)
	if err != nil {
		credit.WriteError(w, r, "account.me", err)
		return
	}
	response.OK(w, map[string]any{
		"email":   email,
		"profile": credit.NewBalanceResponse(p),
	})
}

// Delete handles DELETE /me
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	summary, err := h.service.DeleteAccount(r.Context(), email)
	if err != nil {
		credit.WriteError(w, r, "account.delete", err)
		return
	}
	response.OK(w, summary)
}

// Routes returns the /me router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Me)
	r.Delete("/", h.Delete)
	return r
}
