package credit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the /credits router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.Balance)
	r.Get("/ledger", h.Ledger)
	r.Get("/check", h.Check)
	return r
}
