package admin

import (
	"github.com/go-chi/chi/v5"

	"github.com/songstudio/studio-api/internal/middleware"
)

// Handler groups the operator endpoints.
type Handler struct {
	credits *CreditHandler
	members *MemberHandler
	apiKey  string
}

func NewHandler(credits *CreditHandler, members *MemberHandler, apiKey string) *Handler {
	return &Handler{credits: credits, members: members, apiKey: apiKey}
}

// Routes returns admin router. Every route requires X-Admin-Key.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.AdminKey(h.apiKey))

	r.Post("/credits/grant", h.credits.GrantCredits)

	r.Route("/users/{email}", func(r chi.Router) {
		r.Get("/ledger", h.credits.Ledger)
		r.Get("/reconcile", h.credits.Reconcile)
		r.Delete("/", h.credits.DeleteUser)
	})

	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.members.List)
		r.Post("/", h.members.Add)
		r.Delete("/", h.members.Remove)
	})

	return r
}
