package song

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

// Save handles POST /songs
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req SaveRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	s, rewarded, err := h.service.Save(r.Context(), email, req)
	if err != nil {
		credit.WriteError(w, r, "song.save", err)
		return
	}
	response.Created(w, SaveResponse{Song: NewResponse(s), ReferralRewarded: rewarded})
}

// List handles GET /songs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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

	songs, err := h.service.List(r.Context(), email, Pagination{Limit: limit, Offset: offset})
	if err != nil {
		credit.WriteError(w, r, "song.list", err)
		return
	}
	response.WithMeta(w, NewListResponse(songs), response.Meta{
		Limit:   limit,
		Offset:  offset,
		Count:   len(songs),
		HasMore: len(songs) == limit,
	})
}

// Get handles GET /songs/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid song id")
		return
	}

	s, err := h.service.Get(r.Context(), email, id)
	if err != nil {
		h.writeError(w, r, "song.get", err)
		return
	}
	response.OK(w, NewResponse(s))
}

// Delete handles DELETE /songs/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	email := middleware.GetEmail(r.Context())
	if email == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid song id")
		return
	}

	if err := h.service.Delete(r.Context(), email, id); err != nil {
		h.writeError(w, r, "song.delete", err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, ErrSongNotFound) {
		response.NotFound(w, "Song not found")
		return
	}
	credit.WriteError(w, r, op, err)
}

// Routes returns the /songs router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/", h.Save)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	return r
}
