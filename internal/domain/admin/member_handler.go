package admin

import (
	"errors"
	"net/http"

	"github.com/songstudio/studio-api/internal/domain/membership"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/errorhandler"
	"github.com/songstudio/studio-api/internal/pkg/response"
	"github.com/songstudio/studio-api/internal/pkg/validator"
)

// MemberHandler manages the skool allowlist.
type MemberHandler struct {
	members *membership.Service
}

func NewMemberHandler(members *membership.Service) *MemberHandler {
	return &MemberHandler{members: members}
}

// List handles GET /admin/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	emails, err := h.members.List(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "admin.members.list", err)
		return
	}
	response.OK(w, emails)
}

// Add handles POST /admin/members. The upgrade itself happens on the
// member's next profile read.
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.members.Add(r.Context(), req.Email); err != nil {
		errorhandler.HandleError(r.Context(), w, "admin.members.add", err)
		return
	}
	response.Created(w, map[string]string{"email": user.NormalizeEmail(req.Email)})
}

// Remove handles DELETE /admin/members. Existing skool profiles keep their tier.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	err := h.members.Remove(r.Context(), req.Email)
	if errors.Is(err, membership.ErrStaticMember) {
		response.Conflict(w, "Email is on the static allowlist; remove it from SKOOL_MEMBER_EMAILS")
		return
	}
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "admin.members.remove", err)
		return
	}
	response.NoContent(w)
}
