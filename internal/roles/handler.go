package roles

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/rbac"
)

// Handler exposes roles and role assignments over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoles registers the role reference routes.
func (h *Handler) MountRoles(r chi.Router) {
	r.Get("/", h.listRoles)
}

// MountAssignments registers /role-assignments routes.
func (h *Handler) MountAssignments(r chi.Router) {
	r.Use(h.rbac.RequireAny(string(RoleAdmin)))
	r.Get("/", h.listAssignments)
	r.Post("/", h.assign)
	r.Get("/{assignmentID}", h.getAssignment)
	r.Patch("/{assignmentID}", h.updateByID)
	r.Delete("/{assignmentID}", h.revokeByID)
}

// MountUserRoles registers routes nested under /users/{userID}/roles.
func (h *Handler) MountUserRoles(r chi.Router) {
	r.Use(h.rbac.RequireAny(string(RoleAdmin)))
	r.Get("/", h.listUserRoles)
	r.Patch("/{role}", h.updateByUserAndRole)
	r.Delete("/{role}", h.revokeByUserAndRole)
}

type assignRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "roles retrieved", roles)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.fail(w, err)
		return
	}
	assignment, err := h.service.Assign(r.Context(), req.UserID, req.Role)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "role assigned", assignment)
}

func (h *Handler) getAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := assignmentID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	assignment, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role assignment retrieved", assignment)
}

func (h *Handler) updateByID(w http.ResponseWriter, r *http.Request) {
	id, err := assignmentID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	patch, err := decodePatch(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	assignment, err := h.service.UpdateByID(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role assignment updated", assignment)
}

func (h *Handler) revokeByID(w http.ResponseWriter, r *http.Request) {
	id, err := assignmentID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.RevokeByID(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w, "role assignment revoked")
}

func (h *Handler) updateByUserAndRole(w http.ResponseWriter, r *http.Request) {
	patch, err := decodePatch(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	assignment, err := h.service.UpdateByUserAndRole(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "role"), patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "role assignment updated", assignment)
}

func (h *Handler) revokeByUserAndRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RevokeByUserAndRole(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "role")); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w, "role revoked")
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.list(w, r, filter)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	filter.UserID = chi.URLParam(r, "userID")
	h.list(w, r, filter)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter AssignmentFilter) {
	pageReq, err := httpx.PageRequest(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	page, err := h.service.List(r.Context(), filter, pageReq)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Paginated(w, "role assignments retrieved", page)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, func(err error) {
		h.logger.Error("roles handler", slog.Any("error", err))
	})
}

func decodePatch(r *http.Request) (AssignmentPatch, error) {
	fields, err := httpx.DecodeFields(r)
	if err != nil {
		return AssignmentPatch{}, err
	}
	return ParseAssignmentPatch(fields)
}

func assignmentID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "assignmentID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", httpx.PathError("assignmentID", raw)
	}
	return id.String(), nil
}

func parseFilter(r *http.Request) (AssignmentFilter, error) {
	q := r.URL.Query()
	var filter AssignmentFilter
	filter.UserID = strings.TrimSpace(q.Get("userId"))
	if raw := q.Get("role"); raw != "" {
		role, err := ParseRoleName(raw)
		if err != nil {
			return filter, err
		}
		filter.Role = &role
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	var err error
	if filter.AssignedFrom, err = httpx.QueryTime(r, "assignedFrom", false); err != nil {
		return filter, err
	}
	if filter.AssignedTo, err = httpx.QueryTime(r, "assignedTo", true); err != nil {
		return filter, err
	}
	if filter.ExpiresFrom, err = httpx.QueryTime(r, "expiresFrom", false); err != nil {
		return filter, err
	}
	if filter.ExpiresTo, err = httpx.QueryTime(r, "expiresTo", true); err != nil {
		return filter, err
	}
	return filter, nil
}
