package instructors

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/rbac"
	"github.com/skillforge/user-service/internal/shared"
)

// Handler manages instructor endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers instructor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.apply)
	r.Get("/{userID}", h.get)
	r.With(h.rbac.RequireAny("admin")).Patch("/{userID}/verification", h.updateVerification)
}

type applyRequest struct {
	UserID string `json:"userId"`
}

type verificationRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	pageReq, err := httpx.PageRequest(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var filter ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := ParseVerificationStatus(raw)
		if err != nil {
			h.fail(w, err)
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("minRating")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.fail(w, shared.Errorf(shared.ErrInvalidField, "minRating must be a number"))
			return
		}
		filter.MinRating = &v
	}
	page, err := h.service.List(r.Context(), filter, pageReq)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Paginated(w, "instructors retrieved", page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	in, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "instructor retrieved", in)
}

// apply opens an application for the caller. Admins may apply on behalf of
// another user.
func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		h.fail(w, shared.ErrUnauthorized)
		return
	}
	var req applyRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			h.fail(w, err)
			return
		}
	}
	target := strings.TrimSpace(req.UserID)
	if target == "" {
		target = principal.UserID
	}
	if target != principal.UserID {
		admin, err := h.rbac.HasAny(r.Context(), "admin")
		if err != nil {
			h.fail(w, err)
			return
		}
		if !admin {
			h.fail(w, shared.Errorf(shared.ErrForbidden, "cannot apply on behalf of another user"))
			return
		}
	}
	in, err := h.service.Apply(r.Context(), target)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "instructor application created", in)
}

func (h *Handler) updateVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.fail(w, err)
		return
	}
	in, err := h.service.UpdateVerification(r.Context(), chi.URLParam(r, "userID"), req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "instructor verification updated", in)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, func(err error) {
		h.logger.Error("instructors handler", slog.Any("error", err))
	})
}
