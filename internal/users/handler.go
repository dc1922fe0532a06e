package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/rbac"
)

// Handler manages user endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("admin"))
		r.Get("/", h.listUsers)
		r.Get("/{userID}", h.getUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	pageReq, err := httpx.PageRequest(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	filter := ListFilter{Search: r.URL.Query().Get("search")}
	if r.URL.Query().Has("active") {
		active, err := httpx.QueryBool(r, "active")
		if err != nil {
			h.fail(w, err)
			return
		}
		filter.Active = &active
	}
	page, err := h.service.List(r.Context(), filter, pageReq)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Paginated(w, "users retrieved", page)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "user retrieved", user)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, func(err error) {
		h.logger.Error("users handler", slog.Any("error", err))
	})
}
