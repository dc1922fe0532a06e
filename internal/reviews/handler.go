package reviews

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/rbac"
	"github.com/skillforge/user-service/internal/shared"
)

// Handler manages review endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers review routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{reviewID}", h.get)
	r.Patch("/{reviewID}", h.update)
	r.Delete("/{reviewID}", h.delete)
}

type createRequest struct {
	ReviewedID   string  `json:"reviewedId" validate:"required"`
	Discriminant string  `json:"discriminant" validate:"required,oneof=instructor course"`
	Rate         int     `json:"rate" validate:"required,min=1,max=5"`
	Recommended  bool    `json:"recommended"`
	Comments     *string `json:"comments"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		h.fail(w, shared.ErrUnauthorized)
		return
	}
	pageReq, err := httpx.PageRequest(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		ReviewerID: principal.UserID,
		ReviewedID: strings.TrimSpace(q.Get("reviewedId")),
	}
	if other := strings.TrimSpace(q.Get("reviewerId")); other != "" && other != principal.UserID {
		if err := h.requireAdmin(r); err != nil {
			h.fail(w, err)
			return
		}
		filter.ReviewerID = other
	}
	if filter.ShowInstructors, err = httpx.QueryBool(r, "showInstructors"); err != nil {
		h.fail(w, err)
		return
	}
	if filter.ShowCourses, err = httpx.QueryBool(r, "showCourses"); err != nil {
		h.fail(w, err)
		return
	}

	page, err := h.service.List(r.Context(), filter, pageReq)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Paginated(w, "reviews retrieved", shared.Page[Record]{
		Items:      Records(page.Items),
		Pagination: page.Pagination,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		h.fail(w, shared.ErrUnauthorized)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := httpx.Validate(req); err != nil {
		h.fail(w, err)
		return
	}
	review, err := h.service.Create(r.Context(), CreateInput{
		ReviewerID:   principal.UserID,
		ReviewedID:   req.ReviewedID,
		Discriminant: req.Discriminant,
		Rate:         req.Rate,
		Recommended:  req.Recommended,
		Comments:     req.Comments,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "review created", review.Record())
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	review, err := h.owned(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "review retrieved", review.Record())
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	review, err := h.owned(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	fields, err := httpx.DecodeFields(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	patch, err := ParsePatch(fields)
	if err != nil {
		h.fail(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), review.ID, patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "review updated", updated.Record())
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	review, err := h.owned(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), review.ID); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w, "review deleted")
}

// owned loads the review named in the path and checks that the caller wrote
// it or is an admin.
func (h *Handler) owned(r *http.Request) (Review, error) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return Review{}, shared.ErrUnauthorized
	}
	raw := chi.URLParam(r, "reviewID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return Review{}, httpx.PathError("reviewID", raw)
	}
	review, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		return Review{}, err
	}
	if review.ReviewerID != principal.UserID {
		if err := h.requireAdmin(r); err != nil {
			return Review{}, err
		}
	}
	return review, nil
}

func (h *Handler) requireAdmin(r *http.Request) error {
	admin, err := h.rbac.HasAny(r.Context(), "admin")
	if err != nil {
		return err
	}
	if !admin {
		return shared.Errorf(shared.ErrForbidden, "admin role required")
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	httpx.RespondError(w, err, func(err error) {
		h.logger.Error("reviews handler", slog.Any("error", err))
	})
}
