package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/skillforge/user-service/internal/instructors"
	"github.com/skillforge/user-service/internal/observability"
	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/reviews"
	"github.com/skillforge/user-service/internal/roles"
	"github.com/skillforge/user-service/internal/shared"
	"github.com/skillforge/user-service/internal/users"
	"github.com/skillforge/user-service/jobs"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	// Authenticate guards every /api/v1 route.
	Authenticate func(http.Handler) http.Handler

	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	InstructorsHandler *instructors.Handler
	ReviewsHandler     *reviews.Handler
	JobHandler         *jobs.Handler

	HealthChecks map[string]HealthCheck
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthHandler(params.HealthChecks, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.Authenticate != nil {
			r.Use(params.Authenticate)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoles)
			r.Route("/role-assignments", params.RolesHandler.MountAssignments)
		}
		r.Route("/users", func(r chi.Router) {
			if params.UsersHandler != nil {
				params.UsersHandler.MountRoutes(r)
			}
			if params.RolesHandler != nil {
				r.Route("/{userID}/roles", params.RolesHandler.MountUserRoles)
			}
		})
		if params.InstructorsHandler != nil {
			r.Route("/instructors", params.InstructorsHandler.MountRoutes)
		}
		if params.ReviewsHandler != nil {
			r.Route("/reviews", params.ReviewsHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusNotFound, shared.Failure("NotFound", "route not found", time.Now()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusMethodNotAllowed, shared.Failure("MethodNotAllowed", "method not allowed", time.Now()))
	})

	return r
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler runs every check concurrently with a short deadline.
func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			g.Go(func() error {
				results[i] = checks[name](ctx)
				return nil
			})
		}
		_ = g.Wait()

		report := healthReport{Status: "ok", Checks: make(map[string]string, len(names))}
		for i, name := range names {
			if results[i] != nil {
				report.Status = "degraded"
				report.Checks[name] = "down"
				if logger != nil {
					logger.Warn("health check failed", slog.String("check", name), slog.Any("error", results[i]))
				}
				continue
			}
			report.Checks[name] = "up"
		}
		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, report)
	}
}
