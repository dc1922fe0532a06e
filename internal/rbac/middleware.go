package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/skillforge/user-service/internal/platform/httpx"
	"github.com/skillforge/user-service/internal/shared"
)

// RoleResolver returns the role names a user currently holds.
type RoleResolver interface {
	ActiveRoleNames(ctx context.Context, userID string) ([]string, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Resolver RoleResolver
	Logger   *slog.Logger
}

// RequireAny ensures the current user holds at least one of the roles.
func (m Middleware) RequireAny(roles ...string) func(http.Handler) http.Handler {
	required := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			ok, err := m.HasAny(r.Context(), required...)
			if err != nil {
				httpx.RespondError(w, err, func(err error) {
					m.log().Error("rbac require any", slog.Any("error", err))
				})
				return
			}
			if !ok {
				httpx.RespondError(w, shared.Errorf(shared.ErrForbidden, "requires one of %v", required), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasAny reports whether the principal in ctx holds any of roles.
func (m Middleware) HasAny(ctx context.Context, roles ...string) (bool, error) {
	principal, ok := shared.PrincipalFromContext(ctx)
	if !ok {
		return false, shared.ErrUnauthorized
	}
	if m.Resolver == nil {
		return false, nil
	}
	granted, err := m.Resolver.ActiveRoleNames(ctx, principal.UserID)
	if err != nil {
		return false, err
	}
	return hasAnyRole(granted, normalizeRoles(roles)), nil
}

func (m Middleware) log() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func normalizeRoles(roles []string) []string {
	unique := make(map[string]struct{}, len(roles))
	normalized := make([]string, 0, len(roles))
	for _, r := range roles {
		r = shared.Fold(r)
		if r == "" {
			continue
		}
		if _, seen := unique[r]; seen {
			continue
		}
		unique[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized
}

func hasAnyRole(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[shared.Fold(g)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
