package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/user-service/internal/shared"
)

// RepositoryPort defines data access methods for roles and role assignments.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRoleByName(ctx context.Context, name RoleName) (Role, error)

	CreateAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	GetAssignmentByUserAndRole(ctx context.Context, userID string, role RoleName) (Assignment, error)
	UpdateAssignment(ctx context.Context, id string, patch AssignmentPatch) (Assignment, error)
	DeleteAssignment(ctx context.Context, id string) (int64, error)
	DeleteAssignmentByUserAndRole(ctx context.Context, userID string, role RoleName) (int64, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter, sort shared.SortSpec, limit, offset int) ([]Assignment, int, error)
	ActiveRoleNames(ctx context.Context, userID string) ([]RoleName, error)
}

// UserDirectory answers whether a user exists.
type UserDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Service owns the role assignment lifecycle.
type Service struct {
	repo   RepositoryPort
	users  UserDirectory
	cache  *Cache
	logger *slog.Logger
	clock  func() time.Time
	newID  func() string
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, users UserDirectory, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		cache:  cache,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		newID: func() string {
			return uuid.NewString()
		},
	}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// Assign grants role to userID with status active and no expiration.
func (s *Service) Assign(ctx context.Context, userID, role string) (Assignment, error) {
	name, err := ParseRoleName(role)
	if err != nil {
		return Assignment{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Assignment{}, shared.Errorf(shared.ErrInvalidField, "userId is required")
	}

	ref, err := s.role(ctx, name)
	if err != nil {
		return Assignment{}, err
	}
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return Assignment{}, err
	}
	if !exists {
		return Assignment{}, shared.Errorf(shared.ErrUserNotFound, "user %s", userID)
	}

	_, err = s.repo.GetAssignmentByUserAndRole(ctx, userID, name)
	switch {
	case err == nil:
		return Assignment{}, shared.Errorf(shared.ErrDuplicateAssignment, "user %s already holds role %s", userID, name)
	case !errors.Is(err, shared.ErrAssignmentNotFound):
		return Assignment{}, err
	}

	assignment := Assignment{
		ID:         s.newID(),
		UserID:     userID,
		RoleID:     ref.ID,
		RoleName:   name,
		AssignedAt: s.clock(),
		Status:     StatusActive,
	}
	if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
		return Assignment{}, err
	}
	s.log().Info("role assigned",
		slog.String("assignment_id", assignment.ID),
		slog.String("user_id", userID),
		slog.String("role", string(name)))
	return assignment, nil
}

// Get fetches one assignment by id.
func (s *Service) Get(ctx context.Context, id string) (Assignment, error) {
	return s.repo.GetAssignment(ctx, id)
}

// UpdateByUserAndRole applies patch to the assignment of role held by userID.
func (s *Service) UpdateByUserAndRole(ctx context.Context, userID, role string, patch AssignmentPatch) (Assignment, error) {
	name, err := ParseRoleName(role)
	if err != nil {
		return Assignment{}, err
	}
	if patch.IsEmpty() {
		return Assignment{}, shared.Errorf(shared.ErrNoFieldsProvided, "provide status or expiresAt")
	}
	current, err := s.repo.GetAssignmentByUserAndRole(ctx, userID, name)
	if err != nil {
		return Assignment{}, err
	}
	return s.update(ctx, current.ID, patch)
}

// UpdateByID applies patch to the assignment identified by id.
func (s *Service) UpdateByID(ctx context.Context, id string, patch AssignmentPatch) (Assignment, error) {
	if patch.IsEmpty() {
		return Assignment{}, shared.Errorf(shared.ErrNoFieldsProvided, "provide status or expiresAt")
	}
	return s.update(ctx, id, patch)
}

func (s *Service) update(ctx context.Context, id string, patch AssignmentPatch) (Assignment, error) {
	updated, err := s.repo.UpdateAssignment(ctx, id, patch)
	if err != nil {
		return Assignment{}, err
	}
	s.log().Info("role assignment updated",
		slog.String("assignment_id", updated.ID),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

// RevokeByUserAndRole deletes the assignment of role held by userID.
func (s *Service) RevokeByUserAndRole(ctx context.Context, userID, role string) error {
	name, err := ParseRoleName(role)
	if err != nil {
		return err
	}
	affected, err := s.repo.DeleteAssignmentByUserAndRole(ctx, userID, name)
	if err != nil {
		return err
	}
	if affected == 0 {
		return shared.Errorf(shared.ErrAssignmentNotFound, "user %s does not hold role %s", userID, name)
	}
	s.log().Info("role revoked", slog.String("user_id", userID), slog.String("role", string(name)))
	return nil
}

// RevokeByID deletes the assignment identified by id.
func (s *Service) RevokeByID(ctx context.Context, id string) error {
	affected, err := s.repo.DeleteAssignment(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return shared.Errorf(shared.ErrAssignmentNotFound, "assignment %s", id)
	}
	s.log().Info("role assignment revoked", slog.String("assignment_id", id))
	return nil
}

// List returns one page of assignments matching filter.
func (s *Service) List(ctx context.Context, filter AssignmentFilter, req shared.PageRequest) (shared.Page[Assignment], error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return shared.Page[Assignment]{}, err
	}
	sort, err := assignmentSortFields.Resolve(req.Sort, req.Order)
	if err != nil {
		return shared.Page[Assignment]{}, err
	}
	if err := filter.validate(); err != nil {
		return shared.Page[Assignment]{}, err
	}
	items, total, err := s.repo.ListAssignments(ctx, filter, sort, req.Limit, req.Offset())
	if err != nil {
		return shared.Page[Assignment]{}, err
	}
	return shared.NewPage(items, req, total), nil
}

// ActiveRoleNames returns the names of roles userID holds with status active.
// Expiration is not consulted.
func (s *Service) ActiveRoleNames(ctx context.Context, userID string) ([]string, error) {
	names, err := s.repo.ActiveRoleNames(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, string(n))
	}
	return out, nil
}

func (s *Service) role(ctx context.Context, name RoleName) (Role, error) {
	return s.cache.Role(ctx, name, func(ctx context.Context) (Role, error) {
		return s.repo.GetRoleByName(ctx, name)
	})
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
