package users

import (
	"context"
	"strings"

	"github.com/skillforge/user-service/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	GetUser(ctx context.Context, id string) (User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	ListUsers(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]User, int, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns one user or UserNotFound.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, shared.Errorf(shared.ErrUserNotFound, "empty user id")
	}
	return s.repo.GetUser(ctx, id)
}

// Exists reports whether a user with id is known.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	return s.repo.UserExists(ctx, id)
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, filter ListFilter, req shared.PageRequest) (shared.Page[User], error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return shared.Page[User]{}, err
	}
	sort, err := userSortFields.Resolve(req.Sort, req.Order)
	if err != nil {
		return shared.Page[User]{}, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.repo.ListUsers(ctx, filter, sort, req.Limit, req.Offset())
	if err != nil {
		return shared.Page[User]{}, err
	}
	return shared.NewPage(items, req, total), nil
}
