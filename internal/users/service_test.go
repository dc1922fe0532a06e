package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/user-service/internal/shared"
)

type stubRepo struct {
	users    map[string]User
	lastSort shared.SortSpec
	lastArgs [2]int
}

func (s *stubRepo) GetUser(ctx context.Context, id string) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, shared.Errorf(shared.ErrUserNotFound, "user %s", id)
	}
	return u, nil
}

func (s *stubRepo) UserExists(ctx context.Context, id string) (bool, error) {
	_, ok := s.users[id]
	return ok, nil
}

func (s *stubRepo) ListUsers(ctx context.Context, filter ListFilter, sort shared.SortSpec, limit, offset int) ([]User, int, error) {
	s.lastSort = sort
	s.lastArgs = [2]int{limit, offset}
	var out []User
	for _, u := range s.users {
		if filter.Search != "" && !strings.Contains(u.Name, filter.Search) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]User{
		"u1": {ID: "u1", Name: "Ada", Email: "ada@example.com", IsActive: true},
		"u2": {ID: "u2", Name: "Linus", Email: "linus@example.com", IsActive: true},
	}}
}

func TestGetUser(t *testing.T) {
	svc := NewService(newStubRepo())

	u, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	_, err = svc.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, shared.ErrUserNotFound))

	_, err = svc.Get(context.Background(), "  ")
	assert.True(t, errors.Is(err, shared.ErrUserNotFound))
}

func TestExists(t *testing.T) {
	svc := NewService(newStubRepo())

	ok, err := svc.Exists(context.Background(), " u2 ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListUsers(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)

	page, err := svc.List(context.Background(), ListFilter{Search: " Ada "}, shared.PageRequest{Page: 2, Limit: 20, Sort: "email", Order: "asc"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "email ASC", repo.lastSort.Clause())
	assert.Equal(t, [2]int{20, 20}, repo.lastArgs)
	assert.True(t, page.Pagination.HasPrev)

	_, err = svc.List(context.Background(), ListFilter{}, shared.PageRequest{Sort: "password_hash"})
	assert.True(t, errors.Is(err, shared.ErrInvalidSortField))
}
