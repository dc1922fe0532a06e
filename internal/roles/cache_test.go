package roles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/user-service/internal/platform/cache"
	"github.com/skillforge/user-service/internal/shared"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(cache.NewStore(client, "usersvc"), time.Minute, nil), mr
}

func TestCacheServesRepeatLookupsFromRedis(t *testing.T) {
	c, mr := newTestCache(t)
	repo := newMockRepository()
	svc := NewService(repo, stubUsers{"u1": true, "u2": true}, c, nil)

	_, err := svc.Assign(context.Background(), "u1", "admin")
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), "u2", "admin")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.roleLookups)
	assert.True(t, mr.Exists("usersvc:role:admin"))

	mr.FastForward(2 * time.Minute)
	_, err = svc.Assign(context.Background(), "u1", "student")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.roleLookups)
}

func TestCacheDoesNotStoreMisses(t *testing.T) {
	c, mr := newTestCache(t)

	_, err := c.Role(context.Background(), RoleAdmin, func(ctx context.Context) (Role, error) {
		return Role{}, shared.ErrRoleNotFound
	})
	assert.True(t, errors.Is(err, shared.ErrRoleNotFound))
	assert.False(t, mr.Exists("usersvc:role:admin"))
}

func TestCacheFallsBackWhenRedisIsDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	role, err := c.Role(context.Background(), RoleStudent, func(ctx context.Context) (Role, error) {
		return Role{ID: "r-3", Name: RoleStudent}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "r-3", role.ID)
}

func TestCacheLoadSurvivesCallerCancellation(t *testing.T) {
	c, mr := newTestCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	loadErr := make(chan error, 1)
	load := func(ctx context.Context) (Role, error) {
		close(started)
		<-release
		loadErr <- ctx.Err()
		return Role{ID: "r-1", Name: RoleAdmin}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	callerErr := make(chan error, 1)
	go func() {
		_, err := c.Role(ctx, RoleAdmin, load)
		callerErr <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-callerErr, context.Canceled)

	close(release)
	assert.NoError(t, <-loadErr)
	assert.Eventually(t, func() bool { return mr.Exists("usersvc:role:admin") }, time.Second, 10*time.Millisecond)
}
