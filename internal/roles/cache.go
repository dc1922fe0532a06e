package roles

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/skillforge/user-service/internal/platform/cache"
)

// Cache keeps role reference rows in Redis. Concurrent misses for the same
// role share one repository lookup. Redis failures fall through to the loader.
type Cache struct {
	store  *cache.Store
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCache builds a role cache over store.
func NewCache(store *cache.Store, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// Role returns the cached role for name, calling load on a miss.
func (c *Cache) Role(ctx context.Context, name RoleName, load func(context.Context) (Role, error)) (Role, error) {
	if c == nil {
		return load(ctx)
	}
	key := "role:" + string(name)

	var cached Role
	found, err := c.store.GetJSON(ctx, key, &cached)
	if err != nil {
		c.log().Warn("role cache read", slog.String("role", string(name)), slog.Any("error", err))
	}
	if found {
		return cached, nil
	}

	// The flight outlives any single caller; each waiter watches its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		role, err := load(loadCtx)
		if err != nil {
			return Role{}, err
		}
		if err := c.store.SetJSON(loadCtx, key, role, c.ttl); err != nil {
			c.log().Warn("role cache write", slog.String("role", string(name)), slog.Any("error", err))
		}
		return role, nil
	})

	select {
	case <-ctx.Done():
		return Role{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Role{}, res.Err
		}
		return res.Val.(Role), nil
	}
}

func (c *Cache) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}
