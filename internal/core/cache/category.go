package cache

import (
	"context"
	"time"

	"taskhub/internal/domain"
)

// CategoryCache 缓存每个用户的分类列表（含任务数）；分类或任务变更时由服务层失效
type CategoryCache struct {
	c   *Cache
	ttl time.Duration
}

func NewCategoryCache(c *Cache, ttl time.Duration) *CategoryCache {
	return &CategoryCache{c: c, ttl: ttl}
}

func categoriesKey(ownerID string) string { return "taskhub:categories:" + ownerID }

func (cc *CategoryCache) Categories(
	ctx context.Context,
	ownerID string,
	load func(ctx context.Context) ([]domain.Category, error),
) ([]domain.Category, error) {
	return GetOrLoadJSON(cc.c, ctx, categoriesKey(ownerID), cc.ttl, load)
}

func (cc *CategoryCache) Invalidate(ctx context.Context, ownerID string) error {
	return cc.c.Delete(ctx, categoriesKey(ownerID))
}
