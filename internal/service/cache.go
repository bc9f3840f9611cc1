package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"taskhub/internal/domain"
)

// CategoryCache 分类列表缓存，实现见 cache.CategoryCache
type CategoryCache interface {
	Categories(ctx context.Context, ownerID string, load func(ctx context.Context) ([]domain.Category, error)) ([]domain.Category, error)
	Invalidate(ctx context.Context, ownerID string) error
}

type noCache struct{}

func (noCache) Categories(ctx context.Context, _ string, load func(ctx context.Context) ([]domain.Category, error)) ([]domain.Category, error) {
	return load(ctx)
}

func (noCache) Invalidate(context.Context, string) error { return nil }

func orNoCache(c CategoryCache) CategoryCache {
	if c == nil {
		return noCache{}
	}
	return c
}

// invalidate 失败只记日志，缓存有 TTL 兜底
func invalidate(ctx context.Context, c CategoryCache, log *zap.Logger, ownerID string) {
	if err := c.Invalidate(ctx, ownerID); err != nil {
		log.Warn("category cache invalidate failed", zap.String("owner", ownerID), zap.Error(err))
	}
}

func isKind(err, kind error) bool { return errors.Is(err, kind) }
