package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"taskhub/internal/core/metrics"
	"taskhub/internal/domain"
)

type CategoryService struct {
	repo  domain.CategoryRepository
	cache CategoryCache
	log   *zap.Logger
}

func NewCategoryService(repo domain.CategoryRepository, cache CategoryCache, log *zap.Logger) *CategoryService {
	return &CategoryService{repo: repo, cache: orNoCache(cache), log: log}
}

// List 返回用户全部分类（按创建顺序），每项带任务数
func (s *CategoryService) List(ctx context.Context, ownerID string) ([]domain.Category, error) {
	return s.cache.Categories(ctx, ownerID, func(ctx context.Context) ([]domain.Category, error) {
		cs, err := s.repo.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		counts, err := s.repo.CountTasks(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("count tasks: %w", err)
		}
		for i := range cs {
			cs[i].Count = &domain.CategoryCount{Tasks: counts[cs[i].ID]}
		}
		return cs, nil
	})
}

func (s *CategoryService) Create(ctx context.Context, ownerID, name, color string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Validation("Name is required")
	}
	c := &domain.Category{Name: name, Color: strings.TrimSpace(color), UserID: ownerID}
	if err := s.repo.Create(ctx, c); err != nil {
		if isKind(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	invalidate(ctx, s.cache, s.log, ownerID)
	metrics.CategoryOpsTotal.WithLabelValues("create").Inc()
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, ownerID string, id uint, patch domain.CategoryPatch) (*domain.Category, error) {
	c, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, domain.Validation("No updates provided")
	}
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return nil, domain.Validation("Name must not be empty")
		}
		patch.Name = &n
	}
	if err := s.repo.Update(ctx, c, patch); err != nil {
		if isKind(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	invalidate(ctx, s.cache, s.log, ownerID)
	metrics.CategoryOpsTotal.WithLabelValues("update").Inc()
	return c, nil
}

// Delete 关联任务只解除关联（category_id 置空），不删除
func (s *CategoryService) Delete(ctx context.Context, ownerID string, id uint) error {
	if _, err := s.owned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.DeleteDetach(ctx, id, ownerID); err != nil {
		if isKind(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete category: %w", err)
	}
	invalidate(ctx, s.cache, s.log, ownerID)
	metrics.CategoryOpsTotal.WithLabelValues("delete").Inc()
	return nil
}

// owned 归属校验：不存在和属于别人统一返回 NotFound
func (s *CategoryService) owned(ctx context.Context, id uint, ownerID string) (*domain.Category, error) {
	c, err := s.repo.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	if c == nil {
		return nil, domain.NotFound("Category not found")
	}
	return c, nil
}
