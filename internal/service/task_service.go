package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/core/metrics"
	"taskhub/internal/domain"
)

type NewTask struct {
	Title       string
	Description *string
	CategoryID  *uint
	DueDate     *time.Time
}

type TaskService struct {
	tasks      domain.TaskRepository
	categories domain.CategoryRepository
	cache      CategoryCache
	log        *zap.Logger
	now        func() time.Time
}

func NewTaskService(tasks domain.TaskRepository, categories domain.CategoryRepository, cache CategoryCache, log *zap.Logger) *TaskService {
	return &TaskService{
		tasks:      tasks,
		categories: categories,
		cache:      orNoCache(cache),
		log:        log,
		now:        time.Now,
	}
}

// List 最新创建的在前；空结果返回空切片
func (s *TaskService) List(ctx context.Context, ownerID string, f domain.TaskFilter) ([]domain.Task, error) {
	f.Search = strings.TrimSpace(f.Search)
	ts, err := s.tasks.List(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return ts, nil
}

// Create 指定的分类必须属于当前用户
func (s *TaskService) Create(ctx context.Context, ownerID string, in NewTask) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.Validation("Title is required")
	}

	var cat *domain.Category
	if in.CategoryID != nil {
		c, err := s.categories.FindOwned(ctx, *in.CategoryID, ownerID)
		if err != nil {
			return nil, fmt.Errorf("find category: %w", err)
		}
		if c == nil {
			return nil, domain.Validation("Invalid category id")
		}
		cat = c
	}

	t := &domain.Task{
		Title:       title,
		Description: in.Description,
		Completed:   false,
		CreatedAt:   s.now(),
		DueDate:     in.DueDate,
		UserID:      ownerID,
		CategoryID:  in.CategoryID,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t.Category = cat
	if cat != nil {
		invalidate(ctx, s.cache, s.log, ownerID)
	}
	metrics.TaskOpsTotal.WithLabelValues("create").Inc()
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, ownerID string, id uint, patch domain.TaskPatch) (*domain.Task, error) {
	t, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, domain.Validation("Title must not be empty")
		}
		patch.Title = &title
	}
	if patch.Empty() {
		return t, nil
	}
	if err := s.tasks.Update(ctx, t, patch); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	metrics.TaskOpsTotal.WithLabelValues("update").Inc()
	// 重新读取，带上分类
	return s.owned(ctx, id, ownerID)
}

func (s *TaskService) Delete(ctx context.Context, ownerID string, id uint) error {
	ok, err := s.tasks.Delete(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !ok {
		return domain.NotFound("Task not found")
	}
	invalidate(ctx, s.cache, s.log, ownerID)
	metrics.TaskOpsTotal.WithLabelValues("delete").Inc()
	return nil
}

func (s *TaskService) owned(ctx context.Context, id uint, ownerID string) (*domain.Task, error) {
	t, err := s.tasks.FindOwned(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	if t == nil {
		return nil, domain.NotFound("Task not found")
	}
	return t, nil
}
