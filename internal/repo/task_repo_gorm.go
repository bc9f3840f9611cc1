package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

type TaskRepo struct{ db *gorm.DB }

func NewTaskRepo(db *gorm.DB) *TaskRepo { return &TaskRepo{db: db} }

func (r *TaskRepo) List(ctx context.Context, ownerID string, f domain.TaskFilter) ([]domain.Task, error) {
	q := r.db.WithContext(ctx).Preload("Category").Where("tasks.user_id = ?", ownerID)
	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		q = q.Where(
			r.db.Where("tasks.title LIKE ? ESCAPE '!'", like).
				Or("tasks.description LIKE ? ESCAPE '!'", like),
		)
	}
	if f.CategoryID != nil {
		q = q.Where("tasks.category_id = ?", *f.CategoryID)
	}
	ts := make([]domain.Task, 0)
	if err := q.Order("tasks.created_at DESC").Order("tasks.id DESC").Find(&ts).Error; err != nil {
		return nil, err
	}
	return ts, nil
}

func (r *TaskRepo) FindOwned(ctx context.Context, id uint, ownerID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Omit("Category").Create(t).Error
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task, patch domain.TaskPatch) error {
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	switch {
	case patch.ClearDescription:
		updates["description"] = nil
	case patch.Description != nil:
		updates["description"] = *patch.Description
	}
	if patch.Completed != nil {
		updates["completed"] = *patch.Completed
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(updates).Error
}

func (r *TaskRepo) Delete(ctx context.Context, id uint, ownerID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&domain.Task{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
