package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"taskhub/internal/domain"
)

const msgCategoryExists = "Category name already exists for this user"

type CategoryRepo struct{ db *gorm.DB }

func NewCategoryRepo(db *gorm.DB) *CategoryRepo { return &CategoryRepo{db: db} }

func (r *CategoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Category, error) {
	cs := make([]domain.Category, 0)
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("id ASC").
		Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

// CountTasks 返回 category_id → 任务数，没有任务的分类不在结果里
func (r *CategoryRepo) CountTasks(ctx context.Context, ownerID string) (map[uint]int64, error) {
	type row struct {
		CategoryID uint
		N          int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Select("category_id, COUNT(*) AS n").
		Where("user_id = ? AND category_id IS NOT NULL", ownerID).
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, rw := range rows {
		out[rw.CategoryID] = rw.N
	}
	return out, nil
}

// FindOwned id 和 owner 在同一条查询里过滤：不存在和不属于当前用户对外不可区分
func (r *CategoryRepo) FindOwned(ctx context.Context, id uint, ownerID string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c *domain.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isDupKey(err) {
			return domain.Conflict(msgCategoryExists)
		}
		return err
	}
	return nil
}

func (r *CategoryRepo) Update(ctx context.Context, c *domain.Category, patch domain.CategoryPatch) error {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Color != nil {
		updates["color"] = *patch.Color
	}
	if len(updates) == 0 {
		return nil
	}
	now := time.Now()
	updates["updated_at"] = now
	err := r.db.WithContext(ctx).
		Model(&domain.Category{}).
		Where("id = ? AND user_id = ?", c.ID, c.UserID).
		Updates(updates).Error
	if err != nil {
		if isDupKey(err) {
			return domain.Conflict(msgCategoryExists)
		}
		return err
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Color != nil {
		c.Color = *patch.Color
	}
	c.UpdatedAt = now
	return nil
}

func (r *CategoryRepo) DeleteDetach(ctx context.Context, id uint, ownerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Task{}).
			Where("category_id = ? AND user_id = ?", id, ownerID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&domain.Category{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("Category not found")
		}
		return nil
	})
}
