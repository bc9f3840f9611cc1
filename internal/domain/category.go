package domain

import (
	"context"
	"time"
)

// Category 属于单个用户，(user_id, name) 唯一
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_categories_user_name" json:"name"`
	Color     string    `gorm:"size:32" json:"color"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_categories_user_name" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// 仅列表接口填充
	Count *CategoryCount `gorm:"-" json:"_count,omitempty"`
}

func (Category) TableName() string { return "categories" }

type CategoryCount struct {
	Tasks int64 `json:"tasks"`
}

// CategoryPatch nil 表示不修改
type CategoryPatch struct {
	Name  *string
	Color *string
}

func (p CategoryPatch) Empty() bool { return p.Name == nil && p.Color == nil }

// CategoryRepository 所有方法都按 ownerID 限定范围；查不到返回 (nil, nil)
type CategoryRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Category, error)
	CountTasks(ctx context.Context, ownerID string) (map[uint]int64, error)
	FindOwned(ctx context.Context, id uint, ownerID string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category, patch CategoryPatch) error
	// DeleteDetach 先把关联任务的 category_id 置空，再删除分类
	DeleteDetach(ctx context.Context, id uint, ownerID string) error
}
