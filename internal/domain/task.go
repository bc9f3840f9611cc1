package domain

import (
	"context"
	"time"
)

type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"-"`
	DueDate     *time.Time `json:"dueDate"`
	UserID      string     `gorm:"size:36;not null;index" json:"userId"`
	CategoryID  *uint      `gorm:"index" json:"categoryId"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category"`
}

func (Task) TableName() string { return "tasks" }

// TaskFilter 条件之间是 AND；Search 匹配 title OR description
type TaskFilter struct {
	Search     string
	CategoryID *uint
}

// TaskPatch nil 表示不修改；ClearDescription 把描述置为 NULL
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Completed        *bool
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && !p.ClearDescription && p.Completed == nil
}

// TaskRepository 所有方法都按 ownerID 限定范围；查不到返回 (nil, nil)
type TaskRepository interface {
	List(ctx context.Context, ownerID string, f TaskFilter) ([]Task, error)
	FindOwned(ctx context.Context, id uint, ownerID string) (*Task, error)
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, t *Task, patch TaskPatch) error
	// Delete 返回是否真的删除了一行
	Delete(ctx context.Context, id uint, ownerID string) (bool, error)
}
