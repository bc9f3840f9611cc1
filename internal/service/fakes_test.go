package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"taskhub/internal/domain"
)

// memStore 内存版仓储，语义对齐 gorm 实现（owner 过滤、唯一约束、解除关联）
type memStore struct {
	mu         sync.Mutex
	users      map[string]*domain.User
	categories map[uint]*domain.Category
	tasks      map[uint]*domain.Task
	nextCat    uint
	nextTask   uint
	failWith   error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]*domain.User{},
		categories: map[uint]*domain.Category{},
		tasks:      map[uint]*domain.Task{},
	}
}

type memUsers struct{ s *memStore }
type memCategories struct{ s *memStore }
type memTasks struct{ s *memStore }

func (m memUsers) Create(_ context.Context, u *domain.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, x := range m.s.users {
		if x.Email == u.Email {
			return domain.Conflict("User already exists")
		}
	}
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWith != nil {
		return nil, m.s.failWith
	}
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m memCategories) ListByOwner(_ context.Context, ownerID string) ([]domain.Category, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := []domain.Category{}
	for _, c := range m.s.categories {
		if c.UserID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memCategories) CountTasks(_ context.Context, ownerID string) (map[uint]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := map[uint]int64{}
	for _, t := range m.s.tasks {
		if t.UserID == ownerID && t.CategoryID != nil {
			out[*t.CategoryID]++
		}
	}
	return out, nil
}

func (m memCategories) FindOwned(_ context.Context, id uint, ownerID string) (*domain.Category, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWith != nil {
		return nil, m.s.failWith
	}
	if c, ok := m.s.categories[id]; ok && c.UserID == ownerID {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m memCategories) nameTaken(ownerID, name string, except uint) bool {
	for _, c := range m.s.categories {
		if c.UserID == ownerID && c.Name == name && c.ID != except {
			return true
		}
	}
	return false
}

func (m memCategories) Create(_ context.Context, c *domain.Category) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.nameTaken(c.UserID, c.Name, 0) {
		return domain.Conflict("Category name already exists for this user")
	}
	m.s.nextCat++
	c.ID = m.s.nextCat
	cp := *c
	m.s.categories[c.ID] = &cp
	return nil
}

func (m memCategories) Update(_ context.Context, c *domain.Category, patch domain.CategoryPatch) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.categories[c.ID]
	if !ok || stored.UserID != c.UserID {
		return nil
	}
	if patch.Name != nil {
		if m.nameTaken(c.UserID, *patch.Name, c.ID) {
			return domain.Conflict("Category name already exists for this user")
		}
		stored.Name, c.Name = *patch.Name, *patch.Name
	}
	if patch.Color != nil {
		stored.Color, c.Color = *patch.Color, *patch.Color
	}
	return nil
}

func (m memCategories) DeleteDetach(_ context.Context, id uint, ownerID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.tasks {
		if t.UserID == ownerID && t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
		}
	}
	c, ok := m.s.categories[id]
	if !ok || c.UserID != ownerID {
		return domain.NotFound("Category not found")
	}
	delete(m.s.categories, id)
	return nil
}

func (m memTasks) withCategory(t domain.Task) domain.Task {
	t.Category = nil
	if t.CategoryID != nil {
		if c, ok := m.s.categories[*t.CategoryID]; ok {
			cp := *c
			t.Category = &cp
		}
	}
	return t
}

func (m memTasks) List(_ context.Context, ownerID string, f domain.TaskFilter) ([]domain.Task, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWith != nil {
		return nil, m.s.failWith
	}
	out := []domain.Task{}
	for _, t := range m.s.tasks {
		if t.UserID != ownerID {
			continue
		}
		if f.Search != "" {
			desc := ""
			if t.Description != nil {
				desc = *t.Description
			}
			if !strings.Contains(t.Title, f.Search) && !strings.Contains(desc, f.Search) {
				continue
			}
		}
		if f.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *f.CategoryID) {
			continue
		}
		out = append(out, m.withCategory(*t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m memTasks) FindOwned(_ context.Context, id uint, ownerID string) (*domain.Task, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.tasks[id]; ok && t.UserID == ownerID {
		cp := m.withCategory(*t)
		return &cp, nil
	}
	return nil, nil
}

func (m memTasks) Create(_ context.Context, t *domain.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failWith != nil {
		return m.s.failWith
	}
	m.s.nextTask++
	t.ID = m.s.nextTask
	cp := *t
	cp.Category = nil
	m.s.tasks[t.ID] = &cp
	return nil
}

func (m memTasks) Update(_ context.Context, t *domain.Task, patch domain.TaskPatch) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.tasks[t.ID]
	if !ok || stored.UserID != t.UserID {
		return nil
	}
	if patch.Title != nil {
		stored.Title = *patch.Title
	}
	switch {
	case patch.ClearDescription:
		stored.Description = nil
	case patch.Description != nil:
		d := *patch.Description
		stored.Description = &d
	}
	if patch.Completed != nil {
		stored.Completed = *patch.Completed
	}
	return nil
}

func (m memTasks) Delete(_ context.Context, id uint, ownerID string) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if t, ok := m.s.tasks[id]; ok && t.UserID == ownerID {
		delete(m.s.tasks, id)
		return true, nil
	}
	return false, nil
}

// recordingCache 记录失效调用，不做真正缓存
type recordingCache struct {
	invalidated []string
	failWith    error
}

func (r *recordingCache) Categories(ctx context.Context, _ string, load func(ctx context.Context) ([]domain.Category, error)) ([]domain.Category, error) {
	return load(ctx)
}

func (r *recordingCache) Invalidate(_ context.Context, ownerID string) error {
	r.invalidated = append(r.invalidated, ownerID)
	return r.failWith
}

var errStore = errors.New("store down")
