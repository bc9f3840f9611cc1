package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"taskhub/internal/domain"
)

// FlexID 兼容 3、"3"、""、null；空串和 null 视为未提供
type FlexID struct {
	ID      *uint
	invalid bool
}

func (f *FlexID) UnmarshalJSON(b []byte) error {
	*f = FlexID{}
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	id, ok := parseID(s)
	if !ok {
		f.invalid = !isBlank(s)
		return nil
	}
	f.ID = &id
	return nil
}

// FlexTime 兼容 RFC 3339、"2006-01-02T15:04"、"2006-01-02"、""、null
type FlexTime struct {
	Time    *time.Time
	invalid bool
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", time.DateOnly}

func (f *FlexTime) UnmarshalJSON(b []byte) error {
	*f = FlexTime{}
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		f.invalid = true
		return nil
	}
	if isBlank(s) {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			f.Time = &t
			return nil
		}
	}
	f.invalid = true
	return nil
}

// NullString 区分字段缺省、显式 null 和字符串值
type NullString struct {
	Set   bool
	Value *string
}

func (n *NullString) UnmarshalJSON(b []byte) error {
	n.Set = true
	n.Value = nil
	if string(bytes.TrimSpace(b)) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func parseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

/* ---------- auth ---------- */

type registerIn struct {
	Email    string `json:"email"    binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,max=72"`
	Name     string `json:"name"     binding:"omitempty,max=64"`
}

type loginIn struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

/* ---------- category ---------- */

type categoryIn struct {
	Name  string `json:"name"  binding:"max=64"`
	Color string `json:"color" binding:"max=32"`
}

func (in *categoryIn) Validate() error {
	if isBlank(in.Name) {
		return domain.Validation("Name is required")
	}
	return nil
}

// categoryPatchIn 空 body 的判断放在归属校验之后（service 内）
type categoryPatchIn struct {
	Name  *string `json:"name"  binding:"omitempty,max=64"`
	Color *string `json:"color" binding:"omitempty,max=32"`
}

func (in *categoryPatchIn) patch() domain.CategoryPatch {
	return domain.CategoryPatch{Name: in.Name, Color: in.Color}
}

/* ---------- task ---------- */

type taskQuery struct {
	Search     string `form:"search"`
	CategoryID string `form:"categoryId"`

	categoryID *uint
}

func (q *taskQuery) Validate() error {
	if isBlank(q.CategoryID) {
		return nil
	}
	id, ok := parseID(q.CategoryID)
	if !ok {
		return domain.Validation("Invalid category id")
	}
	q.categoryID = &id
	return nil
}

func (q *taskQuery) filter() domain.TaskFilter {
	return domain.TaskFilter{Search: q.Search, CategoryID: q.categoryID}
}

type taskIn struct {
	Title       string   `json:"title" binding:"max=255"`
	Description *string  `json:"description"`
	CategoryID  FlexID   `json:"categoryId"`
	DueDate     FlexTime `json:"dueDate"`
}

func (in *taskIn) Validate() error {
	switch {
	case isBlank(in.Title):
		return domain.Validation("Title is required")
	case in.CategoryID.invalid:
		return domain.Validation("Invalid category id")
	case in.DueDate.invalid:
		return domain.Validation("Invalid due date")
	}
	return nil
}

type taskPatchIn struct {
	Title       *string    `json:"title" binding:"omitempty,max=255"`
	Description NullString `json:"description"`
	Completed   *bool      `json:"completed"`
}

func (in *taskPatchIn) Validate() error {
	if in.Title != nil && isBlank(*in.Title) {
		return domain.Validation("Title must not be empty")
	}
	return nil
}

func (in *taskPatchIn) patch() domain.TaskPatch {
	return domain.TaskPatch{
		Title:            in.Title,
		Description:      in.Description.Value,
		ClearDescription: in.Description.Set && in.Description.Value == nil,
		Completed:        in.Completed,
	}
}
