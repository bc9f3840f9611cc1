package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskhub/internal/core/auth"
	"taskhub/internal/core/config"
	"taskhub/internal/core/database"
	"taskhub/internal/repo"
	"taskhub/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type testAPI struct {
	t   *testing.T
	r   *gin.Engine
	jwt *auth.JWTer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	l := zap.NewNop()
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "taskhub", TTL: time.Hour}
	users := repo.NewUserRepo(db)
	categories := repo.NewCategoryRepo(db)
	tasks := repo.NewTaskRepo(db)
	r := NewAPIEngine(l, Deps{
		Auth:       service.NewAuthService(users, jwter),
		Identity:   service.NewIdentityService(users),
		Categories: service.NewCategoryService(categories, nil, l),
		Tasks:      service.NewTaskService(tasks, categories, nil, l),
		JWT:        jwter,
		Session:    config.Session{CookieName: "session"},
	})
	return &testAPI{t: t, r: r, jwt: jwter}
}

// call 发请求；session 为空表示匿名
func (a *testAPI) call(method, path string, session *http.Cookie, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(a.t, err)
			raw = string(b)
		}
		req = httptest.NewRequest(method, path, strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.r.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) signup(email, password string) *http.Cookie {
	a.t.Helper()
	rec := a.call(http.MethodPost, "/register", nil, gin.H{"email": email, "password": password, "name": "N"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = a.call(http.MethodPost, "/login", nil, gin.H{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	a.t.Fatal("no session cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type categoryJSON struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Count *struct {
		Tasks int64 `json:"tasks"`
	} `json:"_count"`
}

type taskJSON struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Completed   bool          `json:"completed"`
	DueDate     *time.Time    `json:"dueDate"`
	CategoryID  *uint         `json:"categoryId"`
	Category    *categoryJSON `json:"category"`
}

func TestEndToEndFlow(t *testing.T) {
	a := newTestAPI(t)

	rec := a.call(http.MethodPost, "/register", nil, gin.H{"email": "a@x.com", "password": "pw1", "name": "A"})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[map[string]string](t, rec)
	assert.Equal(t, "User registered successfully", reg["message"])
	assert.NotEmpty(t, reg["userId"])

	rec = a.call(http.MethodPost, "/register", nil, gin.H{"email": "a@x.com", "password": "pw1", "name": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"User already exists"}`, rec.Body.String())

	rec = a.call(http.MethodPost, "/login", nil, gin.H{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/login", nil, gin.H{"email": "a@x.com", "password": "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = a.call(http.MethodPost, "/categories", session, gin.H{"name": "Home", "color": "#fff"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	home := decode[categoryJSON](t, rec)
	require.NotZero(t, home.ID)

	rec = a.call(http.MethodPost, "/tasks", session, gin.H{"title": "Buy milk", "categoryId": home.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[taskJSON](t, rec)
	assert.False(t, task.Completed)
	require.NotNil(t, task.Category)
	assert.Equal(t, "Home", task.Category.Name)

	rec = a.call(http.MethodGet, "/tasks?search=milk", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]taskJSON](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, task.ID, found[0].ID)

	rec = a.call(http.MethodGet, "/categories", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]categoryJSON](t, rec)
	require.Len(t, cats, 1)
	require.NotNil(t, cats[0].Count)
	assert.Equal(t, int64(1), cats[0].Count.Tasks)

	rec = a.call(http.MethodDelete, fmt.Sprintf("/categories/%d", home.ID), session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Category deleted"}`, rec.Body.String())

	rec = a.call(http.MethodGet, "/tasks", session, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":null`)
	after := decode[[]taskJSON](t, rec)
	require.Len(t, after, 1)
	assert.Equal(t, task.ID, after[0].ID)
	assert.Nil(t, after[0].CategoryID)
	assert.Nil(t, after[0].Category)
}

func TestOwnershipIsolation(t *testing.T) {
	a := newTestAPI(t)
	u1 := a.signup("u1@x.com", "pw")
	u2 := a.signup("u2@x.com", "pw")

	rec := a.call(http.MethodPost, "/categories", u1, gin.H{"name": "Work", "color": "#f00"})
	require.Equal(t, http.StatusCreated, rec.Code)
	work := decode[categoryJSON](t, rec)
	rec = a.call(http.MethodPost, "/tasks", u1, gin.H{"title": "secret", "categoryId": work.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[taskJSON](t, rec)

	// u2 看不到 u1 的数据
	rec = a.call(http.MethodGet, "/tasks", u2, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
	rec = a.call(http.MethodGet, "/categories", u2, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
	rec = a.call(http.MethodGet, fmt.Sprintf("/tasks?categoryId=%d", work.ID), u2, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// 也改不了、删不掉，返回和不存在一样的 404
	taskPath := fmt.Sprintf("/tasks/%d", task.ID)
	catPath := fmt.Sprintf("/categories/%d", work.ID)
	rec = a.call(http.MethodPatch, taskPath, u2, gin.H{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Task not found"}`, rec.Body.String())
	rec = a.call(http.MethodDelete, taskPath, u2, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.call(http.MethodPatch, catPath, u2, gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Category not found"}`, rec.Body.String())
	rec = a.call(http.MethodDelete, catPath, u2, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.call(http.MethodPatch, "/categories/9999", u2, gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Category not found"}`, rec.Body.String())

	// 不能把任务挂到别人的分类下
	rec = a.call(http.MethodPost, "/tasks", u2, gin.H{"title": "sneaky", "categoryId": work.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid category id"}`, rec.Body.String())

	// 同名分类：u1 冲突，u2 可以
	rec = a.call(http.MethodPost, "/categories", u1, gin.H{"name": "Work"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.call(http.MethodPost, "/categories", u2, gin.H{"name": "Work"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// u1 的数据原样还在
	rec = a.call(http.MethodGet, "/tasks", u1, nil)
	tasks := decode[[]taskJSON](t, rec)
	require.Len(t, tasks, 1)
	assert.False(t, tasks[0].Completed)
	require.NotNil(t, tasks[0].Category)
	assert.Equal(t, "Work", tasks[0].Category.Name)
}

func TestSessionFailures(t *testing.T) {
	a := newTestAPI(t)

	for _, p := range []string{"/tasks", "/categories", "/me", "/api/tasks"} {
		rec := a.call(http.MethodGet, p, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String(), p)
	}
	rec := a.call(http.MethodPatch, "/tasks/1", nil, gin.H{"completed": true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.call(http.MethodDelete, "/tasks/1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 会话有效但用户已不存在
	tok, err := a.jwt.Issue("gone", "gone@x.com")
	require.NoError(t, err)
	rec = a.call(http.MethodGet, "/tasks", &http.Cookie{Name: "session", Value: tok}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, rec.Body.String())

	// 伪造的令牌等同于没有会话
	rec = a.call(http.MethodGet, "/tasks", &http.Cookie{Name: "session", Value: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenAndMe(t *testing.T) {
	a := newTestAPI(t)
	a.signup("b@x.com", "pw")

	rec := a.call(http.MethodPost, "/api/login", nil, gin.H{"email": "B@x.com ", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		Token string `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}](t, rec)
	assert.Equal(t, "b@x.com", out.User.Email)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"b@x.com"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLogoutClearsCookie(t *testing.T) {
	a := newTestAPI(t)
	rec := a.call(http.MethodPost, "/logout", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logged out"}`, rec.Body.String())
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestInputErrors(t *testing.T) {
	a := newTestAPI(t)
	s := a.signup("c@x.com", "pw")

	rec := a.call(http.MethodPost, "/register", nil, gin.H{"email": "not-an-email", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.call(http.MethodPost, "/register", nil, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(http.MethodPatch, "/tasks/abc", s, gin.H{"completed": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid task id"}`, rec.Body.String())
	rec = a.call(http.MethodDelete, "/categories/abc", s, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid category id"}`, rec.Body.String())
	rec = a.call(http.MethodGet, "/tasks?categoryId=abc", s, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(http.MethodPost, "/tasks", s, gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Title is required"}`, rec.Body.String())
	rec = a.call(http.MethodPost, "/categories", s, gin.H{"color": "#fff"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Name is required"}`, rec.Body.String())

	rec = a.call(http.MethodPost, "/categories", s, gin.H{"name": "Home"})
	require.Equal(t, http.StatusCreated, rec.Code)
	home := decode[categoryJSON](t, rec)
	rec = a.call(http.MethodPost, "/categories", s, gin.H{"name": "Work"})
	require.Equal(t, http.StatusCreated, rec.Code)

	homePath := fmt.Sprintf("/categories/%d", home.ID)
	rec = a.call(http.MethodPatch, homePath, s, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No updates provided"}`, rec.Body.String())
	rec = a.call(http.MethodPatch, homePath, s, gin.H{"name": "Work"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.call(http.MethodPatch, homePath, s, gin.H{"color": "#123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "#123456", decode[categoryJSON](t, rec).Color)
}

func TestTaskLifecycle(t *testing.T) {
	a := newTestAPI(t)
	s := a.signup("d@x.com", "pw")

	rec := a.call(http.MethodPost, "/tasks", s, gin.H{"title": "write report", "description": "q3", "categoryId": "", "dueDate": "2024-06-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[taskJSON](t, rec)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2024-06-01", task.DueDate.UTC().Format(time.DateOnly))
	assert.Nil(t, task.CategoryID)

	path := fmt.Sprintf("/tasks/%d", task.ID)

	// 切换两次回到原状态
	rec = a.call(http.MethodPatch, path, s, gin.H{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[taskJSON](t, rec).Completed)
	rec = a.call(http.MethodPatch, path, s, gin.H{"completed": false})
	require.Equal(t, http.StatusOK, rec.Code)
	back := decode[taskJSON](t, rec)
	assert.False(t, back.Completed)
	assert.Equal(t, task.Title, back.Title)
	assert.Equal(t, *task.Description, *back.Description)

	rec = a.call(http.MethodPatch, path, s, gin.H{"title": "final report"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "final report", decode[taskJSON](t, rec).Title)

	rec = a.call(http.MethodPatch, path, s, `{"description":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[taskJSON](t, rec).Description)
	assert.Contains(t, rec.Body.String(), `"description":null`)

	rec = a.call(http.MethodPatch, path, s, gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.call(http.MethodDelete, path, s, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Task deleted"}`, rec.Body.String())
	rec = a.call(http.MethodDelete, path, s, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.call(http.MethodPatch, path, s, gin.H{"completed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestAPI(t)
	rec := a.call(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":1}`, rec.Body.String())

	rec = a.call(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskhub_http_requests_total")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
