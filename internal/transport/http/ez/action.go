package ez

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"taskhub/internal/core/auth"
	"taskhub/internal/domain"
	resp "taskhub/internal/transport/http/response"
)

// KeyClaims 会话中间件写入 gin.Context 的 key
const KeyClaims = "claims"

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定
)

// Resolver 把会话里的 email 解析为用户
type Resolver interface {
	Resolve(ctx context.Context, email string) (*domain.User, error)
}

// 入参可选实现：绑定后调用
type validatable interface{ Validate() error }

type EZ struct {
	resolver Resolver
	log      *zap.Logger
}

func New(resolver Resolver, l *zap.Logger) EZ { return EZ{resolver: resolver, log: l} }

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string
	Path    string // 例："/tasks/:id"
	Binder  Binder
	Auth    bool   // 需要登录：解析会话 → 查用户，失败 401/404
	Status  int    // 成功状态码，默认 200
	FailMsg string // 500 时返回的 error 文案
	Handler func(c *gin.Context, p *domain.User, in *I) (O, error)
}

// Route 静态路由表的一项
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Make 把 Action 编译成路由项：鉴权 → 绑定/校验 → 执行 → 统一错误映射
func Make[I any, O any](e EZ, a Action[I, O]) Route {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	failMsg := a.FailMsg
	if failMsg == "" {
		failMsg = resp.Msg(http.StatusInternalServerError)
	}

	h := func(c *gin.Context) {
		// 1) 身份
		var p *domain.User
		if a.Auth {
			email := ""
			if cl, ok := c.Get(KeyClaims); ok {
				if claims, ok := cl.(*auth.Claims); ok {
					email = claims.Email
				}
			}
			u, err := e.resolver.Resolve(c.Request.Context(), email)
			if err != nil {
				e.fail(c, failMsg, err)
				return
			}
			p = u
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
			if errors.Is(bindErr, io.EOF) {
				// 空 body 视为所有字段缺省，仍做 binding 校验
				bindErr = binding.Validator.ValidateStruct(&in)
			}
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			c.JSON(http.StatusBadRequest, resp.Error(http.StatusBadRequest, bindMessage(bindErr)))
			return
		}
		if v, ok := any(&in).(validatable); ok {
			if err := v.Validate(); err != nil {
				e.fail(c, failMsg, err)
				return
			}
		}

		// 3) 执行
		out, err := a.Handler(c, p, &in)
		if err != nil {
			e.fail(c, failMsg, err)
			return
		}
		c.JSON(status, out)
	}

	return Route{Method: strings.ToUpper(a.Method), Path: a.Path, Handler: h}
}

// Mount 按路由表注册
func Mount(g gin.IRoutes, routes []Route) {
	for _, r := range routes {
		g.Handle(r.Method, r.Path, r.Handler)
	}
}

// fail 统一错误映射：领域错误 → 对应状态码；其余一律 500 并记日志
func (e EZ) fail(c *gin.Context, failMsg string, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		code := StatusOf(de.Kind)
		c.JSON(code, resp.Error(code, de.Error()))
		return
	}
	_ = c.Error(err)
	rid := c.GetString("X-Request-ID")
	e.log.Error("request failed",
		zap.String("rid", rid),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	// 原始错误只进日志，响应里只给可用于检索日志的 request id
	c.JSON(http.StatusInternalServerError, resp.ErrorWithDetails(failMsg, internalDetails(rid)))
}

func internalDetails(rid string) string {
	if rid == "" {
		return "internal error"
	}
	return "internal error (request id " + rid + ")"
}

func StatusOf(kind error) int {
	switch {
	case errors.Is(kind, domain.ErrUnauthenticated), errors.Is(kind, domain.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(kind, domain.ErrPrincipalNotFound), errors.Is(kind, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, domain.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// ParamID 解析路径中的数字 id，非法时返回校验错误
func ParamID(c *gin.Context, name, invalidMsg string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, domain.Validation(invalidMsg)
	}
	return uint(id), nil
}

func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return strings.Join(msgs, "; ")
	}
	return "Invalid request body"
}

func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
