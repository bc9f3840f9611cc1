package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"taskhub/internal/core/auth"
	"taskhub/internal/core/config"
	"taskhub/internal/core/server"
	"taskhub/internal/service"
	"taskhub/internal/transport/http/ez"
	"taskhub/internal/transport/http/handler"
	mdw "taskhub/internal/transport/http/middleware"
)

// Deps 由 main 组装后注入
type Deps struct {
	Auth       *service.AuthService
	Identity   *service.IdentityService
	Categories *service.CategoryService
	Tasks      *service.TaskService
	JWT        *auth.JWTer
	Session    config.Session
	Limits     config.Limits
	Origins    []string
}

// 路由前缀：根路径 + 旧前端使用的 /api
var prefixes = []string{"", "/api"}

func NewAPIEngine(l *zap.Logger, d Deps) *gin.Engine {
	r := server.NewRouter(l, d.Origins)

	lim := withLimitDefaults(d.Limits)
	if d.Session.CookieName == "" {
		d.Session.CookieName = "session"
	}
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.Concurrency),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(time.Duration(lim.TimeoutSec)*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
		mdw.Session(d.JWT, d.Session.CookieName),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(mdw.MetricsHandler()))

	e := ez.New(d.Identity, l)
	authH := handler.NewAuthHandler(d.Auth, handler.CookieOpts{
		Name:   d.Session.CookieName,
		Secure: d.Session.Secure,
		TTL:    d.JWT.TTL,
	})
	credentials := authH.CredentialRoutes(e)
	routes := Routes(e, authH, handler.NewCategoryHandler(d.Categories), handler.NewTaskHandler(d.Tasks))

	// 同一个按 IP 限速器同时作用于两个前缀
	authLimit := mdw.RateLimitPerIP(rate.Limit(lim.AuthRPS), lim.AuthBurst)
	for _, p := range prefixes {
		g := r.Group(p)
		ez.Mount(g.Group("", authLimit), credentials)
		ez.Mount(g, routes)
	}
	return r
}

// Routes 需要会话（或无需限速）的路由表
func Routes(e ez.EZ, a *handler.AuthHandler, c *handler.CategoryHandler, t *handler.TaskHandler) []ez.Route {
	var out []ez.Route
	out = append(out, a.SessionRoutes(e)...)
	out = append(out, c.Routes(e)...)
	out = append(out, t.Routes(e)...)
	return out
}

func withLimitDefaults(l config.Limits) config.Limits {
	if l.RPS <= 0 {
		l.RPS = 200
	}
	if l.Burst <= 0 {
		l.Burst = 400
	}
	if l.AuthRPS <= 0 {
		l.AuthRPS = 1
	}
	if l.AuthBurst <= 0 {
		l.AuthBurst = 10
	}
	if l.Concurrency <= 0 {
		l.Concurrency = 300
	}
	if l.MaxBodyBytes <= 0 {
		l.MaxBodyBytes = 1 << 20
	}
	if l.TimeoutSec <= 0 {
		l.TimeoutSec = 10
	}
	return l
}
