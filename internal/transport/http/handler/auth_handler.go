package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/domain"
	"taskhub/internal/service"
	"taskhub/internal/transport/http/ez"
	resp "taskhub/internal/transport/http/response"
)

// CookieOpts 会话 cookie 的写法
type CookieOpts struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	svc    *service.AuthService
	cookie CookieOpts
}

func NewAuthHandler(svc *service.AuthService, cookie CookieOpts) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	return &AuthHandler{svc: svc, cookie: cookie}
}

type registerOut struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type loginOut struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// CredentialRoutes 注册/登录，路由层会额外挂按 IP 限速
func (h *AuthHandler) CredentialRoutes(e ez.EZ) []ez.Route {
	return []ez.Route{
		ez.Make(e, ez.Action[registerIn, registerOut]{
			Method:  http.MethodPost,
			Path:    "/register",
			Binder:  ez.BindJSON,
			Status:  http.StatusCreated,
			FailMsg: "Failed to register user",
			Handler: func(c *gin.Context, _ *domain.User, in *registerIn) (registerOut, error) {
				u, err := h.svc.Register(c.Request.Context(), in.Email, in.Password, in.Name)
				if err != nil {
					return registerOut{}, err
				}
				return registerOut{Message: "User registered successfully", UserID: u.ID}, nil
			},
		}),
		ez.Make(e, ez.Action[loginIn, loginOut]{
			Method:  http.MethodPost,
			Path:    "/login",
			Binder:  ez.BindJSON,
			FailMsg: "Failed to log in",
			Handler: func(c *gin.Context, _ *domain.User, in *loginIn) (loginOut, error) {
				tok, u, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
				if err != nil {
					return loginOut{}, err
				}
				h.setCookie(c, tok, int(h.cookie.TTL.Seconds()))
				return loginOut{User: u, Token: tok}, nil
			},
		}),
	}
}

// SessionRoutes 退出登录与当前用户
func (h *AuthHandler) SessionRoutes(e ez.EZ) []ez.Route {
	return []ez.Route{
		ez.Make(e, ez.Action[struct{}, resp.Message]{
			Method: http.MethodPost,
			Path:   "/logout",
			Binder: ez.BindNone,
			Handler: func(c *gin.Context, _ *domain.User, _ *struct{}) (resp.Message, error) {
				h.setCookie(c, "", -1)
				return resp.OK("Logged out"), nil
			},
		}),
		ez.Make(e, ez.Action[struct{}, *domain.User]{
			Method: http.MethodGet,
			Path:   "/me",
			Binder: ez.BindNone,
			Auth:   true,
			Handler: func(_ *gin.Context, p *domain.User, _ *struct{}) (*domain.User, error) {
				return p, nil
			},
		}),
	}
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
