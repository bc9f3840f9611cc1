package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/core/auth"
	"taskhub/internal/transport/http/ez"
)

// Session 依次尝试 cookie 和 Authorization: Bearer，第一个合法的令牌写入 claims。
// 不拦截请求：是否需要登录由各个 Action 决定
func Session(j *auth.JWTer, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, tok := range sessionTokens(c, cookieName) {
			if claims, err := j.Parse(tok); err == nil {
				c.Set(ez.KeyClaims, claims)
				break
			}
		}
		c.Next()
	}
}

func sessionTokens(c *gin.Context, cookieName string) []string {
	var toks []string
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		toks = append(toks, v)
	}
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		toks = append(toks, strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")))
	}
	return toks
}
