package security

import (
	"net/http"
	"strings"

	"DChat/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxUserIDKey 后续 handler 统一用这个 key 读当前用户。
const CtxUserIDKey = "userId"

type Options struct {
	Secret []byte
	// 读取哪个请求头；默认 "Authorization"，兼容 Bearer 前缀
	HeaderToken string
}

func DefaultOptions(secret []byte) *Options {
	return &Options{Secret: secret, HeaderToken: "Authorization"}
}

// Middleware 校验 JWT 并把 userID 写进请求 context。
// 核心无条件信任这里给出的身份；校验失败一律 401。
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing token"})
			return
		}

		userID, err := security.Verify(security.DefaultOptions(opts.Secret), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID 取当前请求的认证用户；没有就是中间件没挂，直接空串。
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserIDKey)
	s, _ := v.(string)
	return s
}
