package middleware

import (
	midsec "DChat/middleware/security"

	"github.com/gin-gonic/gin"
)

// 路由注册选项
type RouteOpt struct {
	IsAuth bool
}

var authOpts *midsec.Options

// InitAuth main() 里用配置的密钥初始化一次。
func InitAuth(secret []byte) {
	authOpts = midsec.DefaultOptions(secret)
}

// 封装 POST
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(authOpts), handler)
	} else {
		r.POST(path, handler)
	}
}

// 封装 GET
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(authOpts), handler)
	} else {
		r.GET(path, handler)
	}
}

// 封装 PUT
func PUT(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PUT(path, midsec.Middleware(authOpts), handler)
	} else {
		r.PUT(path, handler)
	}
}
