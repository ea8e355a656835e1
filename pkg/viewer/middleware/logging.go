package middleware

import (
	"time"

	"github.com/HorseArcher567/applog/pkg/xlog"
	"github.com/gin-gonic/gin"
)

// Context 将 logger 注入请求的 context，后续中间件和处理函数通过 xlog.FromContext 获取。
func Context(log *xlog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := xlog.WithContext(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logging 记录 method、path、status、latency。
// 长连接（如 /alerts）在断开时才会记录。
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log := xlog.FromContext(c.Request.Context())
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
