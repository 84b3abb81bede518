package middlewares

import (
	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/pkg/ginx"
	"redaxion/backend/internal/app/pkg/logger"
)

// Recovery panic 恢复中间件：handler 崩溃转为 500 响应
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf(c.Request.Context(), "handler panicked: %v", rec)
				ginx.InternalError(c, "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
