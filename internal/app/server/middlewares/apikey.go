package middlewares

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/pkg/ginx"
)

// APIKeyAuth 管理端 API Key 认证中间件（X-Api-Key 头）
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Api-Key")
		if apiKey == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			ginx.Unauthorized(c, "invalid api key")
			c.Abort()
			return
		}
		c.Next()
	}
}
