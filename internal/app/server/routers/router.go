package routers

import (
	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/server/handlers/admin"
	"redaxion/backend/internal/app/server/handlers/discount"
	"redaxion/backend/internal/app/server/handlers/order"
	"redaxion/backend/internal/app/server/handlers/payment"
	"redaxion/backend/internal/app/server/middlewares"
	"redaxion/backend/internal/app/pkg/logger"
)

// SetupRoutes 配置所有路由，使用 Route Group 分类
func SetupRoutes(
	orderHandler *order.OrderHandler,
	paymentHandler *payment.PaymentHandler,
	discountHandler *discount.DiscountHandler,
	adminHandler *admin.AdminHandler,
	adminAPIKey string,
	log logger.Logger,
) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.Recovery(log))
	r.Use(middlewares.CORS())
	r.Use(middlewares.RequestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "redaxion-backend",
			"message": "Service is running",
		})
	})

	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/retry", orderHandler.Retry)
		}

		v1.GET("/discounts/:code", discountHandler.Validate)

		payments := v1.Group("/payments")
		{
			payments.POST("/webhook/:gateway", paymentHandler.Webhook)
			// Flow 以 POST 回跳，MercadoPago 以 GET 回跳
			payments.GET("/return", paymentHandler.Return)
			payments.POST("/return", paymentHandler.Return)
		}

		adminGroup := v1.Group("/admin", middlewares.APIKeyAuth(adminAPIKey))
		{
			adminGroup.PUT("/orders/:id/status", adminHandler.ForceStatus)
			adminGroup.POST("/orders/:id/retry", adminHandler.Retry)
			adminGroup.POST("/discounts", adminHandler.CreateDiscount)
			adminGroup.GET("/discounts", adminHandler.ListDiscounts)
			adminGroup.DELETE("/discounts/:code", adminHandler.DeactivateDiscount)
		}
	}

	return r
}
