package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/pkg/logger"
)

// Webhook 网关异步通知入口
// POST /api/v1/payments/webhook/:gateway
//
// 无论发生什么都回 200：签名/格式问题被适配器折叠为 outcome=pending
// 事件，内部故障也只记日志——回非 2xx 会招来网关的重投风暴，
// 而丢失的事件本就有回跳和轮询两条路径兜底。
func (h *PaymentHandler) Webhook(c *gin.Context) {
	ctx := logger.WithTrigger(c.Request.Context(), "webhook")

	gatewayName := c.Param("gateway")
	adapter, ok := h.gateways.Lookup(gatewayName)
	if !ok {
		h.logger.Warnf(ctx, "webhook for unknown gateway %q", gatewayName)
		c.String(http.StatusOK, "OK")
		return
	}

	event := adapter.ParseNotification(c.Request)
	if err := h.dispatcher.Handle(ctx, event); err != nil {
		h.logger.Errorf(ctx, "webhook dispatch failed, gateway=%s: %v", gatewayName, err)
	}

	c.String(http.StatusOK, "OK")
}
