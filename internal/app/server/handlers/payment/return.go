package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/pkg/logger"
)

// Return 支付完成后的浏览器回跳入口
// GET|POST /api/v1/payments/return?gateway=flow&order=<id>
//
// 回跳是触发路径之一，但首先是一次用户导航：无论确认成败，
// 最终都要把浏览器送到前端的订单状态页，绝不给客户看错误页。
func (h *PaymentHandler) Return(c *gin.Context) {
	ctx := logger.WithTrigger(c.Request.Context(), "return")

	gatewayName := c.Query("gateway")
	orderID := c.Query("order")

	adapter, ok := h.gateways.Lookup(gatewayName)
	if ok {
		// 回跳报文里能解析出订单就直接路由；解析不出（比如 MP 的
		// 回跳参数与 webhook 格式不同）退回到按凭证核实的路径
		event := adapter.ParseNotification(c.Request)
		if event.OrderID != "" {
			if err := h.dispatcher.Handle(ctx, event); err != nil {
				h.logger.Errorf(ctx, "return dispatch failed: %v", err)
			}
		} else if orderID != "" {
			if _, err := h.orderService.GetOrder(ctx, orderID, 0); err != nil {
				h.logger.Warnf(ctx, "return reconcile failed, order=%s: %v", orderID, err)
			}
		}
	} else {
		h.logger.Warnf(ctx, "return for unknown gateway %q", gatewayName)
	}

	target := h.frontendURL + "/pedido"
	if orderID != "" {
		target = h.frontendURL + "/pedido/" + orderID
	}
	c.Redirect(http.StatusFound, target)
}
