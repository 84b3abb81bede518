package order

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/domains/apimodel/response"
	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/ginx"
	"redaxion/backend/internal/app/pkg/logger"
)

// maxWaitSeconds Smart Wait 等待上限
const maxWaitSeconds = 30

// Get godoc
// @Summary      获取订单详情
// @Description  根据订单ID获取订单详细信息（包含产物列表）
// @Description
// @Description  使用场景：
// @Description  - 支付后面板轮询订单进度（此接口同时是第四条支付触发路径）
// @Description  - ?wait=N 时若订单仍在处理中，最长挂起 N 秒等待结果（Smart Wait）
// @Tags         orders
// @Produce      json
// @Param        id path string true "订单ID（UUID）"
// @Param        wait query int false "Smart Wait 秒数（0-30）"
// @Success      200 {object} ginx.Response{data=response.OrderResponse} "查询成功"
// @Failure      404 {object} ginx.Response "订单不存在"
// @Failure      500 {object} ginx.Response "服务器错误"
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		ginx.BadRequest(c, "order_id required")
		return
	}

	waitSeconds := 0
	if waitStr := c.Query("wait"); waitStr != "" {
		if w, err := strconv.Atoi(waitStr); err == nil && w > 0 {
			waitSeconds = w
			if waitSeconds > maxWaitSeconds {
				waitSeconds = maxWaitSeconds
			}
		}
	}

	ctx := logger.WithTrigger(c.Request.Context(), "poll")
	order, err := h.orderService.GetOrder(ctx, orderID, waitSeconds)
	if err != nil {
		if errors.Is(err, errorx.ErrOrderNotFound) {
			ginx.NotFound(c, "order not found")
			return
		}
		h.logger.Errorf(ctx, "get order failed: %v", err)
		ginx.InternalError(c, "get order failed")
		return
	}

	if waitSeconds > 0 && (order.Status == etorder.StatusPaid || order.Status == etorder.StatusProcessing) {
		pollURL := fmt.Sprintf("/api/v1/orders/%s", order.ID)
		ginx.Processing(c, order.ID, pollURL)
		return
	}

	ginx.Success(c, response.FromOrderEntity(order))
}

// List 按客户邮箱查询订单列表
// GET /api/v1/orders?email=...
func (h *OrderHandler) List(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		ginx.BadRequest(c, "email required")
		return
	}

	orders, err := h.orderService.ListByEmail(c.Request.Context(), email)
	if err != nil {
		h.logger.Errorf(c.Request.Context(), "list orders failed: %v", err)
		ginx.InternalError(c, "list orders failed")
		return
	}

	ginx.Success(c, response.FromOrderEntities(orders))
}

// Retry 重试 ERROR 订单（面板入口）
// POST /api/v1/orders/:id/retry
func (h *OrderHandler) Retry(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		ginx.BadRequest(c, "order_id required")
		return
	}

	if err := h.orderService.Retry(c.Request.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, errorx.ErrOrderNotFound):
			ginx.NotFound(c, "order not found")
		case errors.Is(err, errorx.ErrOrderNotRetryable):
			ginx.BadRequest(c, "order is not in a retryable state")
		default:
			h.logger.Errorf(c.Request.Context(), "retry order failed: %v", err)
			ginx.InternalError(c, "retry order failed")
		}
		return
	}

	ginx.Success(c, gin.H{"order_id": orderID, "retrying": true})
}
