package admin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/domains/apimodel/request"
	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/ginx"
)

// ForceStatus 强制修改订单状态（绕过 CAS，人工兜底用）
// PUT /api/v1/admin/orders/:id/status
func (h *AdminHandler) ForceStatus(c *gin.Context) {
	orderID := c.Param("id")
	if orderID == "" {
		ginx.BadRequest(c, "order_id required")
		return
	}

	var req request.ForceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	err := h.orderService.ForceStatus(c.Request.Context(), orderID, etorder.Status(req.Status), req.Operator)
	if err != nil {
		if errors.Is(err, errorx.ErrOrderNotFound) {
			ginx.NotFound(c, "order not found")
			return
		}
		h.logger.Errorf(c.Request.Context(), "force status failed: %v", err)
		ginx.InternalError(c, "force status failed")
		return
	}

	ginx.Success(c, gin.H{"order_id": orderID, "status": req.Status})
}

// Retry 管理端重试 ERROR 订单
// POST /api/v1/admin/orders/:id/retry
func (h *AdminHandler) Retry(c *gin.Context) {
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
			h.logger.Errorf(c.Request.Context(), "admin retry failed: %v", err)
			ginx.InternalError(c, "retry failed")
		}
		return
	}

	ginx.Success(c, gin.H{"order_id": orderID, "retrying": true})
}
