package admin

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/domains/apimodel/request"
	"redaxion/backend/internal/app/domains/apimodel/response"
	"redaxion/backend/internal/app/domains/services/svdiscount"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/ginx"
)

// CreateDiscount 创建折扣码
// POST /api/v1/admin/discounts
func (h *AdminHandler) CreateDiscount(c *gin.Context) {
	var req request.CreateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	params := &svdiscount.CreateParams{
		Code:            req.Code,
		DiscountPercent: req.DiscountPercent,
		MaxUses:         req.MaxUses,
	}
	if req.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			ginx.BadRequest(c, "expires_at must be RFC3339")
			return
		}
		params.ExpiresAt = &expiresAt
	}

	dc, err := h.discountService.Create(c.Request.Context(), params)
	if err != nil {
		h.logger.Errorf(c.Request.Context(), "create discount failed: %v", err)
		ginx.BadRequest(c, err.Error())
		return
	}

	ginx.Success(c, response.FromDiscountEntity(dc))
}

// ListDiscounts 折扣码列表
// GET /api/v1/admin/discounts
func (h *AdminHandler) ListDiscounts(c *gin.Context) {
	codes, err := h.discountService.List(c.Request.Context())
	if err != nil {
		h.logger.Errorf(c.Request.Context(), "list discounts failed: %v", err)
		ginx.InternalError(c, "list discounts failed")
		return
	}

	ginx.Success(c, response.FromDiscountEntities(codes))
}

// DeactivateDiscount 停用折扣码
// DELETE /api/v1/admin/discounts/:code
func (h *AdminHandler) DeactivateDiscount(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		ginx.BadRequest(c, "code required")
		return
	}

	if err := h.discountService.Deactivate(c.Request.Context(), code); err != nil {
		if errors.Is(err, errorx.ErrDiscountNotFound) {
			ginx.NotFound(c, "discount code not found")
			return
		}
		h.logger.Errorf(c.Request.Context(), "deactivate discount failed: %v", err)
		ginx.InternalError(c, "deactivate discount failed")
		return
	}

	ginx.Success(c, gin.H{"code": code, "active": false})
}
