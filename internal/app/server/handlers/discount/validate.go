package discount

import (
	"errors"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/domains/apimodel/response"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/ginx"
)

// Validate 校验折扣码是否可用
// GET /api/v1/discounts/:code
func (h *DiscountHandler) Validate(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		ginx.BadRequest(c, "code required")
		return
	}

	dc, err := h.discountService.Validate(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, errorx.ErrDiscountNotFound):
			ginx.NotFound(c, "discount code not found")
		case errors.Is(err, errorx.ErrDiscountInactive),
			errors.Is(err, errorx.ErrDiscountExhausted),
			errors.Is(err, errorx.ErrDiscountExpired):
			ginx.BadRequest(c, err.Error())
		default:
			h.logger.Errorf(c.Request.Context(), "validate discount failed: %v", err)
			ginx.InternalError(c, "validate discount failed")
		}
		return
	}

	ginx.Success(c, response.ValidateDiscountResponse{
		Code:            dc.Code,
		DiscountPercent: dc.DiscountPercent,
	})
}
