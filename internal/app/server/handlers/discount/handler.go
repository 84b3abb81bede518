package discount

import (
	"redaxion/backend/internal/app/domains/services/svdiscount"
	"redaxion/backend/internal/app/pkg/logger"
)

// DiscountHandler 折扣码公开接口
type DiscountHandler struct {
	discountService *svdiscount.Service
	logger          logger.Logger
}

// NewDiscountHandler 创建折扣码 Handler
func NewDiscountHandler(discountService *svdiscount.Service, log logger.Logger) *DiscountHandler {
	return &DiscountHandler{
		discountService: discountService,
		logger:          log,
	}
}
