package admin

import (
	"redaxion/backend/internal/app/domains/services/svdiscount"
	"redaxion/backend/internal/app/domains/services/svorder"
	"redaxion/backend/internal/app/pkg/logger"
)

// AdminHandler 管理端 HTTP 处理器（API Key 保护）
type AdminHandler struct {
	orderService    *svorder.Service
	discountService *svdiscount.Service
	logger          logger.Logger
}

// NewAdminHandler 创建管理端处理器实例
func NewAdminHandler(orderService *svorder.Service, discountService *svdiscount.Service, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		orderService:    orderService,
		discountService: discountService,
		logger:          log,
	}
}
