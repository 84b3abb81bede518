package order

import (
	"redaxion/backend/internal/app/domains/services/svorder"
	"redaxion/backend/internal/app/pkg/logger"
)

// maxUploadBytes 提交源文件体积上限（音频/PDF）
const maxUploadBytes = 200 << 20

// OrderHandler 订单 HTTP 处理器
type OrderHandler struct {
	orderService *svorder.Service
	logger       logger.Logger
}

// NewOrderHandler 创建订单处理器实例
func NewOrderHandler(orderService *svorder.Service, log logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       log,
	}
}
