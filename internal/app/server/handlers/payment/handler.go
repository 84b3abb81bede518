package payment

import (
	"context"

	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/domains/services/svorder"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/logger"
)

// Dispatcher 支付事件路由（svdispatch.Router 满足该接口）
type Dispatcher interface {
	Handle(ctx context.Context, event *etpayment.Event) error
}

// PaymentHandler 支付回调 HTTP 处理器。
// webhook 与回跳是四条触发路径中的三条，全部汇入 Dispatcher。
type PaymentHandler struct {
	gateways     *gateway.Registry
	dispatcher   Dispatcher
	orderService *svorder.Service
	frontendURL  string
	logger       logger.Logger
}

// NewPaymentHandler 创建支付处理器实例
func NewPaymentHandler(
	gateways *gateway.Registry,
	dispatcher Dispatcher,
	orderService *svorder.Service,
	frontendURL string,
	log logger.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		gateways:     gateways,
		dispatcher:   dispatcher,
		orderService: orderService,
		frontendURL:  frontendURL,
		logger:       log,
	}
}
