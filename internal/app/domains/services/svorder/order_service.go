package svorder

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/domains/repo/rporder"
	"redaxion/backend/internal/app/domains/services/svnotify"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

// Uploader 对象存储上传（gcs.Client 满足该接口）
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// Dispatcher 支付事件路由（svdispatch.Router 满足该接口）
type Dispatcher interface {
	Handle(ctx context.Context, event *etpayment.Event) error
	Retry(ctx context.Context, orderID string) error
}

// Waiter Smart Wait 订阅（redis.PubSubClient 满足该接口）
type Waiter interface {
	Subscribe(ctx context.Context, channel string, timeout time.Duration) (string, error)
}

// DiscountChecker 折扣码校验与计数（svdiscount.Service 满足该接口）
type DiscountChecker interface {
	Validate(ctx context.Context, code string) (*etorder.DiscountCode, error)
	MarkUsed(ctx context.Context, code string)
}

// Config 下单服务配置
type Config struct {
	BaseURL  string                      // 对外可达的服务根地址（构造回跳/通知 URL）
	Currency string                      // 默认 CLP
	Prices   map[etorder.ServiceType]int // 各服务类型标价（CLP）
}

// Service 订单服务：提交、查询、列表。
// 查询接口同时承担第四条支付触发路径：轮询时主动向网关核实状态。
type Service struct {
	orders     rporder.OrderRepository
	gateways   *gateway.Registry
	uploader   Uploader
	dispatcher Dispatcher
	discounts  DiscountChecker
	waiter     Waiter
	cfg        *Config
	logger     logger.Logger
}

// NewService 创建订单服务
func NewService(
	orders rporder.OrderRepository,
	gateways *gateway.Registry,
	uploader Uploader,
	dispatcher Dispatcher,
	discounts DiscountChecker,
	waiter Waiter,
	cfg *Config,
	log logger.Logger,
) *Service {
	return &Service{
		orders:     orders,
		gateways:   gateways,
		uploader:   uploader,
		dispatcher: dispatcher,
		discounts:  discounts,
		waiter:     waiter,
		cfg:        cfg,
		logger:     log,
	}
}

// FileUpload 随订单提交的源文件（音频或 PDF 讲义）
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitRequest 下单请求
type SubmitRequest struct {
	CustomerName  string
	CustomerEmail string
	ServiceType   etorder.ServiceType
	Gateway       string
	DiscountCode  string

	File      *FileUpload // 源文件；与 SourceURL 二选一
	SourceURL string      // 已上传的源文件 URL

	// 转写/会议参数
	Color    string
	Columns  string
	TextOnly bool
	Language string

	// 试卷参数
	QuestionCount int
	Difficulty    int

	// 会议参数
	Attendees []string
}

// SubmitResult 下单结果
type SubmitResult struct {
	OrderID     string
	CheckoutURL string
	AmountCLP   int
}

// Submit 提交订单：上传源文件 → 建单（PENDING）→ 创建托管收银台 → 回填凭证。
// 收银台创建失败时订单保持 PENDING，客户可换网关重试。
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	adapter, ok := s.gateways.Lookup(req.Gateway)
	if !ok {
		return nil, errorx.ErrUnknownGateway
	}

	basePrice, ok := s.cfg.Prices[req.ServiceType]
	if !ok {
		return nil, errorx.ErrUnknownServiceType
	}

	amount := basePrice
	if req.DiscountCode != "" {
		dc, err := s.discounts.Validate(ctx, req.DiscountCode)
		if err != nil {
			return nil, err
		}
		amount = dc.Apply(amount)
		if amount <= 0 {
			// 100% 折扣也保留最小金额，网关不接受零元单
			amount = 1
		}
	}

	orderID := uuid.NewString()
	ctx = logger.WithOrderID(ctx, orderID)

	sourceURL, err := s.resolveSource(ctx, orderID, req)
	if err != nil {
		return nil, err
	}

	input, err := buildInput(req, sourceURL)
	if err != nil {
		return nil, err
	}

	order, err := etorder.NewOrder(orderID, req.CustomerName, req.CustomerEmail, input, req.Gateway, amount)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order failed: %w", err)
	}

	session, err := adapter.CreateCheckout(ctx, &gateway.CheckoutRequest{
		OrderID:       orderID,
		AmountCLP:     amount,
		Currency:      s.cfg.Currency,
		Description:   describeService(req.ServiceType),
		CustomerEmail: req.CustomerEmail,
		ReturnURL:     fmt.Sprintf("%s/api/v1/payments/return?gateway=%s&order=%s", s.cfg.BaseURL, req.Gateway, orderID),
		CallbackURL:   fmt.Sprintf("%s/api/v1/payments/webhook/%s", s.cfg.BaseURL, req.Gateway),
	})
	if err != nil {
		s.logger.Errorf(ctx, "create checkout failed, gateway=%s: %v", req.Gateway, err)
		return nil, fmt.Errorf("%w: %v", errorx.ErrGatewayUnavailable, err)
	}

	if err := s.orders.UpdatePaymentToken(ctx, orderID, session.Token); err != nil {
		return nil, fmt.Errorf("persist payment token failed: %w", err)
	}

	if req.DiscountCode != "" {
		s.discounts.MarkUsed(ctx, req.DiscountCode)
	}

	s.logger.Infof(ctx, "order submitted, service_type=%s gateway=%s amount=%d", req.ServiceType, req.Gateway, amount)
	return &SubmitResult{OrderID: orderID, CheckoutURL: session.CheckoutURL, AmountCLP: amount}, nil
}

// GetOrder 查询订单，附带轮询触发路径的副作用：
//  1. PENDING/ERROR 且有支付凭证时向网关核实状态并路由事件；
//  2. waitSeconds > 0 且订单仍在途时订阅结果频道等待（Smart Wait）。
//
// 返回最新订单快照，由调用方决定响应形态。
func (s *Service) GetOrder(ctx context.Context, orderID string, waitSeconds int) (*etorder.Order, error) {
	ctx = logger.WithOrderID(ctx, orderID)

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order = s.reconcile(ctx, order)

	if waitSeconds > 0 && inFlight(order.Status) {
		timeout := time.Duration(waitSeconds) * time.Second
		if _, err := s.waiter.Subscribe(ctx, svnotify.ResultChannel(orderID), timeout); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				s.logger.Warnf(ctx, "smart wait subscribe failed: %v", err)
			}
		}
		if fresh, err := s.orders.GetByID(ctx, orderID); err == nil {
			order = fresh
		}
	}

	return order, nil
}

// reconcile 轮询触发路径：向网关核实支付状态并把事件交给路由器。
// ERROR 订单收到 approved 事件会经由路由器走重试；核实失败不影响查询。
func (s *Service) reconcile(ctx context.Context, order *etorder.Order) *etorder.Order {
	needsCheck := order.Status == etorder.StatusPending || order.Status == etorder.StatusError
	if !needsCheck || order.PaymentToken == "" {
		return order
	}

	adapter, ok := s.gateways.Lookup(order.Gateway)
	if !ok {
		s.logger.Warnf(ctx, "order references unknown gateway %q, skipping reconcile", order.Gateway)
		return order
	}

	event := adapter.QueryStatus(ctx, order.PaymentToken)
	if event.OrderID == "" {
		event.OrderID = order.ID
	}
	if err := s.dispatcher.Handle(ctx, event); err != nil {
		s.logger.Errorf(ctx, "reconcile dispatch failed: %v", err)
		return order
	}

	if fresh, err := s.orders.GetByID(ctx, order.ID); err == nil {
		return fresh
	}
	return order
}

// Retry 显式重试 ERROR 订单（面板/管理端入口）
func (s *Service) Retry(ctx context.Context, orderID string) error {
	return s.dispatcher.Retry(ctx, orderID)
}

// ListByEmail 按客户邮箱查询订单
func (s *Service) ListByEmail(ctx context.Context, email string) ([]*etorder.Order, error) {
	return s.orders.ListByEmail(ctx, email)
}

// ForceStatus 管理员强制改状态（绕过 CAS），操作人落审计日志
func (s *Service) ForceStatus(ctx context.Context, orderID string, status etorder.Status, operator string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	ctx = logger.WithOrderID(ctx, orderID)

	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return err
	}
	if err := s.orders.ForceStatus(ctx, orderID, status); err != nil {
		return err
	}

	s.logger.Warnf(ctx, "status forced to %s by operator=%s", status, operator)
	return nil
}

// inFlight 仍在途（Smart Wait 值得等待）的状态
func inFlight(status etorder.Status) bool {
	return status == etorder.StatusPaid || status == etorder.StatusProcessing
}

// resolveSource 确定流水线源文件 URL：有上传文件则入对象存储
func (s *Service) resolveSource(ctx context.Context, orderID string, req *SubmitRequest) (string, error) {
	if req.File != nil {
		objectPath := fmt.Sprintf("orders/%s/%s", orderID, path.Base(req.File.Filename))
		url, err := s.uploader.Upload(ctx, objectPath, req.File.Data, req.File.ContentType)
		if err != nil {
			return "", fmt.Errorf("upload source file failed: %w", err)
		}
		return url, nil
	}
	if req.SourceURL == "" {
		return "", fmt.Errorf("either a source file or source_url is required")
	}
	return req.SourceURL, nil
}

// buildInput 根据服务类型组装流水线输入 union
func buildInput(req *SubmitRequest, sourceURL string) (*etorder.PipelineInput, error) {
	input := &etorder.PipelineInput{ServiceType: req.ServiceType}
	switch req.ServiceType {
	case etorder.ServiceTranscription:
		input.Transcription = &etorder.TranscriptionInput{
			AudioURL: sourceURL,
			Color:    req.Color,
			Columns:  req.Columns,
			TextOnly: req.TextOnly,
			Language: req.Language,
		}
	case etorder.ServiceExam:
		input.Exam = &etorder.ExamInput{
			DocumentURL:   sourceURL,
			QuestionCount: req.QuestionCount,
			Difficulty:    req.Difficulty,
			Color:         req.Color,
		}
	case etorder.ServiceMeeting:
		input.Meeting = &etorder.MeetingInput{
			AudioURL:  sourceURL,
			Attendees: req.Attendees,
			Language:  req.Language,
		}
	default:
		return nil, errorx.ErrUnknownServiceType
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}

// describeService 收银台账单描述
func describeService(serviceType etorder.ServiceType) string {
	switch serviceType {
	case etorder.ServiceTranscription:
		return "RedaXion - Transcripción de audio"
	case etorder.ServiceExam:
		return "RedaXion - Generación de prueba"
	case etorder.ServiceMeeting:
		return "RedaXion - Acta de reunión"
	default:
		return "RedaXion - Servicio"
	}
}
