package etorder

import (
	"errors"
	"time"
)

// 错误定义
var (
	ErrInvalidOrderID  = errors.New("order ID cannot be empty")
	ErrInvalidEmail    = errors.New("customer email cannot be empty")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrNilArtifacts    = errors.New("artifacts cannot be nil")
	ErrEmailAlreadySet = errors.New("email_sent marker already set")
)

// Order 订单聚合根（领域对象）
// 一个订单对应一件付费生成工作：提交 → 支付 → 流水线 → 交付
type Order struct {
	ID            string         // 订单ID (UUID)
	CustomerName  string         // 客户姓名
	CustomerEmail string         // 客户邮箱（交付目标）
	ServiceType   ServiceType    // 服务类型
	Input         *PipelineInput // 流水线输入（tagged union）
	Status        Status         // 订单状态
	Artifacts     []Artifact     // 产物列表（整体替换，不追加）
	EmailSent     bool           // 交付幂等标记：false→true 至多一次，从不复位
	Gateway       string         // 支付网关名（flow / mercadopago）
	PaymentToken  string         // 网关侧支付凭证（Flow token / MP preference id）
	AmountCLP     int            // 实付金额（CLP，整数）
	FailureReason string         // ERROR/FAILED 时的内部原因（不暴露给客户）
	CreatedAt     time.Time      // 创建时间
	UpdatedAt     time.Time      // 更新时间
}

// Artifact 产物文件描述
type Artifact struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// NewOrder 创建订单（工厂方法）
func NewOrder(id, customerName, customerEmail string, input *PipelineInput, gateway string, amountCLP int) (*Order, error) {
	if id == "" {
		return nil, ErrInvalidOrderID
	}
	if customerEmail == "" {
		return nil, ErrInvalidEmail
	}
	if amountCLP <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Order{
		ID:            id,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		ServiceType:   input.ServiceType,
		Input:         input,
		Status:        StatusPending,
		Artifacts:     []Artifact{},
		EmailSent:     false,
		Gateway:       gateway,
		AmountCLP:     amountCLP,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
