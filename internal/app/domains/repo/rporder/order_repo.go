package rporder

import (
	"context"

	"redaxion/backend/internal/app/domains/entity/etorder"
)

// OrderRepository 订单仓储接口（只定义，不实现）
// 实现在 infra/persistence 层
type OrderRepository interface {
	// Create 创建订单；ID 已存在时返回 errorx.ErrDuplicateOrder
	Create(ctx context.Context, order *etorder.Order) error

	// GetByID 根据ID查询订单；不存在时返回 errorx.ErrOrderNotFound
	GetByID(ctx context.Context, orderID string) (*etorder.Order, error)

	// ListByEmail 按客户邮箱查询订单列表（按创建时间倒序）
	ListByEmail(ctx context.Context, email string) ([]*etorder.Order, error)

	// CompareAndSetStatus 原子地把状态从 expected 写为 next。
	// 返回 false 表示当前存储状态已不是 expected（其他触发路径先到）。
	// 这是系统唯一的并发协调原语，对应一条条件 UPDATE。
	CompareAndSetStatus(ctx context.Context, orderID string, expected, next etorder.Status) (bool, error)

	// UpdatePaymentToken 回填网关支付凭证（checkout 创建成功后）
	UpdatePaymentToken(ctx context.Context, orderID, token string) error

	// UpdateArtifacts 整体替换产物列表（无条件写）。
	// 只在流水线独占持有订单（PROCESSING）之后调用，因此无需 CAS。
	UpdateArtifacts(ctx context.Context, orderID string, artifacts []etorder.Artifact) error

	// MarkEmailSent 置位交付幂等标记（无条件写，只会 false→true）
	MarkEmailSent(ctx context.Context, orderID string) error

	// SetFailureReason 记录内部失败原因（无条件写）
	SetFailureReason(ctx context.Context, orderID, reason string) error

	// ForceStatus 管理员强制改状态（绕过 CAS，调用方必须审计记录）
	ForceStatus(ctx context.Context, orderID string, status etorder.Status) error
}
