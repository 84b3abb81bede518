package rpdiscount

import (
	"context"

	"redaxion/backend/internal/app/domains/entity/etorder"
)

// DiscountRepository 折扣码仓储接口
type DiscountRepository interface {
	// Create 创建折扣码；code 已存在时返回错误
	Create(ctx context.Context, code *etorder.DiscountCode) error

	// GetByCode 查询折扣码；不存在时返回 errorx.ErrDiscountNotFound
	GetByCode(ctx context.Context, code string) (*etorder.DiscountCode, error)

	// List 查询全部折扣码（管理端）
	List(ctx context.Context) ([]*etorder.DiscountCode, error)

	// IncrementUsage 使用次数 +1（checkout 创建成功后调用）
	IncrementUsage(ctx context.Context, code string) error

	// Deactivate 停用折扣码
	Deactivate(ctx context.Context, code string) error
}
