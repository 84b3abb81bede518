package rpdiscount

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/infra/persistence/po"
	"redaxion/backend/internal/app/pkg/errorx"
)

// DiscountRepositoryImpl 折扣码仓储实现（MySQL）
type DiscountRepositoryImpl struct {
	db *gorm.DB
}

// NewDiscountRepository 创建折扣码仓储实例
func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &DiscountRepositoryImpl{db: db}
}

// Create 创建折扣码（code 统一大写存储）
func (r *DiscountRepositoryImpl) Create(ctx context.Context, code *etorder.DiscountCode) error {
	record := &po.DiscountCode{
		Code:            strings.ToUpper(code.Code),
		DiscountPercent: code.DiscountPercent,
		Active:          code.Active,
		MaxUses:         code.MaxUses,
		UsesCount:       code.UsesCount,
		ExpiresAt:       code.ExpiresAt,
		CreatedAt:       time.Now(),
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// GetByCode 查询折扣码
func (r *DiscountRepositoryImpl) GetByCode(ctx context.Context, code string) (*etorder.DiscountCode, error) {
	var record po.DiscountCode
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.ErrDiscountNotFound
		}
		return nil, err
	}
	return toDomainDiscount(&record), nil
}

// List 查询全部折扣码
func (r *DiscountRepositoryImpl) List(ctx context.Context) ([]*etorder.DiscountCode, error) {
	var records []po.DiscountCode
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	codes := make([]*etorder.DiscountCode, 0, len(records))
	for i := range records {
		codes = append(codes, toDomainDiscount(&records[i]))
	}
	return codes, nil
}

// IncrementUsage 使用次数 +1
func (r *DiscountRepositoryImpl) IncrementUsage(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&po.DiscountCode{}).
		Where("code = ?", strings.ToUpper(code)).
		Update("uses_count", gorm.Expr("uses_count + 1")).Error
}

// Deactivate 停用折扣码
func (r *DiscountRepositoryImpl) Deactivate(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&po.DiscountCode{}).
		Where("code = ?", strings.ToUpper(code)).
		Update("active", false).Error
}

// toDomainDiscount GORM 模型转换为领域对象
func toDomainDiscount(record *po.DiscountCode) *etorder.DiscountCode {
	return &etorder.DiscountCode{
		Code:            record.Code,
		DiscountPercent: record.DiscountPercent,
		Active:          record.Active,
		MaxUses:         record.MaxUses,
		UsesCount:       record.UsesCount,
		ExpiresAt:       record.ExpiresAt,
		CreatedAt:       record.CreatedAt,
	}
}
