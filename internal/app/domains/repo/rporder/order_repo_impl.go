package rporder

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/infra/persistence/po"
	"redaxion/backend/internal/app/pkg/errorx"
)

// OrderRepositoryImpl 订单仓储实现（MySQL）
type OrderRepositoryImpl struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

// Create 创建订单，将领域对象转换为 GORM 模型后存储
func (r *OrderRepositoryImpl) Create(ctx context.Context, order *etorder.Order) error {
	record, err := r.toGormModel(order)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "Duplicate entry") {
			return errorx.ErrDuplicateOrder
		}
		return err
	}
	return nil
}

// GetByID 根据ID查询订单，将 GORM 模型转换为领域对象
func (r *OrderRepositoryImpl) GetByID(ctx context.Context, orderID string) (*etorder.Order, error) {
	var record po.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.ErrOrderNotFound
		}
		return nil, err
	}
	return r.toDomainModel(&record)
}

// ListByEmail 按客户邮箱查询订单列表
func (r *OrderRepositoryImpl) ListByEmail(ctx context.Context, email string) ([]*etorder.Order, error) {
	var records []po.Order
	err := r.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*etorder.Order, 0, len(records))
	for i := range records {
		order, err := r.toDomainModel(&records[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// CompareAndSetStatus 一条条件 UPDATE 实现的原子状态迁移。
// MySQL 对同一行的 UPDATE 串行化，RowsAffected==1 即本次调用胜出。
func (r *OrderRepositoryImpl) CompareAndSetStatus(ctx context.Context, orderID string, expected, next etorder.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&po.Order{}).
		Where("id = ? AND status = ?", orderID, string(expected)).
		Updates(map[string]interface{}{
			"status":     string(next),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdatePaymentToken 回填网关支付凭证
func (r *OrderRepositoryImpl) UpdatePaymentToken(ctx context.Context, orderID, token string) error {
	return r.db.WithContext(ctx).
		Model(&po.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"payment_token": token,
			"updated_at":    time.Now(),
		}).Error
}

// UpdateArtifacts 整体替换产物列表
func (r *OrderRepositoryImpl) UpdateArtifacts(ctx context.Context, orderID string, artifacts []etorder.Artifact) error {
	if artifacts == nil {
		artifacts = []etorder.Artifact{}
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&po.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"artifacts":  artifactsJSON,
			"updated_at": time.Now(),
		}).Error
}

// MarkEmailSent 置位交付幂等标记
func (r *OrderRepositoryImpl) MarkEmailSent(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).
		Model(&po.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"email_sent": true,
			"updated_at": time.Now(),
		}).Error
}

// SetFailureReason 记录内部失败原因
func (r *OrderRepositoryImpl) SetFailureReason(ctx context.Context, orderID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&po.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"failure_reason": reason,
			"updated_at":     time.Now(),
		}).Error
}

// ForceStatus 管理员强制改状态（绕过 CAS）
func (r *OrderRepositoryImpl) ForceStatus(ctx context.Context, orderID string, status etorder.Status) error {
	return r.db.WithContext(ctx).
		Model(&po.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		}).Error
}

// toGormModel 领域对象转换为 GORM 模型
func (r *OrderRepositoryImpl) toGormModel(order *etorder.Order) (*po.Order, error) {
	inputJSON, err := json.Marshal(order.Input)
	if err != nil {
		return nil, err
	}
	artifactsJSON, err := json.Marshal(order.Artifacts)
	if err != nil {
		return nil, err
	}

	return &po.Order{
		ID:            order.ID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		ServiceType:   string(order.ServiceType),
		PipelineInput: inputJSON,
		Artifacts:     artifactsJSON,
		Status:        string(order.Status),
		EmailSent:     order.EmailSent,
		FailureReason: order.FailureReason,
		Gateway:       order.Gateway,
		PaymentToken:  order.PaymentToken,
		AmountCLP:     order.AmountCLP,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}, nil
}

// toDomainModel GORM 模型转换为领域对象
func (r *OrderRepositoryImpl) toDomainModel(record *po.Order) (*etorder.Order, error) {
	input, err := etorder.DecodePipelineInput(record.PipelineInput)
	if err != nil {
		// 输入损坏的订单仍然可查（Router 会将其置为 ERROR），
		// 因此这里不让单条坏记录拖垮整个查询。
		input = &etorder.PipelineInput{ServiceType: etorder.ServiceType(record.ServiceType)}
	}

	artifacts := []etorder.Artifact{}
	if len(record.Artifacts) > 0 {
		if err := json.Unmarshal(record.Artifacts, &artifacts); err != nil {
			return nil, err
		}
	}

	return &etorder.Order{
		ID:            record.ID,
		CustomerName:  record.CustomerName,
		CustomerEmail: record.CustomerEmail,
		ServiceType:   etorder.ServiceType(record.ServiceType),
		Input:         input,
		Status:        etorder.Status(record.Status),
		Artifacts:     artifacts,
		EmailSent:     record.EmailSent,
		FailureReason: record.FailureReason,
		Gateway:       record.Gateway,
		PaymentToken:  record.PaymentToken,
		AmountCLP:     record.AmountCLP,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}, nil
}
