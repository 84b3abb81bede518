package svdiscount

import (
	"context"
	"fmt"
	"strings"
	"time"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/repo/rpdiscount"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

// Service 折扣码服务：下单时校验 + 管理端维护
type Service struct {
	discounts rpdiscount.DiscountRepository
	logger    logger.Logger
}

// NewService 创建折扣码服务
func NewService(discounts rpdiscount.DiscountRepository, log logger.Logger) *Service {
	return &Service{discounts: discounts, logger: log}
}

// Validate 校验折扣码可用性，返回可用的折扣码对象。
// 不可用时返回区分原因的 sentinel 错误，便于前端给出准确提示。
func (s *Service) Validate(ctx context.Context, code string) (*etorder.DiscountCode, error) {
	dc, err := s.discounts.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !dc.Active {
		return nil, errorx.ErrDiscountInactive
	}
	if dc.MaxUses != nil && dc.UsesCount >= *dc.MaxUses {
		return nil, errorx.ErrDiscountExhausted
	}
	if dc.ExpiresAt != nil && now.After(*dc.ExpiresAt) {
		return nil, errorx.ErrDiscountExpired
	}
	return dc, nil
}

// MarkUsed checkout 创建成功后计一次使用
func (s *Service) MarkUsed(ctx context.Context, code string) {
	if err := s.discounts.IncrementUsage(ctx, strings.ToUpper(strings.TrimSpace(code))); err != nil {
		// 计数失败不回滚订单，只记日志
		s.logger.Warnf(ctx, "increment discount usage failed, code=%s: %v", code, err)
	}
}

// CreateParams 新折扣码参数
type CreateParams struct {
	Code            string
	DiscountPercent int
	MaxUses         *int
	ExpiresAt       *time.Time
}

// Create 管理端创建折扣码
func (s *Service) Create(ctx context.Context, params *CreateParams) (*etorder.DiscountCode, error) {
	code := strings.ToUpper(strings.TrimSpace(params.Code))
	if code == "" {
		return nil, fmt.Errorf("discount code cannot be empty")
	}
	if params.DiscountPercent < 1 || params.DiscountPercent > 100 {
		return nil, fmt.Errorf("discount percent must be in [1,100], got %d", params.DiscountPercent)
	}

	dc := &etorder.DiscountCode{
		Code:            code,
		DiscountPercent: params.DiscountPercent,
		Active:          true,
		MaxUses:         params.MaxUses,
		ExpiresAt:       params.ExpiresAt,
		CreatedAt:       time.Now(),
	}
	if err := s.discounts.Create(ctx, dc); err != nil {
		return nil, err
	}

	s.logger.Infof(ctx, "discount code created: %s (%d%%)", code, params.DiscountPercent)
	return dc, nil
}

// List 管理端列出全部折扣码
func (s *Service) List(ctx context.Context) ([]*etorder.DiscountCode, error) {
	return s.discounts.List(ctx)
}

// Deactivate 管理端停用折扣码
func (s *Service) Deactivate(ctx context.Context, code string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if err := s.discounts.Deactivate(ctx, normalized); err != nil {
		return err
	}
	s.logger.Infof(ctx, "discount code deactivated: %s", normalized)
	return nil
}
