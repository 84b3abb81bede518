package response

import (
	"time"

	"redaxion/backend/internal/app/domains/entity/etorder"
)

// DiscountResponse 折扣码响应（管理端）
type DiscountResponse struct {
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	Active          bool       `json:"active"`
	MaxUses         *int       `json:"max_uses,omitempty"`
	UsesCount       int        `json:"uses_count"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ValidateDiscountResponse 折扣码公开校验响应（只暴露折扣比例）
type ValidateDiscountResponse struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
}

// FromDiscountEntity 领域对象 → 响应模型
func FromDiscountEntity(dc *etorder.DiscountCode) *DiscountResponse {
	return &DiscountResponse{
		Code:            dc.Code,
		DiscountPercent: dc.DiscountPercent,
		Active:          dc.Active,
		MaxUses:         dc.MaxUses,
		UsesCount:       dc.UsesCount,
		ExpiresAt:       dc.ExpiresAt,
		CreatedAt:       dc.CreatedAt,
	}
}

// FromDiscountEntities 批量转换
func FromDiscountEntities(codes []*etorder.DiscountCode) []*DiscountResponse {
	out := make([]*DiscountResponse, 0, len(codes))
	for _, dc := range codes {
		out = append(out, FromDiscountEntity(dc))
	}
	return out
}
