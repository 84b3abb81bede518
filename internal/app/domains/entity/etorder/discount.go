package etorder

import "time"

// DiscountCode 折扣码（领域对象）
type DiscountCode struct {
	Code            string
	DiscountPercent int
	Active          bool
	MaxUses         *int // nil 表示不限次数
	UsesCount       int
	ExpiresAt       *time.Time // nil 表示不过期
	CreatedAt       time.Time
}

// Usable 折扣码当前是否可用
func (d *DiscountCode) Usable(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.MaxUses != nil && d.UsesCount >= *d.MaxUses {
		return false
	}
	if d.ExpiresAt != nil && now.After(*d.ExpiresAt) {
		return false
	}
	return true
}

// Apply 对金额应用折扣（向下取整）
func (d *DiscountCode) Apply(amountCLP int) int {
	discounted := amountCLP * (100 - d.DiscountPercent) / 100
	if discounted < 0 {
		return 0
	}
	return discounted
}
