package po

import "time"

// DiscountCode 折扣码实体（GORM 持久化模型）
type DiscountCode struct {
	Code            string     `gorm:"column:code;primaryKey;type:varchar(64)"`
	DiscountPercent int        `gorm:"column:discount_percent;not null"`
	Active          bool       `gorm:"column:active;not null;default:true"`
	MaxUses         *int       `gorm:"column:max_uses"`
	UsesCount       int        `gorm:"column:uses_count;not null;default:0"`
	ExpiresAt       *time.Time `gorm:"column:expires_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
}

// TableName 指定表名
func (DiscountCode) TableName() string {
	return "discount_codes"
}
