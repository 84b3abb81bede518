package po

import (
	"time"

	"gorm.io/datatypes"
)

// Order 订单实体（GORM 持久化模型）
type Order struct {
	// 基础字段
	ID            string `gorm:"column:id;primaryKey;type:varchar(64)"`
	CustomerName  string `gorm:"column:customer_name;type:varchar(128)"`
	CustomerEmail string `gorm:"column:customer_email;type:varchar(128);not null;index:idx_email_created"`
	ServiceType   string `gorm:"column:service_type;type:varchar(16);not null"`

	// 流水线输入（JSON envelope）与产物
	PipelineInput datatypes.JSON `gorm:"column:pipeline_input;type:json;not null"`
	Artifacts     datatypes.JSON `gorm:"column:artifacts;type:json"`

	// 状态与幂等标记
	// status 是系统唯一的并发协调点：CAS 通过
	// UPDATE ... WHERE id=? AND status=? 实现
	Status        string `gorm:"column:status;type:varchar(16);not null;default:'PENDING';index:idx_status"`
	EmailSent     bool   `gorm:"column:email_sent;not null;default:false"`
	FailureReason string `gorm:"column:failure_reason;type:varchar(512)"`

	// 支付信息
	Gateway      string `gorm:"column:gateway;type:varchar(32)"`
	PaymentToken string `gorm:"column:payment_token;type:varchar(256);index:idx_payment_token"`
	AmountCLP    int    `gorm:"column:amount_clp;not null"`

	// 时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_email_created"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
