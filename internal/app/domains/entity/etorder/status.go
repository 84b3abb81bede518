package etorder

// Status 订单状态（封闭枚举）
// 状态机（由 Dispatch Router 驱动）：
//
//	PENDING → PAID → PROCESSING → COMPLETED
//	PENDING → FAILED | CANCELLED           （终态）
//	PROCESSING → ERROR → PROCESSING        （人工重试路径）
type Status string

const (
	StatusPending    Status = "PENDING"    // 已创建，等待支付确认
	StatusPaid       Status = "PAID"       // 支付确认，CAS 胜出的瞬时状态
	StatusProcessing Status = "PROCESSING" // 流水线执行中
	StatusCompleted  Status = "COMPLETED"  // 流水线完成，产物已生成
	StatusError      Status = "ERROR"      // 流水线失败，可人工重试
	StatusFailed     Status = "FAILED"     // 支付被拒绝（终态）
	StatusCancelled  Status = "CANCELLED"  // 支付被取消（终态）
)

// Terminal 是否终态（终态订单不再被任何事件推进）
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Retryable 是否可重试（仅 ERROR）
func (s Status) Retryable() bool {
	return s == StatusError
}

// Valid 是否合法状态值
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusCompleted,
		StatusError, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
