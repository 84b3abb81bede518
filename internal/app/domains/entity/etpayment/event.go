package etpayment

// Outcome 支付事件结果（网关无关的规范化枚举）
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCancelled Outcome = "cancelled"
	OutcomePending   Outcome = "pending"
)

// Event 规范化支付事件
// Dispatch Router 只认识这个结构，从不接触网关原始报文。
// 适配器的 ParseNotification/QueryStatus 永不报错：任何解析或验签失败
// 都折叠为 OutcomePending 并把原始错误记录在 ParseError 中，由调用方
// 照常回 200，不触发任何状态迁移。
type Event struct {
	OrderID    string  // 订单ID（解析失败时可能为空）
	Outcome    Outcome // 规范化结果
	RawStatus  string  // 网关原始状态（审计用）
	Gateway    string  // 事件来源网关名
	ParseError string  // 解析/验签失败时的原始错误
}

// PendingEvent 构造解析失败时的安全兜底事件
func PendingEvent(gateway, orderID, parseErr string) *Event {
	return &Event{
		OrderID:    orderID,
		Outcome:    OutcomePending,
		Gateway:    gateway,
		ParseError: parseErr,
	}
}
