package gateway

import (
	"context"
	"net/http"

	"redaxion/backend/internal/app/domains/entity/etpayment"
)

// CheckoutRequest 托管收银台创建参数（网关无关）
type CheckoutRequest struct {
	OrderID       string // 订单ID，必须在通知中原样回传
	AmountCLP     int    // 金额（CLP，最小单位整数）
	Currency      string
	Description   string
	CustomerEmail string
	ReturnURL     string // 支付完成后的浏览器回跳地址
	CallbackURL   string // 网关异步通知（webhook）地址
}

// CheckoutSession 托管收银台会话
type CheckoutSession struct {
	CheckoutURL   string // 客户跳转的支付页 URL
	Token         string // 网关侧凭证（Flow token / MP preference id）
	ProviderOrder string // 网关侧订单号（审计用）
}

// Adapter 支付网关适配器
// CreateCheckout 失败表示网关暂时不可用（订单保持 PENDING，客户可重试）。
// ParseNotification 与 QueryStatus 永不报错：任何失败都规范化为
// outcome=pending 的事件并携带原始错误，保证 webhook handler 总能回 2xx。
type Adapter interface {
	Name() string
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	ParseNotification(r *http.Request) *etpayment.Event
	QueryStatus(ctx context.Context, token string) *etpayment.Event
}

// Registry 网关注册表（按名称查找适配器）
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry 创建网关注册表
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Lookup 按名称查找适配器
func (r *Registry) Lookup(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names 全部已注册网关名
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
