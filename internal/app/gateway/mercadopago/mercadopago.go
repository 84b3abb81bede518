package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

const GatewayName = "mercadopago"

// Adapter Mercado Pago 适配器。
// 创建 preference 时通过 external_reference 携带订单ID，通知中原样回传；
// webhook 只携带 payment id，支付详情必须服务端回查 /v1/payments/{id}。
type Adapter struct {
	baseURL     string
	accessToken string
	sandbox     bool
	httpc       *http.Client
	logger      logger.Logger
}

// Config Mercado Pago 适配器配置
type Config struct {
	BaseURL     string // https://api.mercadopago.com
	AccessToken string
	Sandbox     bool
	Timeout     time.Duration
}

// NewAdapter 创建 Mercado Pago 适配器
func NewAdapter(cfg *Config, log logger.Logger) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		sandbox:     cfg.Sandbox,
		httpc:       &http.Client{Timeout: timeout},
		logger:      log,
	}
}

// Name 网关名
func (a *Adapter) Name() string {
	return GatewayName
}

// preferenceRequest /checkout/preferences 请求体
type preferenceRequest struct {
	Items             []preferenceItem `json:"items"`
	Payer             preferencePayer  `json:"payer"`
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url"`
	BackURLs          backURLs         `json:"back_urls"`
	AutoReturn        string           `json:"auto_return"`
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
	UnitPrice  float64 `json:"unit_price"`
}

type preferencePayer struct {
	Email string `json:"email"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// preferenceResponse /checkout/preferences 响应
type preferenceResponse struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// paymentResponse /v1/payments/{id} 响应
type paymentResponse struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	StatusDetail      string `json:"status_detail"`
	ExternalReference string `json:"external_reference"`
}

// searchResponse /v1/payments/search 响应
type searchResponse struct {
	Results []paymentResponse `json:"results"`
}

// CreateCheckout 创建支付 preference，返回收银台 URL
func (a *Adapter) CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	body := preferenceRequest{
		Items: []preferenceItem{{
			ID:         "redaxion-service",
			Title:      req.Description,
			Quantity:   1,
			CurrencyID: req.Currency,
			UnitPrice:  float64(req.AmountCLP),
		}},
		Payer:             preferencePayer{Email: req.CustomerEmail},
		ExternalReference: req.OrderID,
		NotificationURL:   req.CallbackURL,
		BackURLs: backURLs{
			Success: req.ReturnURL,
			Failure: req.ReturnURL,
			Pending: req.ReturnURL,
		},
		AutoReturn: "approved",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal preference: %v", errorx.ErrGatewayUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorx.ErrGatewayUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorx.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: mp preferences status=%d", errorx.ErrGatewayUnavailable, resp.StatusCode)
	}

	var pref preferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pref); err != nil {
		return nil, fmt.Errorf("%w: decode mp response: %v", errorx.ErrGatewayUnavailable, err)
	}

	// 沙箱环境优先使用 sandbox_init_point
	checkoutURL := pref.InitPoint
	if a.sandbox && pref.SandboxInitPoint != "" {
		checkoutURL = pref.SandboxInitPoint
	}
	if checkoutURL == "" {
		return nil, fmt.Errorf("%w: mp response missing init_point", errorx.ErrGatewayUnavailable)
	}

	// Token 存 external_reference（即订单ID）：preference id 无法反查支付，
	// 对账路径要用 /v1/payments/search?external_reference= 才能命中
	return &gateway.CheckoutSession{
		CheckoutURL:   checkoutURL,
		Token:         req.OrderID,
		ProviderOrder: pref.ID,
	}, nil
}

// ParseNotification 解析 Mercado Pago webhook。
// MP 以 query 参数送达 topic（或 type）与 payment id，
// 支付详情必须服务端回查。永不报错。
func (a *Adapter) ParseNotification(r *http.Request) *etpayment.Event {
	query := r.URL.Query()

	topic := query.Get("topic")
	if topic == "" {
		topic = query.Get("type")
	}
	if topic != "payment" {
		// merchant_order 等其他 topic 不触发状态迁移
		return etpayment.PendingEvent(GatewayName, "", "ignored topic: "+topic)
	}

	paymentID := query.Get("id")
	if paymentID == "" {
		paymentID = query.Get("data.id")
	}
	if paymentID == "" {
		return etpayment.PendingEvent(GatewayName, "", "notification missing payment id")
	}

	return a.fetchPayment(r.Context(), paymentID)
}

// QueryStatus 服务端对账：按 external_reference 反查该订单最近一笔支付。
// 凭证即下单时写入 preference 的订单ID。永不报错。
func (a *Adapter) QueryStatus(ctx context.Context, token string) *etpayment.Event {
	ref := strings.TrimSpace(token)
	searchURL := fmt.Sprintf("%s/v1/payments/search?sort=date_created&criteria=desc&external_reference=%s",
		a.baseURL, url.QueryEscape(ref))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return etpayment.PendingEvent(GatewayName, ref, "build payments search: "+err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		a.logger.Warnf(ctx, "mp payment search failed: %v", err)
		return etpayment.PendingEvent(GatewayName, ref, "mp payments search: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return etpayment.PendingEvent(GatewayName, ref, fmt.Sprintf("mp payments search status=%d", resp.StatusCode))
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return etpayment.PendingEvent(GatewayName, ref, "decode mp search: "+err.Error())
	}
	if len(search.Results) == 0 {
		// 买家尚未发起支付：订单维持 PENDING
		return etpayment.PendingEvent(GatewayName, ref, "no payments for reference")
	}

	payment := search.Results[0]
	return &etpayment.Event{
		OrderID:   payment.ExternalReference,
		Outcome:   mapStatus(payment.Status),
		RawStatus: payment.Status,
		Gateway:   GatewayName,
	}
}

// fetchPayment webhook 回查 /v1/payments/{id}。永不报错。
func (a *Adapter) fetchPayment(ctx context.Context, paymentID string) *etpayment.Event {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/v1/payments/"+strings.TrimSpace(paymentID), nil)
	if err != nil {
		return etpayment.PendingEvent(GatewayName, "", "build payments request: "+err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		a.logger.Warnf(ctx, "mp payment lookup failed: %v", err)
		return etpayment.PendingEvent(GatewayName, "", "mp payments: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return etpayment.PendingEvent(GatewayName, "", fmt.Sprintf("mp payments status=%d", resp.StatusCode))
	}

	var payment paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return etpayment.PendingEvent(GatewayName, "", "decode mp payment: "+err.Error())
	}

	return &etpayment.Event{
		OrderID:   payment.ExternalReference,
		Outcome:   mapStatus(payment.Status),
		RawStatus: payment.Status,
		Gateway:   GatewayName,
	}
}

// mapStatus MP 支付状态映射为规范化结果
func mapStatus(status string) etpayment.Outcome {
	switch status {
	case "approved":
		return etpayment.OutcomeApproved
	case "rejected":
		return etpayment.OutcomeRejected
	case "cancelled", "refunded", "charged_back":
		return etpayment.OutcomeCancelled
	case "pending", "in_process", "in_mediation", "authorized":
		return etpayment.OutcomePending
	default:
		return etpayment.OutcomePending
	}
}
