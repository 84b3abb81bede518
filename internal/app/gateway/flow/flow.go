package flow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

const GatewayName = "flow"

// Flow 支付状态码
const (
	statusPendingPayment = 1 // 待支付
	statusPaid           = 2 // 已支付
	statusRejected       = 3 // 被拒绝
	statusVoided         = 4 // 已作废
)

// Adapter Flow Chile (flow.cl) 适配器。
// Flow 的 webhook 只携带一个签名 token，必须服务端换取支付状态；
// 所有请求参数按 key 字典序拼接后做 HMAC-SHA256 签名，追加为参数 s。
type Adapter struct {
	baseURL   string
	apiKey    string
	apiSecret string
	httpc     *http.Client
	logger    logger.Logger
}

// Config Flow 适配器配置
type Config struct {
	BaseURL   string // https://www.flow.cl/api 或 sandbox
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewAdapter 创建 Flow 适配器
func NewAdapter(cfg *Config, log logger.Logger) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Adapter{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpc:     &http.Client{Timeout: timeout},
		logger:    log,
	}
}

// Name 网关名
func (a *Adapter) Name() string {
	return GatewayName
}

// createResponse payment/create 响应
type createResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	FlowOrder int64  `json:"flowOrder"`
}

// statusResponse payment/getStatus 响应
type statusResponse struct {
	FlowOrder     int64  `json:"flowOrder"`
	CommerceOrder string `json:"commerceOrder"`
	Status        int    `json:"status"`
}

// CreateCheckout 创建 Flow 支付单，返回收银台 URL
func (a *Adapter) CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	// Flow 的 subject 不允许换行且限长 100
	subject := strings.ReplaceAll(req.Description, "\n", " ")
	subject = strings.TrimSpace(strings.ReplaceAll(subject, "\r", ""))
	if len(subject) > 100 {
		subject = subject[:100]
	}

	params := map[string]string{
		"apiKey":          a.apiKey,
		"commerceOrder":   req.OrderID,
		"subject":         subject,
		"amount":          strconv.Itoa(req.AmountCLP),
		"email":           req.CustomerEmail,
		"urlConfirmation": req.CallbackURL,
		"urlReturn":       req.ReturnURL,
	}
	params["s"] = a.sign(params)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/payment/create", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorx.ErrGatewayUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errorx.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: flow payment/create status=%d", errorx.ErrGatewayUnavailable, resp.StatusCode)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("%w: decode flow response: %v", errorx.ErrGatewayUnavailable, err)
	}
	if created.URL == "" || created.Token == "" {
		return nil, fmt.Errorf("%w: flow response missing url/token", errorx.ErrGatewayUnavailable)
	}

	return &gateway.CheckoutSession{
		CheckoutURL:   created.URL + "?token=" + created.Token,
		Token:         created.Token,
		ProviderOrder: strconv.FormatInt(created.FlowOrder, 10),
	}, nil
}

// ParseNotification 解析 Flow webhook。
// Flow 以 POST form 送达一个 token，必须服务端换取支付状态。
// 永不报错：任何失败折叠为 outcome=pending 事件。
func (a *Adapter) ParseNotification(r *http.Request) *etpayment.Event {
	if err := r.ParseForm(); err != nil {
		return etpayment.PendingEvent(GatewayName, "", "parse form: "+err.Error())
	}
	token := r.PostFormValue("token")
	if token == "" {
		token = r.FormValue("token")
	}
	if token == "" {
		return etpayment.PendingEvent(GatewayName, "", "notification missing token")
	}
	return a.QueryStatus(r.Context(), token)
}

// QueryStatus 服务端查询支付状态（token 换状态）。
// 同样永不报错。
func (a *Adapter) QueryStatus(ctx context.Context, token string) *etpayment.Event {
	params := map[string]string{
		"apiKey": a.apiKey,
		"token":  strings.TrimSpace(token),
	}
	params["s"] = a.sign(params)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}

	endpoint := a.baseURL + "/payment/getStatus?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return etpayment.PendingEvent(GatewayName, "", "build getStatus request: "+err.Error())
	}

	resp, err := a.httpc.Do(httpReq)
	if err != nil {
		a.logger.Warnf(ctx, "flow getStatus request failed: %v", err)
		return etpayment.PendingEvent(GatewayName, "", "flow getStatus: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return etpayment.PendingEvent(GatewayName, "", fmt.Sprintf("flow getStatus status=%d", resp.StatusCode))
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return etpayment.PendingEvent(GatewayName, "", "decode getStatus: "+err.Error())
	}

	return &etpayment.Event{
		OrderID:   status.CommerceOrder,
		Outcome:   mapStatus(status.Status),
		RawStatus: strconv.Itoa(status.Status),
		Gateway:   GatewayName,
	}
}

// sign 生成 Flow 签名：参数按 key 字典序拼接为 key1value1key2value2...，
// 以 apiSecret 做 HMAC-SHA256，十六进制输出
func (a *Adapter) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(a.apiSecret))
	mac.Write([]byte(sb.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// mapStatus Flow 状态码映射为规范化结果
func mapStatus(code int) etpayment.Outcome {
	switch code {
	case statusPaid:
		return etpayment.OutcomeApproved
	case statusRejected:
		return etpayment.OutcomeRejected
	case statusVoided:
		return etpayment.OutcomeCancelled
	case statusPendingPayment:
		return etpayment.OutcomePending
	default:
		return etpayment.OutcomePending
	}
}
