package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/logger"
)

type fakeAdapter struct {
	name  string
	event *etpayment.Event
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	return nil, errors.New("unused")
}

func (a *fakeAdapter) ParseNotification(r *http.Request) *etpayment.Event {
	return a.event
}

func (a *fakeAdapter) QueryStatus(ctx context.Context, token string) *etpayment.Event {
	return a.event
}

type fakeDispatcher struct {
	mu      sync.Mutex
	handled []*etpayment.Event
	err     error
}

func (d *fakeDispatcher) Handle(ctx context.Context, event *etpayment.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.handled = append(d.handled, event)
	return nil
}

func newTestRouter(adapter *fakeAdapter, dispatcher *fakeDispatcher, frontendURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(gateway.NewRegistry(adapter), dispatcher, nil, frontendURL, logger.NopLogger{})

	r := gin.New()
	r.POST("/api/v1/payments/webhook/:gateway", h.Webhook)
	r.GET("/api/v1/payments/return", h.Return)
	r.POST("/api/v1/payments/return", h.Return)
	return r
}

func TestPaymentHandler_Webhook(t *testing.T) {
	t.Run("valid notification dispatches and answers 200", func(t *testing.T) {
		adapter := &fakeAdapter{name: "flow", event: &etpayment.Event{
			OrderID: "o1", Outcome: etpayment.OutcomeApproved, Gateway: "flow",
		}}
		dispatcher := &fakeDispatcher{}
		router := newTestRouter(adapter, dispatcher, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/flow", strings.NewReader("token=tok1"))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if len(dispatcher.handled) != 1 {
			t.Fatalf("expected 1 dispatched event, got %d", len(dispatcher.handled))
		}
	})

	t.Run("malformed notification still answers 200", func(t *testing.T) {
		// 适配器把解析失败折叠为 pending 事件，handler 照常回 200
		adapter := &fakeAdapter{name: "flow", event: etpayment.PendingEvent("flow", "", "bad signature")}
		dispatcher := &fakeDispatcher{}
		router := newTestRouter(adapter, dispatcher, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/flow", strings.NewReader("garbage"))
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for malformed payload, got %d", w.Code)
		}
	})

	t.Run("unknown gateway answers 200", func(t *testing.T) {
		adapter := &fakeAdapter{name: "flow"}
		router := newTestRouter(adapter, &fakeDispatcher{}, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/paypal", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for unknown gateway, got %d", w.Code)
		}
	})

	t.Run("storage failure still answers 200", func(t *testing.T) {
		// 非 2xx 会招来网关重投风暴；丢失的事件由回跳/轮询路径兜底
		adapter := &fakeAdapter{name: "flow", event: &etpayment.Event{
			OrderID: "o1", Outcome: etpayment.OutcomeApproved, Gateway: "flow",
		}}
		dispatcher := &fakeDispatcher{err: errors.New("mysql down")}
		router := newTestRouter(adapter, dispatcher, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook/flow", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("webhook must answer 200 even on internal failure, got %d", w.Code)
		}
	})
}

func TestPaymentHandler_Return(t *testing.T) {
	t.Run("dispatches parsed event and redirects to order page", func(t *testing.T) {
		adapter := &fakeAdapter{name: "flow", event: &etpayment.Event{
			OrderID: "o1", Outcome: etpayment.OutcomeApproved, Gateway: "flow",
		}}
		dispatcher := &fakeDispatcher{}
		router := newTestRouter(adapter, dispatcher, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/return?gateway=flow&order=o1", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "https://front.example.com/pedido/o1" {
			t.Errorf("wrong redirect target: %s", loc)
		}
		if len(dispatcher.handled) != 1 {
			t.Errorf("expected dispatched event, got %d", len(dispatcher.handled))
		}
	})

	t.Run("dispatch failure still redirects", func(t *testing.T) {
		adapter := &fakeAdapter{name: "flow", event: &etpayment.Event{
			OrderID: "o1", Outcome: etpayment.OutcomeApproved, Gateway: "flow",
		}}
		dispatcher := &fakeDispatcher{err: errors.New("mysql down")}
		router := newTestRouter(adapter, dispatcher, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return?gateway=flow&order=o1", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusFound {
			t.Fatalf("return must never surface errors to the browser, got %d", w.Code)
		}
	})

	t.Run("unknown gateway still redirects", func(t *testing.T) {
		adapter := &fakeAdapter{name: "flow"}
		router := newTestRouter(adapter, &fakeDispatcher{}, "https://front.example.com")

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return?gateway=paypal&order=o1", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", w.Code)
		}
	})
}
