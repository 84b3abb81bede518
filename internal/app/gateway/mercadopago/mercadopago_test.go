package mercadopago

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/logger"
)

func newTestAdapter(baseURL string, sandbox bool) *Adapter {
	return NewAdapter(&Config{
		BaseURL:     baseURL,
		AccessToken: "token1",
		Sandbox:     sandbox,
	}, logger.NopLogger{})
}

func TestAdapter_CreateCheckout(t *testing.T) {
	var received preferenceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/preferences" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token1" {
			t.Errorf("missing bearer auth")
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp.com/init","sandbox_init_point":"https://sandbox.mp.com/init"}`))
	}))
	defer server.Close()

	t.Run("production uses init_point", func(t *testing.T) {
		a := newTestAdapter(server.URL, false)
		session, err := a.CreateCheckout(context.Background(), &gateway.CheckoutRequest{
			OrderID:       "order-1",
			AmountCLP:     7990,
			Currency:      "CLP",
			Description:   "RedaXion - Generación de prueba",
			CustomerEmail: "ana@example.com",
			ReturnURL:     "https://api.example.com/return",
			CallbackURL:   "https://api.example.com/webhook",
		})
		if err != nil {
			t.Fatalf("CreateCheckout failed: %v", err)
		}
		if session.CheckoutURL != "https://mp.com/init" {
			t.Errorf("wrong checkout url: %s", session.CheckoutURL)
		}
		if session.Token != "order-1" {
			t.Errorf("token must carry the order reference for later reconcile, got %s", session.Token)
		}
		if session.ProviderOrder != "pref-1" {
			t.Errorf("wrong provider order: %s", session.ProviderOrder)
		}
		if received.ExternalReference != "order-1" {
			t.Errorf("external_reference must round-trip the order id, got %q", received.ExternalReference)
		}
		if received.Items[0].UnitPrice != 7990 {
			t.Errorf("wrong unit price: %v", received.Items[0].UnitPrice)
		}
	})

	t.Run("sandbox prefers sandbox_init_point", func(t *testing.T) {
		a := newTestAdapter(server.URL, true)
		session, err := a.CreateCheckout(context.Background(), &gateway.CheckoutRequest{
			OrderID: "order-1", AmountCLP: 100, Currency: "CLP",
		})
		if err != nil {
			t.Fatalf("CreateCheckout failed: %v", err)
		}
		if session.CheckoutURL != "https://sandbox.mp.com/init" {
			t.Errorf("wrong checkout url: %s", session.CheckoutURL)
		}
	})
}

func TestAdapter_ParseNotification(t *testing.T) {
	paymentServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/777" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":777,"status":"approved","external_reference":"order-1"}`))
	}))
	defer paymentServer.Close()

	t.Run("payment topic resolves into approved event", func(t *testing.T) {
		a := newTestAdapter(paymentServer.URL, false)
		req := httptest.NewRequest(http.MethodPost, "/webhook?topic=payment&id=777", nil)

		event := a.ParseNotification(req)
		if event.Outcome != etpayment.OutcomeApproved {
			t.Errorf("expected approved, got %s", event.Outcome)
		}
		if event.OrderID != "order-1" {
			t.Errorf("expected order-1, got %q", event.OrderID)
		}
	})

	t.Run("type/data.id variant is accepted", func(t *testing.T) {
		a := newTestAdapter(paymentServer.URL, false)
		req := httptest.NewRequest(http.MethodPost, "/webhook?type=payment&data.id=777", nil)

		event := a.ParseNotification(req)
		if event.Outcome != etpayment.OutcomeApproved {
			t.Errorf("expected approved, got %s", event.Outcome)
		}
	})

	t.Run("merchant_order topic is ignored", func(t *testing.T) {
		a := newTestAdapter(paymentServer.URL, false)
		req := httptest.NewRequest(http.MethodPost, "/webhook?topic=merchant_order&id=888", nil)

		event := a.ParseNotification(req)
		if event.Outcome != etpayment.OutcomePending {
			t.Errorf("expected pending, got %s", event.Outcome)
		}
		if event.OrderID != "" {
			t.Errorf("ignored topic must not carry an order id")
		}
	})

	t.Run("missing payment id folds into pending", func(t *testing.T) {
		a := newTestAdapter(paymentServer.URL, false)
		req := httptest.NewRequest(http.MethodPost, "/webhook?topic=payment", nil)

		event := a.ParseNotification(req)
		if event.Outcome != etpayment.OutcomePending {
			t.Errorf("expected pending, got %s", event.Outcome)
		}
		if event.ParseError == "" {
			t.Error("expected parse error recorded")
		}
	})

	t.Run("unknown payment folds into pending", func(t *testing.T) {
		a := newTestAdapter(paymentServer.URL, false)
		req := httptest.NewRequest(http.MethodPost, "/webhook?topic=payment&id=999", nil)

		event := a.ParseNotification(req)
		if event.Outcome != etpayment.OutcomePending {
			t.Errorf("expected pending, got %s", event.Outcome)
		}
	})
}

func TestAdapter_QueryStatus(t *testing.T) {
	searchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/search" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token1" {
			t.Errorf("missing bearer auth")
		}
		switch r.URL.Query().Get("external_reference") {
		case "order-1":
			_, _ = w.Write([]byte(`{"results":[{"id":777,"status":"approved","external_reference":"order-1"}]}`))
		default:
			_, _ = w.Write([]byte(`{"results":[]}`))
		}
	}))
	defer searchServer.Close()

	t.Run("reconcile finds payment by order reference", func(t *testing.T) {
		// 对账凭证是订单ID，不是 preference id：/v1/payments/{preferenceID}
		// 永远查不到支付，search?external_reference= 才能命中
		a := newTestAdapter(searchServer.URL, false)

		event := a.QueryStatus(context.Background(), "order-1")
		if event.Outcome != etpayment.OutcomeApproved {
			t.Errorf("expected approved, got %s", event.Outcome)
		}
		if event.OrderID != "order-1" {
			t.Errorf("expected order-1, got %q", event.OrderID)
		}
	})

	t.Run("no payments yet folds into pending with order id", func(t *testing.T) {
		a := newTestAdapter(searchServer.URL, false)

		event := a.QueryStatus(context.Background(), "order-2")
		if event.Outcome != etpayment.OutcomePending {
			t.Errorf("expected pending, got %s", event.Outcome)
		}
		if event.OrderID != "order-2" {
			t.Errorf("pending reconcile must keep the order id, got %q", event.OrderID)
		}
	})

	t.Run("search failure folds into pending", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		a := newTestAdapter(server.URL, false)

		event := a.QueryStatus(context.Background(), "order-1")
		if event.Outcome != etpayment.OutcomePending {
			t.Errorf("expected pending, got %s", event.Outcome)
		}
		if event.ParseError == "" {
			t.Error("expected error recorded")
		}
	})
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		status string
		want   etpayment.Outcome
	}{
		{"approved", etpayment.OutcomeApproved},
		{"rejected", etpayment.OutcomeRejected},
		{"cancelled", etpayment.OutcomeCancelled},
		{"refunded", etpayment.OutcomeCancelled},
		{"charged_back", etpayment.OutcomeCancelled},
		{"pending", etpayment.OutcomePending},
		{"in_process", etpayment.OutcomePending},
		{"whatever", etpayment.OutcomePending},
	}
	for _, tc := range cases {
		if got := mapStatus(tc.status); got != tc.want {
			t.Errorf("mapStatus(%q) = %s, want %s", tc.status, got, tc.want)
		}
	}
}
