package svorder

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/gateway"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*etorder.Order
}

func newMemOrderRepo(orders ...*etorder.Order) *memOrderRepo {
	m := &memOrderRepo{orders: make(map[string]*etorder.Order)}
	for _, o := range orders {
		clone := *o
		m.orders[o.ID] = &clone
	}
	return m
}

func (m *memOrderRepo) Create(ctx context.Context, order *etorder.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return errorx.ErrDuplicateOrder
	}
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *memOrderRepo) GetByID(ctx context.Context, orderID string) (*etorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, errorx.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (m *memOrderRepo) ListByEmail(ctx context.Context, email string) ([]*etorder.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*etorder.Order
	for _, o := range m.orders {
		if o.CustomerEmail == email {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memOrderRepo) CompareAndSetStatus(ctx context.Context, orderID string, expected, next etorder.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != expected {
		return false, nil
	}
	o.Status = next
	return true, nil
}

func (m *memOrderRepo) UpdatePaymentToken(ctx context.Context, orderID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		o.PaymentToken = token
	}
	return nil
}

func (m *memOrderRepo) UpdateArtifacts(ctx context.Context, orderID string, artifacts []etorder.Artifact) error {
	return nil
}

func (m *memOrderRepo) MarkEmailSent(ctx context.Context, orderID string) error { return nil }

func (m *memOrderRepo) SetFailureReason(ctx context.Context, orderID, reason string) error {
	return nil
}

func (m *memOrderRepo) ForceStatus(ctx context.Context, orderID string, status etorder.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return errorx.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (m *memOrderRepo) single(t *testing.T) *etorder.Order {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.orders) != 1 {
		t.Fatalf("expected exactly 1 order, got %d", len(m.orders))
	}
	for _, o := range m.orders {
		clone := *o
		return &clone
	}
	return nil
}

// fakeAdapter 可编程网关适配器
type fakeAdapter struct {
	mu          sync.Mutex
	name        string
	session     *gateway.CheckoutSession
	createErr   error
	statusEvent *etpayment.Event
	queryCalls  int
	lastReq     *gateway.CheckoutRequest
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastReq = req
	if a.createErr != nil {
		return nil, a.createErr
	}
	return a.session, nil
}

func (a *fakeAdapter) ParseNotification(r *http.Request) *etpayment.Event {
	return etpayment.PendingEvent(a.name, "", "not implemented")
}

func (a *fakeAdapter) QueryStatus(ctx context.Context, token string) *etpayment.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queryCalls++
	return a.statusEvent
}

func (a *fakeAdapter) queryCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queryCalls
}

type fakeUploader struct {
	mu    sync.Mutex
	calls int
	url   string
}

func (u *fakeUploader) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls++
	return u.url, nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	handled []*etpayment.Event
	retried []string
}

func (d *fakeDispatcher) Handle(ctx context.Context, event *etpayment.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handled = append(d.handled, event)
	return nil
}

func (d *fakeDispatcher) Retry(ctx context.Context, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retried = append(d.retried, orderID)
	return nil
}

func (d *fakeDispatcher) handledCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handled)
}

type fakeDiscounts struct {
	code   *etorder.DiscountCode
	err    error
	usedMu sync.Mutex
	used   []string
}

func (f *fakeDiscounts) Validate(ctx context.Context, code string) (*etorder.DiscountCode, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.code, nil
}

func (f *fakeDiscounts) MarkUsed(ctx context.Context, code string) {
	f.usedMu.Lock()
	defer f.usedMu.Unlock()
	f.used = append(f.used, code)
}

type fakeWaiter struct {
	mu    sync.Mutex
	calls int
}

func (w *fakeWaiter) Subscribe(ctx context.Context, channel string, timeout time.Duration) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return "", context.DeadlineExceeded
}

func testConfig() *Config {
	return &Config{
		BaseURL:  "https://api.redaxion.example.com",
		Currency: "CLP",
		Prices: map[etorder.ServiceType]int{
			etorder.ServiceTranscription: 5990,
			etorder.ServiceExam:          7990,
			etorder.ServiceMeeting:       5990,
		},
	}
}

func newService(repo *memOrderRepo, adapter *fakeAdapter, uploader *fakeUploader, dispatcher *fakeDispatcher, discounts *fakeDiscounts, waiter *fakeWaiter) *Service {
	return NewService(repo, gateway.NewRegistry(adapter), uploader, dispatcher, discounts, waiter, testConfig(), logger.NopLogger{})
}

func submitReq() *SubmitRequest {
	return &SubmitRequest{
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		ServiceType:   etorder.ServiceTranscription,
		Gateway:       "flow",
		SourceURL:     "https://files.example.com/audio.mp3",
	}
}

func TestService_Submit(t *testing.T) {
	t.Run("creates pending order with checkout session", func(t *testing.T) {
		repo := newMemOrderRepo()
		adapter := &fakeAdapter{name: "flow", session: &gateway.CheckoutSession{
			CheckoutURL: "https://flow.cl/pay?token=tok1", Token: "tok1",
		}}
		svc := newService(repo, adapter, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})

		result, err := svc.Submit(context.Background(), submitReq())
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.CheckoutURL != "https://flow.cl/pay?token=tok1" {
			t.Errorf("wrong checkout url: %s", result.CheckoutURL)
		}
		if result.AmountCLP != 5990 {
			t.Errorf("expected full price 5990, got %d", result.AmountCLP)
		}

		order := repo.single(t)
		if order.Status != etorder.StatusPending {
			t.Errorf("expected PENDING, got %s", order.Status)
		}
		if order.PaymentToken != "tok1" {
			t.Errorf("payment token not persisted: %q", order.PaymentToken)
		}
		if adapter.lastReq.OrderID != order.ID {
			t.Errorf("checkout must carry the order id")
		}
	})

	t.Run("applies discount and counts usage", func(t *testing.T) {
		repo := newMemOrderRepo()
		adapter := &fakeAdapter{name: "flow", session: &gateway.CheckoutSession{Token: "tok1"}}
		discounts := &fakeDiscounts{code: &etorder.DiscountCode{Code: "PROMO20", DiscountPercent: 20, Active: true}}
		svc := newService(repo, adapter, &fakeUploader{}, &fakeDispatcher{}, discounts, &fakeWaiter{})

		req := submitReq()
		req.DiscountCode = "PROMO20"
		result, err := svc.Submit(context.Background(), req)
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.AmountCLP != 4792 {
			t.Errorf("expected 4792 after 20%% discount, got %d", result.AmountCLP)
		}
		if len(discounts.used) != 1 {
			t.Errorf("expected discount usage recorded")
		}
	})

	t.Run("rejects invalid discount", func(t *testing.T) {
		repo := newMemOrderRepo()
		adapter := &fakeAdapter{name: "flow", session: &gateway.CheckoutSession{Token: "tok1"}}
		discounts := &fakeDiscounts{err: errorx.ErrDiscountExpired}
		svc := newService(repo, adapter, &fakeUploader{}, &fakeDispatcher{}, discounts, &fakeWaiter{})

		req := submitReq()
		req.DiscountCode = "OLD"
		if _, err := svc.Submit(context.Background(), req); !errors.Is(err, errorx.ErrDiscountExpired) {
			t.Fatalf("expected ErrDiscountExpired, got %v", err)
		}
	})

	t.Run("unknown gateway", func(t *testing.T) {
		adapter := &fakeAdapter{name: "flow"}
		svc := newService(newMemOrderRepo(), adapter, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})

		req := submitReq()
		req.Gateway = "paypal"
		if _, err := svc.Submit(context.Background(), req); !errors.Is(err, errorx.ErrUnknownGateway) {
			t.Fatalf("expected ErrUnknownGateway, got %v", err)
		}
	})

	t.Run("gateway unavailable keeps order pending", func(t *testing.T) {
		repo := newMemOrderRepo()
		adapter := &fakeAdapter{name: "flow", createErr: errors.New("flow 503")}
		svc := newService(repo, adapter, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})

		_, err := svc.Submit(context.Background(), submitReq())
		if !errors.Is(err, errorx.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
		}

		order := repo.single(t)
		if order.Status != etorder.StatusPending {
			t.Errorf("order must stay PENDING, got %s", order.Status)
		}
	})

	t.Run("uploads source file to storage", func(t *testing.T) {
		repo := newMemOrderRepo()
		adapter := &fakeAdapter{name: "flow", session: &gateway.CheckoutSession{Token: "tok1"}}
		uploader := &fakeUploader{url: "https://storage.example.com/orders/x/audio.mp3"}
		svc := newService(repo, adapter, uploader, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})

		req := submitReq()
		req.SourceURL = ""
		req.File = &FileUpload{Filename: "audio.mp3", ContentType: "audio/mpeg", Data: []byte("riff")}
		if _, err := svc.Submit(context.Background(), req); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		if uploader.calls != 1 {
			t.Errorf("expected 1 upload, got %d", uploader.calls)
		}
		order := repo.single(t)
		if order.Input.Transcription.AudioURL != uploader.url {
			t.Errorf("audio url must point at uploaded object, got %s", order.Input.Transcription.AudioURL)
		}
	})
}

func TestService_GetOrder(t *testing.T) {
	pendingWithToken := func() *etorder.Order {
		o, _ := etorder.NewOrder("o1", "Ana", "ana@example.com", &etorder.PipelineInput{
			ServiceType:   etorder.ServiceTranscription,
			Transcription: &etorder.TranscriptionInput{AudioURL: "https://files.example.com/a.mp3"},
		}, "flow", 5990)
		o.PaymentToken = "tok1"
		return o
	}

	t.Run("pending order reconciles against gateway", func(t *testing.T) {
		repo := newMemOrderRepo(pendingWithToken())
		adapter := &fakeAdapter{name: "flow", statusEvent: &etpayment.Event{
			OrderID: "o1", Outcome: etpayment.OutcomeApproved, Gateway: "flow",
		}}
		dispatcher := &fakeDispatcher{}
		svc := newService(repo, adapter, &fakeUploader{}, dispatcher, &fakeDiscounts{}, &fakeWaiter{})

		if _, err := svc.GetOrder(context.Background(), "o1", 0); err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if adapter.queryCount() != 1 {
			t.Errorf("expected gateway query, got %d", adapter.queryCount())
		}
		if dispatcher.handledCount() != 1 {
			t.Errorf("expected dispatched event, got %d", dispatcher.handledCount())
		}
	})

	t.Run("fills order id when gateway omits it", func(t *testing.T) {
		repo := newMemOrderRepo(pendingWithToken())
		adapter := &fakeAdapter{name: "flow", statusEvent: etpayment.PendingEvent("flow", "", "flow 500")}
		dispatcher := &fakeDispatcher{}
		svc := newService(repo, adapter, &fakeUploader{}, dispatcher, &fakeDiscounts{}, &fakeWaiter{})

		if _, err := svc.GetOrder(context.Background(), "o1", 0); err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if dispatcher.handled[0].OrderID != "o1" {
			t.Errorf("dispatched event must carry the order id")
		}
	})

	t.Run("completed order skips gateway", func(t *testing.T) {
		o := pendingWithToken()
		o.Status = etorder.StatusCompleted
		repo := newMemOrderRepo(o)
		adapter := &fakeAdapter{name: "flow"}
		svc := newService(repo, adapter, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})

		if _, err := svc.GetOrder(context.Background(), "o1", 0); err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if adapter.queryCount() != 0 {
			t.Errorf("no gateway query expected for terminal order")
		}
	})

	t.Run("smart wait subscribes while processing", func(t *testing.T) {
		o := pendingWithToken()
		o.Status = etorder.StatusProcessing
		repo := newMemOrderRepo(o)
		adapter := &fakeAdapter{name: "flow"}
		waiter := &fakeWaiter{}
		svc := newService(repo, adapter, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, waiter)

		if _, err := svc.GetOrder(context.Background(), "o1", 1); err != nil {
			t.Fatalf("GetOrder failed: %v", err)
		}
		if waiter.calls != 1 {
			t.Errorf("expected smart wait subscription, got %d", waiter.calls)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		svc := newService(newMemOrderRepo(), &fakeAdapter{name: "flow"}, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})
		if _, err := svc.GetOrder(context.Background(), "missing", 0); !errors.Is(err, errorx.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})
}

func TestService_ForceStatus(t *testing.T) {
	o, _ := etorder.NewOrder("o1", "Ana", "ana@example.com", &etorder.PipelineInput{
		ServiceType:   etorder.ServiceTranscription,
		Transcription: &etorder.TranscriptionInput{AudioURL: "https://files.example.com/a.mp3"},
	}, "flow", 5990)
	repo := newMemOrderRepo(o)
	svc := newService(repo, &fakeAdapter{name: "flow"}, &fakeUploader{}, &fakeDispatcher{}, &fakeDiscounts{}, &fakeWaiter{})

	if err := svc.ForceStatus(context.Background(), "o1", etorder.StatusCompleted, "admin@redaxion"); err != nil {
		t.Fatalf("ForceStatus failed: %v", err)
	}
	order, _ := repo.GetByID(context.Background(), "o1")
	if order.Status != etorder.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", order.Status)
	}

	if err := svc.ForceStatus(context.Background(), "o1", etorder.Status("BOGUS"), "admin"); err == nil {
		t.Fatal("expected error for invalid status")
	}
}
