package svdispatch

import (
	"context"
	"sync"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/pipeline"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/taskrunner"
)

// memOrderRepo 内存订单仓储：CAS 语义与 SQL 条件 UPDATE 一致
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
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		o.Artifacts = artifacts
	}
	return nil
}

func (m *memOrderRepo) MarkEmailSent(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		o.EmailSent = true
	}
	return nil
}

func (m *memOrderRepo) SetFailureReason(ctx context.Context, orderID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		o.FailureReason = reason
	}
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

func (m *memOrderRepo) status(orderID string) etorder.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderID].Status
}

// syncRunner 同步执行的任务提交器：测试里让调度立即完成
type syncRunner struct {
	closed bool
}

func (r *syncRunner) Submit(task taskrunner.Task) error {
	if r.closed {
		return errorx.ErrRunnerClosed
	}
	task(context.Background())
	return nil
}

// countingPipeline 计数流水线
type countingPipeline struct {
	mu     sync.Mutex
	runs   int
	result *pipeline.Result
	panics bool
}

func (p *countingPipeline) Name() string { return "counting" }

func (p *countingPipeline) Run(ctx context.Context, order *etorder.Order) *pipeline.Result {
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
	if p.panics {
		panic("boom")
	}
	return p.result
}

func (p *countingPipeline) runCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

// singleRegistry 单流水线注册表
type singleRegistry struct {
	pl pipeline.Pipeline
}

func (r *singleRegistry) Lookup(serviceType etorder.ServiceType) (pipeline.Pipeline, bool) {
	if r.pl == nil {
		return nil, false
	}
	return r.pl, true
}

// mockDeliverer 计数交付
type mockDeliverer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (d *mockDeliverer) Deliver(ctx context.Context, orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

func (d *mockDeliverer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// mockNotifier 计数运营通知
type mockNotifier struct {
	mu      sync.Mutex
	calls   int
	reasons []string
}

func (n *mockNotifier) NotifyOperator(ctx context.Context, orderID, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.reasons = append(n.reasons, reason)
}

func (n *mockNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// mockPublisher 记录结果广播
type mockPublisher struct {
	mu       sync.Mutex
	statuses []etorder.Status
}

func (p *mockPublisher) PublishResult(ctx context.Context, orderID string, status etorder.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
}
