package taskrunner

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
)

// Task 一次后台执行单元。
// ctx 是 Pool 的生命周期 ctx，不是触发它的 HTTP 请求 ctx：
// 任务在 HTTP 响应返回之后才执行。
type Task func(ctx context.Context)

// Pool 后台任务执行池。
// 职责只有执行：同一订单不会被调度两次由 Router 的 CAS 保证，Pool 不参与。
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	tasks   chan Task
	workers int
	closing *atomic.Bool
	mu      sync.RWMutex // 保护 tasks 通道的发送端与 close 的互斥
	wg      sync.WaitGroup
	logger  logger.Logger
}

// Config 任务池配置
type Config struct {
	Workers    int // 并发 worker 数
	BufferSize int // 任务缓冲区大小
}

// NewPool 创建任务池
func NewPool(cfg *Config, log logger.Logger) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ctx:     ctx,
		cancel:  cancel,
		tasks:   make(chan Task, bufferSize),
		workers: workers,
		closing: atomic.NewBool(false),
		logger:  log,
	}
}

// Start 启动所有 worker
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	p.logger.Infof(p.ctx, "[TaskRunner] started, workers=%d", p.workers)
}

// Submit 提交任务。关闭中返回 ErrRunnerClosed。
// 缓冲区满时阻塞提交方；本系统的并发订单量级很小，这里不做丢弃策略。
// 发送在读锁内进行：Shutdown 必须等到所有在途发送完成才能 close 通道，
// 缓冲区满时被阻塞的提交方不会撞上已关闭的通道。
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closing.Load() {
		return errorx.ErrRunnerClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return errorx.ErrRunnerClosed
	}
}

// Shutdown 优雅退出：停止接收新任务 → 排空缓冲区 → 等待 worker 退出
func (p *Pool) Shutdown() {
	if !p.closing.CAS(false, true) {
		return
	}
	p.logger.Infof(p.ctx, "[TaskRunner] began to close")

	// 1. 等在途的 Submit 发送完成后关闭任务通道，
	//    worker 消费完剩余任务后自行退出
	p.mu.Lock()
	close(p.tasks)
	p.mu.Unlock()

	// 2. 等待所有 worker 退出
	p.wg.Wait()

	// 3. 取消生命周期 ctx
	p.cancel()
	p.logger.Infof(p.ctx, "[TaskRunner] shutdown complete")
}

// run 单个 worker 循环。panic 在此兜底，流水线失败不会击穿进程。
func (p *Pool) run(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.execute(id, task)
	}
}

// execute 执行单个任务并回收 panic
func (p *Pool) execute(id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Errorf(p.ctx, "[TaskRunner] worker %d recovered from panic: %v", id, rec)
		}
	}()
	task(p.ctx)
}
