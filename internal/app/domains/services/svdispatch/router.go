package svdispatch

import (
	"context"
	"errors"
	"fmt"

	"redaxion/backend/internal/app/domains/entity/etorder"
	"redaxion/backend/internal/app/domains/entity/etpayment"
	"redaxion/backend/internal/app/domains/repo/rporder"
	"redaxion/backend/internal/app/pipeline"
	"redaxion/backend/internal/app/pkg/errorx"
	"redaxion/backend/internal/app/pkg/logger"
	"redaxion/backend/internal/app/taskrunner"
)

// PipelineRegistry service_type → pipeline 查找（pipeline.Registry 满足该接口）
type PipelineRegistry interface {
	Lookup(serviceType etorder.ServiceType) (pipeline.Pipeline, bool)
}

// TaskSubmitter 后台任务提交（taskrunner.Pool 满足该接口）
type TaskSubmitter interface {
	Submit(task taskrunner.Task) error
}

// Deliverer 交付步骤（邮件发送，内部由 email_sent 标记保证幂等）
type Deliverer interface {
	Deliver(ctx context.Context, orderID string) error
}

// OperatorNotifier 流水线失败时通知运营（尽力而为）
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, orderID, reason string)
}

// ResultPublisher 流水线结束通知（Smart Wait 用，尽力而为）
type ResultPublisher interface {
	PublishResult(ctx context.Context, orderID string, status etorder.Status)
}

// Router 调度路由器 —— 系统核心状态机。
//
// 四条触发路径（两个 webhook、回跳、轮询）全部汇入 Handle/Retry，
// 彼此不协调、可能重复或乱序到达。幂等保证只有一条：
// pending→paid 的 CAS 写，谁赢谁调度流水线，输者静默返回。
// CAS 之外没有互斥锁——四条路径跑在独立的 HTTP handler（甚至不同进程）里，
// 进程内锁提供不了互斥，持久化记录上的条件写是唯一公共协调点。
type Router struct {
	orders    rporder.OrderRepository
	registry  PipelineRegistry
	runner    TaskSubmitter
	deliverer Deliverer
	notifier  OperatorNotifier
	publisher ResultPublisher
	logger    logger.Logger
}

// NewRouter 创建调度路由器（依赖全部显式注入，生命周期由进程入口持有）
func NewRouter(
	orders rporder.OrderRepository,
	registry PipelineRegistry,
	runner TaskSubmitter,
	deliverer Deliverer,
	notifier OperatorNotifier,
	publisher ResultPublisher,
	log logger.Logger,
) *Router {
	return &Router{
		orders:    orders,
		registry:  registry,
		runner:    runner,
		deliverer: deliverer,
		notifier:  notifier,
		publisher: publisher,
		logger:    log,
	}
}

// Handle 处理一条规范化支付事件。
// 未知订单只记日志；CAS 落败是预期结果，不算错误也不按错误级别记日志。
func (r *Router) Handle(ctx context.Context, event *etpayment.Event) error {
	if event.OrderID == "" {
		if event.ParseError != "" {
			r.logger.Warnf(ctx, "unusable payment notification from %s: %s", event.Gateway, event.ParseError)
		}
		return nil
	}

	ctx = logger.WithOrderID(ctx, event.OrderID)

	order, err := r.orders.GetByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, errorx.ErrOrderNotFound) {
			// 未知订单的事件不是错误：可能是网关重放了历史订单
			r.logger.Infof(ctx, "payment event for unknown order discarded, gateway=%s raw=%s",
				event.Gateway, event.RawStatus)
			return nil
		}
		return fmt.Errorf("load order failed: %w", err)
	}

	switch event.Outcome {
	case etpayment.OutcomeApproved:
		// ERROR 状态收到 approved 视为显式重试
		if order.Status == etorder.StatusError {
			return r.Retry(ctx, order.ID)
		}

		won, err := r.orders.CompareAndSetStatus(ctx, order.ID, etorder.StatusPending, etorder.StatusPaid)
		if err != nil {
			return fmt.Errorf("cas pending->paid failed: %w", err)
		}
		if !won {
			// 另一条触发路径已接受支付——预期的静默结果
			r.logger.Debugf(ctx, "payment already accepted by another trigger, gateway=%s", event.Gateway)
			return nil
		}

		r.logger.Infof(ctx, "payment approved via %s, raw_status=%s", event.Gateway, event.RawStatus)

		// 本次调用已独占该订单，paid→processing 紧随其后
		if _, err := r.orders.CompareAndSetStatus(ctx, order.ID, etorder.StatusPaid, etorder.StatusProcessing); err != nil {
			return fmt.Errorf("cas paid->processing failed: %w", err)
		}
		return r.schedule(ctx, order)

	case etpayment.OutcomeRejected:
		won, err := r.orders.CompareAndSetStatus(ctx, order.ID, etorder.StatusPending, etorder.StatusFailed)
		if err != nil {
			return fmt.Errorf("cas pending->failed failed: %w", err)
		}
		if won {
			_ = r.orders.SetFailureReason(ctx, order.ID, "payment rejected: "+event.RawStatus)
			r.logger.Infof(ctx, "payment rejected via %s, raw_status=%s", event.Gateway, event.RawStatus)
		}
		// 订单已越过 PENDING 时，迟到的 rejected 直接忽略
		return nil

	case etpayment.OutcomeCancelled:
		won, err := r.orders.CompareAndSetStatus(ctx, order.ID, etorder.StatusPending, etorder.StatusCancelled)
		if err != nil {
			return fmt.Errorf("cas pending->cancelled failed: %w", err)
		}
		if won {
			r.logger.Infof(ctx, "payment cancelled via %s", event.Gateway)
		}
		return nil

	default:
		// pending / 未识别结果不触发任何状态迁移
		r.logger.Debugf(ctx, "non-actionable payment event, gateway=%s outcome=%s raw=%s",
			event.Gateway, event.Outcome, event.RawStatus)
		return nil
	}
}

// Retry 显式重试 ERROR 状态的订单。
// 四个入口任何一个观察到 status=error 时都可以调用；
// 与 Handle 一样以 CAS 保证只有一个调用者真正重新调度。
func (r *Router) Retry(ctx context.Context, orderID string) error {
	ctx = logger.WithOrderID(ctx, orderID)

	order, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, errorx.ErrOrderNotFound) {
			return errorx.ErrOrderNotFound
		}
		return fmt.Errorf("load order failed: %w", err)
	}

	if !order.Status.Retryable() {
		return errorx.ErrOrderNotRetryable
	}

	won, err := r.orders.CompareAndSetStatus(ctx, orderID, etorder.StatusError, etorder.StatusProcessing)
	if err != nil {
		return fmt.Errorf("cas error->processing failed: %w", err)
	}
	if !won {
		r.logger.Debugf(ctx, "retry already claimed by another caller")
		return nil
	}

	r.logger.Infof(ctx, "retrying failed pipeline")
	return r.schedule(ctx, order)
}

// schedule 调度流水线执行。只有赢得 CAS、把订单推进到 PROCESSING
// 的那一次调用才会到达这里。
func (r *Router) schedule(ctx context.Context, order *etorder.Order) error {
	// 确认支付后才发现流水线输入缺失/损坏：置 ERROR 走人工重试路径
	if err := order.Input.Validate(); err != nil {
		r.markError(ctx, order.ID, "pipeline input invalid: "+err.Error())
		return nil
	}

	pl, ok := r.registry.Lookup(order.ServiceType)
	if !ok {
		r.markError(ctx, order.ID, fmt.Sprintf("no pipeline for service type %q", order.ServiceType))
		return nil
	}

	orderID := order.ID
	submitErr := r.runner.Submit(func(taskCtx context.Context) {
		taskCtx = logger.WithOrderID(taskCtx, orderID)
		result := r.runPipeline(taskCtx, pl, order)
		r.complete(taskCtx, orderID, result)
	})
	if submitErr != nil {
		r.markError(ctx, order.ID, "task runner unavailable: "+submitErr.Error())
		return nil
	}

	r.logger.Infof(ctx, "pipeline scheduled, service_type=%s", order.ServiceType)
	return nil
}

// runPipeline 执行流水线并在边界回收 panic：
// 流水线内部的异常只能变成失败 Result，绝不击穿进程。
func (r *Router) runPipeline(ctx context.Context, pl pipeline.Pipeline, order *etorder.Order) (result *pipeline.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf(ctx, "pipeline %s panicked: %v", pl.Name(), rec)
			result = pipeline.Failure(fmt.Sprintf("pipeline panic: %v", rec))
		}
	}()
	return pl.Run(ctx, order)
}

// complete 流水线完成回调。
// 成功：整体替换产物 → CAS processing→completed → 交付（email_sent 兜底幂等）。
// 失败：CAS processing→error → 通知运营（其自身失败不回写订单）。
func (r *Router) complete(ctx context.Context, orderID string, result *pipeline.Result) {
	if result.Success {
		if err := r.orders.UpdateArtifacts(ctx, orderID, result.Artifacts); err != nil {
			r.logger.Errorf(ctx, "persist artifacts failed: %v", err)
			r.markError(ctx, orderID, "persist artifacts failed: "+err.Error())
			return
		}

		won, err := r.orders.CompareAndSetStatus(ctx, orderID, etorder.StatusProcessing, etorder.StatusCompleted)
		if err != nil {
			r.logger.Errorf(ctx, "cas processing->completed failed: %v", err)
			return
		}
		if !won {
			// 完成回调重复执行时会走到这里；交付仍受 email_sent 保护
			r.logger.Warnf(ctx, "completion observed outside PROCESSING state")
		}

		r.logger.Infof(ctx, "pipeline completed, artifacts=%d", len(result.Artifacts))
		r.publishResult(ctx, orderID, etorder.StatusCompleted)

		if err := r.deliverer.Deliver(ctx, orderID); err != nil {
			// 交付失败只记日志，不回滚订单状态
			r.logger.Errorf(ctx, "delivery failed: %v", err)
		}
		return
	}

	r.markError(ctx, orderID, result.Err)
}

// markError 把订单置为可重试的 ERROR 并尽力通知运营
func (r *Router) markError(ctx context.Context, orderID, reason string) {
	if err := r.orders.SetFailureReason(ctx, orderID, reason); err != nil {
		r.logger.Errorf(ctx, "persist failure reason failed: %v", err)
	}

	won, err := r.orders.CompareAndSetStatus(ctx, orderID, etorder.StatusProcessing, etorder.StatusError)
	if err != nil {
		r.logger.Errorf(ctx, "cas processing->error failed: %v", err)
	} else if !won {
		r.logger.Warnf(ctx, "error transition observed outside PROCESSING state")
	}

	r.logger.Errorf(ctx, "pipeline failed: %s", reason)
	r.publishResult(ctx, orderID, etorder.StatusError)

	// 运营通知失败绝不能再把订单搞坏
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Errorf(ctx, "operator notification panicked: %v", rec)
			}
		}()
		r.notifier.NotifyOperator(ctx, orderID, reason)
	}()
}

// publishResult Smart Wait 结果通知（尽力而为）
func (r *Router) publishResult(ctx context.Context, orderID string, status etorder.Status) {
	if r.publisher == nil {
		return
	}
	r.publisher.PublishResult(ctx, orderID, status)
}
