package svnotify

import (
	"context"
	"fmt"

	"redaxion/backend/internal/app/domains/entity/etorder"
	redisinfra "redaxion/backend/internal/app/infra/persistence/redis"
	"redaxion/backend/internal/app/pkg/logger"
)

// ResultChannel 订单结果通知频道名
func ResultChannel(orderID string) string {
	return "order:result:" + orderID
}

// RedisResultPublisher 流水线结束后向 Redis 频道广播结果，
// 唤醒正在 Smart Wait 的轮询请求。发布失败只记日志：
// 轮询方靠超时兜底，不依赖通知必达。
type RedisResultPublisher struct {
	pubsub *redisinfra.PubSubClient
	logger logger.Logger
}

// NewRedisResultPublisher 创建结果发布器
func NewRedisResultPublisher(pubsub *redisinfra.PubSubClient, log logger.Logger) *RedisResultPublisher {
	return &RedisResultPublisher{pubsub: pubsub, logger: log}
}

// PublishResult 广播订单最终状态
func (p *RedisResultPublisher) PublishResult(ctx context.Context, orderID string, status etorder.Status) {
	payload := fmt.Sprintf(`{"order_id":%q,"status":%q}`, orderID, status)
	if err := p.pubsub.Publish(ctx, ResultChannel(orderID), payload); err != nil {
		p.logger.Warnf(ctx, "publish order result failed: %v", err)
	}
}
