package notify

import (
	"context"
	"time"

	"carezone/internal/metrics"

	"go.uber.org/zap"
)

// DefaultTimeout 单次通知默认超时
const DefaultTimeout = 5 * time.Second

// Dispatcher 尽力而为的通知投递：每次调用限时，失败只记录日志不向上返回
type Dispatcher struct {
	channel Channel
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDispatcher 创建通知分发器，timeout<=0 时使用 DefaultTimeout
func NewDispatcher(channel Channel, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		channel: channel,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// SendToUser 推送给用户，返回是否投递成功
func (d *Dispatcher) SendToUser(ctx context.Context, userID string, msgs ...Message) bool {
	return d.send(ctx, "user", userID, msgs, d.channel.PushToUser)
}

// SendToGroup 推送给群组，返回是否投递成功
func (d *Dispatcher) SendToGroup(ctx context.Context, groupID string, msgs ...Message) bool {
	return d.send(ctx, "group", groupID, msgs, d.channel.PushToGroup)
}

type pushFunc func(ctx context.Context, to string, msgs ...Message) error

func (d *Dispatcher) send(ctx context.Context, target, to string, msgs []Message, push pushFunc) bool {
	if to == "" {
		d.logger.Warn("Notification skipped, empty recipient", zap.String("target", target))
		d.metrics.RecordNotification(target, "skipped")
		return false
	}

	// 调用方取消不影响通知投递，只受自身超时约束
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := push(sendCtx, to, msgs...); err != nil {
		d.logger.Error("Failed to send notification",
			zap.String("target", target),
			zap.String("to", to),
			zap.Int("message_count", len(msgs)),
			zap.Error(err),
		)
		d.metrics.RecordNotification(target, "failed")
		return false
	}

	d.metrics.RecordNotification(target, "sent")
	return true
}

// DisplayName 解析用户显示名称，通道不支持或失败时返回空字符串
func (d *Dispatcher) DisplayName(ctx context.Context, userID string) string {
	resolver, ok := d.channel.(ProfileResolver)
	if !ok || userID == "" {
		return ""
	}

	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	name, err := resolver.DisplayName(lookupCtx, userID)
	if err != nil {
		d.logger.Warn("Failed to resolve display name",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return ""
	}
	return name
}
