package events

import (
	"context"
	"time"

	"carezone/common/redis"
	"carezone/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 案件事件类型
const (
	CaseCreated  = "created"
	CaseResent   = "resent"
	CaseReceived = "received"
	CaseClosed   = "closed"
)

// CaseEvent 案件生命周期事件
type CaseEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	ExtenID     int64     `json:"exten_id"`
	UsersID     int64     `json:"users_id"`
	TakecareID  int64     `json:"takecare_id"`
	Reason      string    `json:"reason,omitempty"`
	ResendCount int       `json:"resend_count"`
	ActorUserID *int64    `json:"actor_user_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewCaseEvent 由案件构造事件
func NewCaseEvent(eventType string, c *models.ExtendedHelp, actorUserID *int64, at time.Time) CaseEvent {
	return CaseEvent{
		EventID:     uuid.NewString(),
		Type:        eventType,
		ExtenID:     c.ExtenID,
		UsersID:     c.UsersID,
		TakecareID:  c.TakecareID,
		Reason:      c.Reason,
		ResendCount: c.ResendCount,
		ActorUserID: actorUserID,
		OccurredAt:  at,
	}
}

// Publisher 案件事件发布器（尽力而为，失败不影响主流程）
type Publisher interface {
	Publish(ctx context.Context, evt CaseEvent)
}

// StreamPublisher 发布到 Redis Streams
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher 创建 Redis Streams 发布器
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// Publish 发布事件
func (p *StreamPublisher) Publish(ctx context.Context, evt CaseEvent) {
	id, err := redis.PublishJSONToStream(context.WithoutCancel(ctx), p.client, p.stream, p.maxLen, evt)
	if err != nil {
		p.logger.Error("Failed to publish case event",
			zap.String("stream", p.stream),
			zap.String("type", evt.Type),
			zap.Int64("exten_id", evt.ExtenID),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("Case event published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("type", evt.Type),
		zap.Int64("exten_id", evt.ExtenID),
	)
}

// NopPublisher 不发布（Redis 未启用）
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, CaseEvent) {}
