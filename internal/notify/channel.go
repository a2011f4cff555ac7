package notify

import (
	"context"
	"errors"
)

// ErrInvalidMessage 载荷与 Kind 不匹配
var ErrInvalidMessage = errors.New("invalid notification message")

// Channel 通知通道
type Channel interface {
	// 推送给单个用户（照护人或响应者本人）
	PushToUser(ctx context.Context, userID string, msgs ...Message) error

	// 推送给响应者群组
	PushToGroup(ctx context.Context, groupID string, msgs ...Message) error
}

// ProfileResolver 可选能力：解析用户显示名称
type ProfileResolver interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}
