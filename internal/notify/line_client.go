package notify

import (
	"context"
	"fmt"
	"time"

	"carezone/common/config"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LINE 单次 push 最多 5 条消息
const maxMessagesPerPush = 5

// linePushRequest LINE push API 请求体
type linePushRequest struct {
	To       string           `json:"to"`
	Messages []map[string]any `json:"messages"`
}

// lineProfile LINE profile API 响应
type lineProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// lineError LINE API 错误响应
type lineError struct {
	Message string `json:"message"`
}

// LINEClient LINE Messaging API 客户端
type LINEClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewLINEClient 创建 LINE 客户端
func NewLINEClient(cfg *config.LINEConfig, logger *zap.Logger) *LINEClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthToken(cfg.ChannelAccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &LINEClient{
		httpClient: client,
		logger:     logger,
	}
}

var (
	_ Channel         = (*LINEClient)(nil)
	_ ProfileResolver = (*LINEClient)(nil)
)

// PushToUser 推送给用户
func (c *LINEClient) PushToUser(ctx context.Context, userID string, msgs ...Message) error {
	return c.push(ctx, userID, msgs)
}

// PushToGroup 推送给群组
func (c *LINEClient) PushToGroup(ctx context.Context, groupID string, msgs ...Message) error {
	return c.push(ctx, groupID, msgs)
}

func (c *LINEClient) push(ctx context.Context, to string, msgs []Message) error {
	if to == "" {
		return fmt.Errorf("push target is empty")
	}
	if len(msgs) == 0 {
		return nil
	}

	encoded := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		body, err := encodeMessage(m)
		if err != nil {
			return err
		}
		encoded = append(encoded, body)
	}

	for start := 0; start < len(encoded); start += maxMessagesPerPush {
		end := start + maxMessagesPerPush
		if end > len(encoded) {
			end = len(encoded)
		}

		var apiErr lineError
		// 单次投递不重试，X-Line-Retry-Key 供 LINE 端幂等
		resp, err := c.httpClient.R().
			SetContext(ctx).
			SetHeader("X-Line-Retry-Key", uuid.NewString()).
			SetBody(linePushRequest{To: to, Messages: encoded[start:end]}).
			SetError(&apiErr).
			Post("/v2/bot/message/push")
		if err != nil {
			return fmt.Errorf("failed to call LINE push API: %w", err)
		}
		if resp.IsError() {
			c.logger.Warn("LINE push API returned error",
				zap.Int("status_code", resp.StatusCode()),
				zap.String("message", apiErr.Message),
			)
			return fmt.Errorf("LINE push API error: %s (status: %d)", apiErr.Message, resp.StatusCode())
		}
	}

	c.logger.Debug("LINE push sent",
		zap.String("to", to),
		zap.Int("message_count", len(encoded)),
	)
	return nil
}

// DisplayName 获取用户的 LINE 显示名称
func (c *LINEClient) DisplayName(ctx context.Context, userID string) (string, error) {
	var profile lineProfile
	var apiErr lineError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("userId", userID).
		SetResult(&profile).
		SetError(&apiErr).
		Get("/v2/bot/profile/{userId}")
	if err != nil {
		return "", fmt.Errorf("failed to call LINE profile API: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("LINE profile API error: %s (status: %d)", apiErr.Message, resp.StatusCode())
	}
	return profile.DisplayName, nil
}

// encodeMessage 转换为 LINE message object
func encodeMessage(m Message) (map[string]any, error) {
	switch m.Kind {
	case KindText:
		return map[string]any{"type": "text", "text": m.Text}, nil
	case KindLocation:
		if m.Location == nil {
			return nil, fmt.Errorf("%w: location payload missing", ErrInvalidMessage)
		}
		return map[string]any{
			"type":      "location",
			"title":     m.Location.Title,
			"address":   m.Location.Address,
			"latitude":  m.Location.Latitude,
			"longitude": m.Location.Longitude,
		}, nil
	case KindFlex:
		if m.Flex == nil {
			return nil, fmt.Errorf("%w: flex payload missing", ErrInvalidMessage)
		}
		return map[string]any{
			"type":     "flex",
			"altText":  m.Flex.AltText,
			"contents": m.Flex.Contents,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
}
