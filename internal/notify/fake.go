package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Sent 一次记录下来的推送
type Sent struct {
	Target   string // user / group
	To       string
	Messages []Message
}

// RecordingChannel 记录所有推送的内存通道（开发模式 / 测试）
type RecordingChannel struct {
	mu    sync.Mutex
	sent  []Sent
	names map[string]string

	// Err 非 nil 时每次推送都返回该错误
	Err error
}

// NewRecordingChannel 创建内存通道
func NewRecordingChannel() *RecordingChannel {
	return &RecordingChannel{names: map[string]string{}}
}

var (
	_ Channel         = (*RecordingChannel)(nil)
	_ ProfileResolver = (*RecordingChannel)(nil)
)

func (c *RecordingChannel) PushToUser(_ context.Context, userID string, msgs ...Message) error {
	return c.record("user", userID, msgs)
}

func (c *RecordingChannel) PushToGroup(_ context.Context, groupID string, msgs ...Message) error {
	return c.record("group", groupID, msgs)
}

func (c *RecordingChannel) record(target, to string, msgs []Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.sent = append(c.sent, Sent{Target: target, To: to, Messages: append([]Message(nil), msgs...)})
	return nil
}

// SetDisplayName 设置 DisplayName 返回值
func (c *RecordingChannel) SetDisplayName(userID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[userID] = name
}

func (c *RecordingChannel) DisplayName(_ context.Context, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.names[userID], nil
}

// Sent 已记录的推送副本
func (c *RecordingChannel) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// SentTo 发给指定接收者的推送
func (c *RecordingChannel) SentTo(to string) []Sent {
	var out []Sent
	for _, s := range c.Sent() {
		if s.To == to {
			out = append(out, s)
		}
	}
	return out
}

// LogChannel 只写日志不发送的通道（未配置 LINE token 时使用）
type LogChannel struct {
	logger *zap.Logger
}

// NewLogChannel 创建日志通道
func NewLogChannel(logger *zap.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) PushToUser(_ context.Context, userID string, msgs ...Message) error {
	c.log("user", userID, msgs)
	return nil
}

func (c *LogChannel) PushToGroup(_ context.Context, groupID string, msgs ...Message) error {
	c.log("group", groupID, msgs)
	return nil
}

func (c *LogChannel) log(target, to string, msgs []Message) {
	kinds := make([]string, 0, len(msgs))
	for _, m := range msgs {
		kinds = append(kinds, string(m.Kind))
	}
	c.logger.Info("Notification (log only)",
		zap.String("target", target),
		zap.String("to", to),
		zap.Strings("kinds", kinds),
	)
}
