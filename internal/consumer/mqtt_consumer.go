package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mqttcommon "carezone/common/mqtt"
	"carezone/internal/service"

	"go.uber.org/zap"
)

// 设备上报主题后缀
const (
	TopicLocation = "location"
	TopicFall     = "fall"
)

// Subscriber MQTT 订阅接口（*mqttcommon.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer 设备上报消费者
// 主题格式：{prefix}/{users_id}/{takecare_id}/{location|fall}
type MQTTConsumer struct {
	subscriber      Subscriber
	prefix          string
	qos             byte
	locationService service.LocationService
	fallService     service.FallService
	logger          *zap.Logger
}

// NewMQTTConsumer 创建 MQTT 消费者
func NewMQTTConsumer(
	subscriber Subscriber,
	prefix string,
	qos byte,
	locationService service.LocationService,
	fallService service.FallService,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		subscriber:      subscriber,
		prefix:          strings.TrimSuffix(prefix, "/"),
		qos:             qos,
		locationService: locationService,
		fallService:     fallService,
		logger:          logger,
	}
}

func (c *MQTTConsumer) topics() []string {
	return []string{
		c.prefix + "/+/+/" + TopicLocation,
		c.prefix + "/+/+/" + TopicFall,
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	for _, topic := range c.topics() {
		if err := c.subscriber.Subscribe(topic, c.qos, c.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	c.logger.Info("MQTT consumer started", zap.Strings("topics", c.topics()))

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop() {
	if err := c.subscriber.Unsubscribe(c.topics()...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

type locationPayload struct {
	Distance  *float64 `json:"distance"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Battery   int      `json:"battery"`
}

type fallPayload struct {
	XAxis      float64  `json:"x_axis"`
	YAxis      float64  `json:"y_axis"`
	ZAxis      float64  `json:"z_axis"`
	FallStatus *int     `json:"fall_status"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// parseTopic 解析主题中的 users_id / takecare_id / 类型
func (c *MQTTConsumer) parseTopic(topic string) (usersID, takecareID int64, kind string, err error) {
	rest, ok := strings.CutPrefix(topic, c.prefix+"/")
	if !ok {
		return 0, 0, "", fmt.Errorf("unexpected topic %s", topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("unexpected topic %s", topic)
	}
	if usersID, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return 0, 0, "", fmt.Errorf("invalid users_id in topic %s", topic)
	}
	if takecareID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return 0, 0, "", fmt.Errorf("invalid takecare_id in topic %s", topic)
	}
	return usersID, takecareID, parts[2], nil
}

// handleMessage 处理一条设备上报，错误交由 MQTT 客户端记录
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	usersID, takecareID, kind, err := c.parseTopic(topic)
	if err != nil {
		return err
	}

	ctx := context.Background()

	switch kind {
	case TopicLocation:
		return c.handleLocation(ctx, usersID, takecareID, payload)
	case TopicFall:
		return c.handleFall(ctx, usersID, takecareID, payload)
	default:
		return fmt.Errorf("unknown message type %q in topic %s", kind, topic)
	}
}

func (c *MQTTConsumer) handleLocation(ctx context.Context, usersID, takecareID int64, payload []byte) error {
	var p locationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal location payload: %w", err)
	}
	if p.Distance == nil || p.Latitude == nil || p.Longitude == nil {
		return fmt.Errorf("%w: distance, latitude and longitude are required", service.ErrValidation)
	}

	resp, err := c.locationService.UpdateLocation(ctx, service.UpdateLocationRequest{
		UsersID:    usersID,
		TakecareID: takecareID,
		Latitude:   *p.Latitude,
		Longitude:  *p.Longitude,
		Distance:   *p.Distance,
		Battery:    p.Battery,
	})
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}

	c.logger.Debug("Location processed",
		zap.Int64("users_id", usersID),
		zap.Int64("takecare_id", takecareID),
		zap.String("status", resp.Status.String()),
		zap.Bool("notified", resp.Notified),
	)
	return nil
}

func (c *MQTTConsumer) handleFall(ctx context.Context, usersID, takecareID int64, payload []byte) error {
	var p fallPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal fall payload: %w", err)
	}
	if p.FallStatus == nil || p.Latitude == nil || p.Longitude == nil {
		return fmt.Errorf("%w: fall_status, latitude and longitude are required", service.ErrValidation)
	}

	resp, err := c.fallService.RecordFall(ctx, service.RecordFallRequest{
		UsersID:    usersID,
		TakecareID: takecareID,
		XAxis:      p.XAxis,
		YAxis:      p.YAxis,
		ZAxis:      p.ZAxis,
		FallStatus: *p.FallStatus,
		Latitude:   *p.Latitude,
		Longitude:  *p.Longitude,
	})
	if err != nil {
		return fmt.Errorf("failed to record fall: %w", err)
	}

	c.logger.Debug("Fall processed",
		zap.Int64("users_id", usersID),
		zap.Int64("takecare_id", takecareID),
		zap.Int("noti_count", resp.Record.NotiCount),
		zap.Bool("notified", resp.Notified),
	)
	return nil
}
