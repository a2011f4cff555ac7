package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "carezone/common/config"
)

// Config carezone 服务配置
type Config struct {
	HTTP struct {
		Addr string
	}

	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	MQTTEnabled bool
	MQTT        commoncfg.MQTTConfig
	// MQTTTopicPrefix 设备上报主题前缀，完整主题为 {prefix}/{users_id}/{takecare_id}/{location|fall}
	MQTTTopicPrefix string

	LINE commoncfg.LINEConfig

	Notify struct {
		Timeout time.Duration // 单次通知的最长等待时间，超时记录日志后忽略
	}

	Webhook struct {
		DedupeTTL       time.Duration // webhookEventId 去重窗口
		DedupeKeyPrefix string
		SkipSignature   bool // 仅用于本地联调
	}

	Events struct {
		Stream string // 案件事件 Redis Stream 名称
		MaxLen int64
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "carezone"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTTEnabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "carezone"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTTTopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "carezone")

	cfg.LINE.BaseURL = "https://api.line.me"
	cfg.LINE.Timeout = 10 * time.Second
	cfg.LINE.LoadFromEnv("LINE")

	cfg.Notify.Timeout = parseDuration(getEnv("NOTIFY_TIMEOUT", "5s"), 5*time.Second)

	cfg.Webhook.DedupeTTL = parseDuration(getEnv("WEBHOOK_DEDUPE_TTL", "10m"), 10*time.Minute)
	cfg.Webhook.DedupeKeyPrefix = getEnv("WEBHOOK_DEDUPE_PREFIX", "carezone:webhook:")
	cfg.Webhook.SkipSignature = getEnv("WEBHOOK_SKIP_SIGNATURE", "false") == "true"

	cfg.Events.Stream = getEnv("CASE_EVENT_STREAM", "carezone:case:events")
	cfg.Events.MaxLen = int64(parseInt(getEnv("CASE_EVENT_STREAM_MAXLEN", "10000"), 10000))

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
