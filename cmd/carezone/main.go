package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carezone/common/database"
	"carezone/common/logger"
	mqttcommon "carezone/common/mqtt"
	rediscommon "carezone/common/redis"
	"carezone/internal/config"
	"carezone/internal/consumer"
	"carezone/internal/events"
	httpapi "carezone/internal/http"
	"carezone/internal/metrics"
	"carezone/internal/notify"
	"carezone/internal/repository"
	"carezone/internal/service"
	"carezone/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "carezone")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 存储：DB 不可用时回退到内存（仅开发联调）
	var db *sql.DB
	var st repository.Store
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			st = repository.NewPostgresStore(db, log)
			log.Info("DB enabled for carezone")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if st == nil {
		st = repository.NewMemoryStore()
	}

	// 4. Redis：webhook 去重 + 案件事件流
	var redisClient *redis.Client
	var kv store.KV = store.NewMemoryKV()
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisEnabled {
		client := rediscommon.NewRedisClient(&cfg.Redis)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rediscommon.Ping(pingCtx, client)
		pingCancel()
		if err == nil {
			redisClient = client
			kv = store.NewRedisKV(client)
			publisher = events.NewStreamPublisher(client, cfg.Events.Stream, cfg.Events.MaxLen, log)
			log.Info("Redis enabled for carezone", zap.String("addr", cfg.Redis.Addr))
		} else {
			log.Warn("Redis enabled but ping failed, using in-memory dedupe", zap.Error(err))
			_ = rediscommon.Close(client)
		}
	}

	// 5. 通知通道：未配置 token 时只记录日志
	var channel notify.Channel
	if cfg.LINE.ChannelAccessToken != "" {
		channel = notify.NewLINEClient(&cfg.LINE, log)
	} else {
		log.Warn("LINE_CHANNEL_ACCESS_TOKEN not set, notifications are logged only")
		channel = notify.NewLogChannel(log)
	}

	m := metrics.New()
	dispatcher := notify.NewDispatcher(channel, cfg.Notify.Timeout, m, log)

	// 6. 服务
	escalationService := service.NewEscalationService(st, dispatcher, publisher, m, log)
	locationService := service.NewLocationService(st, escalationService, dispatcher, m, log)
	fallService := service.NewFallService(st, dispatcher, m, log)
	caretakerService := service.NewCaretakerLocationService(st, log)
	reportService := service.NewReportService(st, log)

	// 7. 路由
	router := httpapi.NewRouter(m, log)
	router.RegisterDeviceRoutes(httpapi.NewDeviceHandler(locationService, fallService, log))
	router.RegisterCaretakerRoutes(httpapi.NewCaretakerLocationHandler(caretakerService, log))
	router.RegisterExtendedHelpRoutes(httpapi.NewExtendedHelpHandler(reportService, log))
	router.RegisterLINERoutes(httpapi.NewLINEWebhookHandler(escalationService, st, dispatcher, kv, httpapi.LINEWebhookConfig{
		ChannelSecret:   cfg.LINE.ChannelSecret,
		SkipSignature:   cfg.Webhook.SkipSignature,
		DedupeTTL:       cfg.Webhook.DedupeTTL,
		DedupeKeyPrefix: cfg.Webhook.DedupeKeyPrefix,
	}, log))
	router.RegisterOpsRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 8. MQTT 设备上报（可选）
	var mqttClient *mqttcommon.Client
	var mqttConsumer *consumer.MQTTConsumer
	if cfg.MQTTEnabled {
		mqttCfg := cfg.MQTT
		mqttCfg.ClientID = fmt.Sprintf("%s-%s", cfg.MQTT.ClientID, uuid.NewString()[:8])
		client, err := mqttcommon.NewClient(&mqttCfg, log)
		if err != nil {
			log.Fatal("Failed to connect MQTT broker", zap.Error(err))
		}
		mqttClient = client
		mqttConsumer = consumer.NewMQTTConsumer(client, cfg.MQTTTopicPrefix, cfg.MQTT.QoS, locationService, fallService, log)
		go func() {
			if err := mqttConsumer.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	// 9. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("Service error, shutting down", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if mqttConsumer != nil {
		mqttConsumer.Stop()
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = rediscommon.Close(redisClient)
	}
	if db != nil {
		_ = database.Close(db)
	}

	log.Info("carezone stopped")
}
