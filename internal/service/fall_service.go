package service

import (
	"context"
	"fmt"
	"time"

	"carezone/internal/metrics"
	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"

	"go.uber.org/zap"
)

// 跌倒通知节流参数
const (
	MaxFallNotify   = 4               // 一轮内最多通知次数
	FallResetWindow = 5 * time.Minute // 距上次通知超过该时长开始新一轮
)

// FallService 跌倒上报处理接口
type FallService interface {
	// 记录跌倒上报并按节流规则通知照护人
	RecordFall(ctx context.Context, req RecordFallRequest) (*RecordFallResult, error)
}

// fallService 实现
type fallService struct {
	store      repository.Store
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewFallService 创建 FallService 实例
func NewFallService(
	store repository.Store,
	dispatcher *notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) FallService {
	return &fallService{
		store:      store,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// RecordFallRequest 跌倒上报请求
type RecordFallRequest struct {
	UsersID    int64
	TakecareID int64
	XAxis      float64
	YAxis      float64
	ZAxis      float64
	FallStatus int
	Latitude   float64
	Longitude  float64
}

// RecordFallResult 跌倒上报结果
type RecordFallResult struct {
	Record    *models.FallRecord `json:"record"`
	Notified  bool               `json:"notified"`  // 本次是否应通知（noti_status=1）
	Delivered bool               `json:"delivered"` // 通知是否投递成功
}

func (r RecordFallRequest) validate() error {
	if err := validatePair(r.UsersID, r.TakecareID); err != nil {
		return err
	}
	if r.FallStatus < 0 {
		return validationError("fall_status must be non-negative: %d", r.FallStatus)
	}
	if !isFinite(r.XAxis) || !isFinite(r.YAxis) || !isFinite(r.ZAxis) {
		return validationError("axis values must be finite")
	}
	return validateCoordinates(r.Latitude, r.Longitude)
}

// decideFall 根据上一条记录生成本次记录（纯函数）
// 新一轮：无记录、上一条未通知（noti_time 为空）、或距上次通知 >= FallResetWindow
func decideFall(now time.Time, req RecordFallRequest, prior *models.FallRecord) *models.FallRecord {
	rec := &models.FallRecord{
		UsersID:    req.UsersID,
		TakecareID: req.TakecareID,
		XAxis:      req.XAxis,
		YAxis:      req.YAxis,
		ZAxis:      req.ZAxis,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		FallStatus: req.FallStatus,
		Timestamp:  now,
	}

	if !models.IsFallEvent(req.FallStatus) {
		return rec
	}

	isNewRound := prior == nil || prior.NotiTime == nil || now.Sub(*prior.NotiTime) >= FallResetWindow

	next := 1
	if !isNewRound {
		next = prior.NotiCount + 1
	}
	rec.NotiCount = next

	if next <= MaxFallNotify {
		rec.NotiStatus = 1
		notiTime := now
		rec.NotiTime = &notiTime
	}
	return rec
}

// RecordFall 跌倒上报主流程
func (s *fallService) RecordFall(ctx context.Context, req RecordFallRequest) (*RecordFallResult, error) {
	// 1. 参数校验
	if err := req.validate(); err != nil {
		return nil, err
	}

	// 2. 照护人 / 被照护人必须存在，否则不落库
	user, err := s.store.GetUser(ctx, req.UsersID)
	if err != nil {
		return nil, lookupError("user", err)
	}
	tp, err := s.store.GetTakecareperson(ctx, req.UsersID, req.TakecareID)
	if err != nil {
		return nil, lookupError("takecareperson", err)
	}

	// 3. pair 级串行：读最新 → 决策 → 追加
	rec, err := s.store.AppendFallSerialized(ctx, req.UsersID, req.TakecareID, func(prior *models.FallRecord) (*models.FallRecord, error) {
		return decideFall(s.now(), req, prior), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append fall record: %w", err)
	}

	result := &RecordFallResult{Record: rec, Notified: rec.NotiStatus == 1}

	switch {
	case !models.IsFallEvent(rec.FallStatus):
		s.metrics.RecordFallDecision("non_fall")
		return result, nil
	case !result.Notified:
		s.metrics.RecordFallDecision("suppressed")
		s.logger.Info("Fall notification suppressed",
			zap.Int64("users_id", req.UsersID),
			zap.Int64("takecare_id", req.TakecareID),
			zap.Int("noti_count", rec.NotiCount),
		)
		return result, nil
	}

	// 4. 提交后在锁外通知
	s.metrics.RecordFallDecision("notified")
	result.Delivered = s.dispatcher.SendToUser(ctx, user.LineID,
		notify.FallAlertMessages(user, tp, rec.FallStatus, req.Latitude, req.Longitude)...)

	s.logger.Info("Fall notification sent",
		zap.Int64("users_id", req.UsersID),
		zap.Int64("takecare_id", req.TakecareID),
		zap.Int("noti_count", rec.NotiCount),
		zap.Bool("delivered", result.Delivered),
	)
	return result, nil
}
