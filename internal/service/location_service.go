package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carezone/internal/geofence"
	"carezone/internal/metrics"
	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"

	"go.uber.org/zap"
)

// LocationService 位置上报处理接口
type LocationService interface {
	// 分类并保存最新位置，按状态发送提醒或触发扩展求助
	UpdateLocation(ctx context.Context, req UpdateLocationRequest) (*UpdateLocationResult, error)
}

// locationService 实现
type locationService struct {
	store      repository.Store
	escalation EscalationService
	dispatcher *notify.Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewLocationService 创建 LocationService 实例
func NewLocationService(
	store repository.Store,
	escalation EscalationService,
	dispatcher *notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) LocationService {
	return &locationService{
		store:      store,
		escalation: escalation,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// UpdateLocationRequest 位置上报请求
type UpdateLocationRequest struct {
	UsersID    int64
	TakecareID int64
	Latitude   float64
	Longitude  float64
	Distance   float64 // 距安全区中心的距离（米），由设备端计算
	Battery    int
}

// UpdateLocationResult 位置上报结果
type UpdateLocationResult struct {
	Location        *models.Location `json:"location"`
	Status          geofence.Status  `json:"status"`
	Notified        bool             `json:"notified"`
	CaseID          *int64           `json:"case_id,omitempty"`
	EscalationError string           `json:"escalation_error,omitempty"`
}

func (r UpdateLocationRequest) validate() error {
	if err := validatePair(r.UsersID, r.TakecareID); err != nil {
		return err
	}
	if !isFinite(r.Distance) || r.Distance < 0 {
		return validationError("distance must be a finite non-negative number: %v", r.Distance)
	}
	return validateCoordinates(r.Latitude, r.Longitude)
}

// UpdateLocation 位置上报主流程
func (s *locationService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) (*UpdateLocationResult, error) {
	// 1. 参数校验
	if err := req.validate(); err != nil {
		return nil, err
	}

	// 2. 安全区
	zone, err := s.store.GetSafezone(ctx, req.UsersID, req.TakecareID)
	if err != nil {
		return nil, lookupError("safezone", err)
	}

	// 3. 分类
	status := geofence.Classify(req.Distance, zone.RadiusLv1, zone.RadiusLv2)
	s.metrics.RecordGeofence(status.String())

	// 4. 覆盖或插入最新位置
	latest, err := s.store.GetLatestLocation(ctx, req.UsersID, req.TakecareID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}

	now := s.now()
	loc := &models.Location{
		UsersID:    req.UsersID,
		TakecareID: req.TakecareID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Distance:   req.Distance,
		Battery:    req.Battery,
		Status:     int(status),
		Timestamp:  now,
	}
	if latest != nil {
		loc.LocationID = latest.LocationID
	}
	if status != geofence.StatusNormal {
		loc.NotiStatus = 1
		loc.NotiTime = &now
	}
	if err := s.store.UpsertLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to save location: %w", err)
	}

	result := &UpdateLocationResult{Location: loc, Status: status}

	// 5. 正常状态不查用户、不发通知
	if status == geofence.StatusNormal {
		return result, nil
	}

	// 6. 用户 / 被照护人缺失时跳过通知
	user, tp, ok := s.resolvePair(ctx, req.UsersID, req.TakecareID)
	if !ok {
		return result, nil
	}

	// 7. 按状态通知
	switch status {
	case geofence.StatusNearLevel2:
		result.Notified = s.dispatcher.SendToUser(ctx, user.LineID, notify.NearLevel2Message(tp))
	case geofence.StatusBreachLevel1:
		result.Notified = s.dispatcher.SendToUser(ctx, user.LineID, notify.BreachLevel1Message(tp))
	case geofence.StatusBreachLevel2:
		lat, lon := req.Latitude, req.Longitude
		raised, err := s.escalation.Raise(ctx, RaiseRequest{
			UsersID:    req.UsersID,
			TakecareID: req.TakecareID,
			Reason:     models.ReasonSafezone,
			Latitude:   &lat,
			Longitude:  &lon,
		})
		if err != nil {
			if !errors.Is(err, ErrPrecondition) {
				return nil, err
			}
			// 位置已保存，不回滚
			s.logger.Warn("Escalation skipped",
				zap.Int64("users_id", req.UsersID),
				zap.Int64("takecare_id", req.TakecareID),
				zap.Error(err),
			)
			result.EscalationError = ErrorKind(err)
			return result, nil
		}
		result.Notified = raised.Notified
		result.CaseID = &raised.CaseID
	}

	return result, nil
}

// resolvePair 查询照护人与启用的被照护人，缺失或出错时记录日志并返回 ok=false
func (s *locationService) resolvePair(ctx context.Context, usersID, takecareID int64) (*models.User, *models.Takecareperson, bool) {
	user, err := s.store.GetUser(ctx, usersID)
	if err != nil {
		s.logger.Warn("Notification skipped, user not resolved",
			zap.Int64("users_id", usersID),
			zap.Error(err),
		)
		return nil, nil, false
	}
	tp, err := s.store.GetTakecareperson(ctx, usersID, takecareID)
	if err != nil {
		s.logger.Warn("Notification skipped, takecareperson not resolved",
			zap.Int64("users_id", usersID),
			zap.Int64("takecare_id", takecareID),
			zap.Error(err),
		)
		return nil, nil, false
	}
	return user, tp, true
}
