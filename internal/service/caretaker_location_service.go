package service

import (
	"context"
	"fmt"
	"time"

	"carezone/internal/models"
	"carezone/internal/repository"

	"go.uber.org/zap"
)

// CaretakerLocationService 照护人（响应者）位置日志接口
type CaretakerLocationService interface {
	// 追加一条照护人位置
	RecordCaretakerLocation(ctx context.Context, req RecordCaretakerLocationRequest) (*models.CaretakerLocation, error)

	// 获取 pair 最新的照护人位置
	GetLatestCaretakerLocation(ctx context.Context, usersID, takecareID int64) (*models.CaretakerLocation, error)
}

type caretakerLocationService struct {
	repo   repository.CaretakerLocationRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewCaretakerLocationService 创建 CaretakerLocationService 实例
func NewCaretakerLocationService(repo repository.CaretakerLocationRepository, logger *zap.Logger) CaretakerLocationService {
	return &caretakerLocationService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// RecordCaretakerLocationRequest 照护人位置上报请求
type RecordCaretakerLocationRequest struct {
	UsersID    int64
	TakecareID int64
	Latitude   float64
	Longitude  float64
	Battery    int
	LocationID int64 // 可选，关联的被照护人位置行
}

func (s *caretakerLocationService) RecordCaretakerLocation(ctx context.Context, req RecordCaretakerLocationRequest) (*models.CaretakerLocation, error) {
	if err := validatePair(req.UsersID, req.TakecareID); err != nil {
		return nil, err
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	if req.LocationID < 0 {
		return nil, validationError("location_id must be non-negative")
	}

	loc := &models.CaretakerLocation{
		UsersID:    req.UsersID,
		TakecareID: req.TakecareID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Battery:    req.Battery,
		LocationID: req.LocationID,
		Timestamp:  s.now(),
	}
	if err := s.repo.CreateCaretakerLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to save caretaker location: %w", err)
	}

	s.logger.Debug("Caretaker location recorded",
		zap.Int64("dlocation_id", loc.DLocationID),
		zap.Int64("users_id", loc.UsersID),
		zap.Int64("takecare_id", loc.TakecareID),
	)
	return loc, nil
}

func (s *caretakerLocationService) GetLatestCaretakerLocation(ctx context.Context, usersID, takecareID int64) (*models.CaretakerLocation, error) {
	if err := validatePair(usersID, takecareID); err != nil {
		return nil, err
	}
	loc, err := s.repo.GetLatestCaretakerLocation(ctx, usersID, takecareID)
	if err != nil {
		return nil, fmt.Errorf("failed to get caretaker location: %w", err)
	}
	if loc == nil {
		return nil, fmt.Errorf("%w: caretaker location", ErrNotFound)
	}
	return loc, nil
}
