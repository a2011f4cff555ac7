package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carezone/internal/events"
	"carezone/internal/metrics"
	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"

	"go.uber.org/zap"
)

// ActionOutcome 响应者操作结果（冲突是正常结果，不作为错误返回）
type ActionOutcome string

const (
	OutcomeAccepted         ActionOutcome = "accepted"
	OutcomeClosed           ActionOutcome = "closed"
	OutcomeAlreadyHandled   ActionOutcome = "already_handled"
	OutcomeUnknownResponder ActionOutcome = "unknown_responder"
	OutcomeCaseNotFound     ActionOutcome = "case_not_found"
	OutcomeCaseMismatch     ActionOutcome = "case_mismatch"
)

// EscalationService 扩展求助流程接口
type EscalationService interface {
	// 创建或复用未处理案件，并推送求助卡片到响应者群组
	Raise(ctx context.Context, req RaiseRequest) (*RaiseResponse, error)

	// 响应者接收案件（先到先得）
	Accept(ctx context.Context, req ActionRequest) (*ActionResponse, error)

	// 响应者关闭案件（先到先得，不要求先接收）
	Close(ctx context.Context, req ActionRequest) (*ActionResponse, error)
}

// escalationService 实现
type escalationService struct {
	store      repository.Store
	dispatcher *notify.Dispatcher
	publisher  events.Publisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewEscalationService 创建 EscalationService 实例，publisher 为 nil 时不发布事件
func NewEscalationService(
	store repository.Store,
	dispatcher *notify.Dispatcher,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) EscalationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &escalationService{
		store:      store,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// RaiseRequest 触发扩展求助请求
type RaiseRequest struct {
	UsersID    int64
	TakecareID int64
	Reason     string // 默认 safezone

	// 事发位置，为空时依次使用最新位置、安全区中心
	Latitude  *float64
	Longitude *float64
}

// RaiseResponse 触发扩展求助结果
type RaiseResponse struct {
	CaseID      int64             `json:"case_id"`
	Status      models.CaseStatus `json:"status"`
	ResendCount int               `json:"resend_count"`
	Created     bool              `json:"created"`
	Notified    bool              `json:"notified"`
}

// ActionRequest 响应者操作请求
type ActionRequest struct {
	CaseID      int64
	TakecareID  int64  // 卡片携带的被照护人 ID，0 表示不校验
	ActorLineID string // 操作者 LINE userId
	GroupID     string // 来源群组（仅记录日志）
}

// ActionResponse 响应者操作结果
type ActionResponse struct {
	Outcome ActionOutcome        `json:"outcome"`
	Case    *models.ExtendedHelp `json:"case,omitempty"`
	Reply   string               `json:"reply"`
}

// Raise 创建或复用案件
func (s *escalationService) Raise(ctx context.Context, req RaiseRequest) (*RaiseResponse, error) {
	// 1. 参数校验
	if err := validatePair(req.UsersID, req.TakecareID); err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, validationError("latitude and longitude must be given together")
	}
	if req.Latitude != nil {
		if err := validateCoordinates(*req.Latitude, *req.Longitude); err != nil {
			return nil, err
		}
	}
	reason := req.Reason
	if reason == "" {
		reason = models.ReasonSafezone
	}

	// 2. 关联数据
	user, err := s.store.GetUser(ctx, req.UsersID)
	if err != nil {
		return nil, lookupError("user", err)
	}
	tp, err := s.store.GetTakecareperson(ctx, req.UsersID, req.TakecareID)
	if err != nil {
		return nil, lookupError("takecareperson", err)
	}
	zone, err := s.store.GetSafezone(ctx, req.UsersID, req.TakecareID)
	if err != nil {
		return nil, lookupError("safezone", err)
	}

	lat, lon := zone.Latitude, zone.Longitude
	if req.Latitude != nil {
		lat, lon = *req.Latitude, *req.Longitude
	} else {
		loc, err := s.store.GetLatestLocation(ctx, req.UsersID, req.TakecareID)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest location: %w", err)
		}
		if loc != nil {
			lat, lon = loc.Latitude, loc.Longitude
		}
	}

	// 3. 响应者群组（未配置时无法升级）
	group, err := s.store.GetActiveGroup(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active responder group", ErrPrecondition)
		}
		return nil, fmt.Errorf("failed to get active group: %w", err)
	}

	// 4. 复用未处理案件或新建
	now := s.now()
	c, err := s.store.FindOpenCase(ctx, req.UsersID, req.TakecareID)
	if err != nil {
		return nil, fmt.Errorf("failed to find open case: %w", err)
	}

	resp := &RaiseResponse{}
	eventType := events.CaseResent
	if c != nil {
		count, ok, err := s.store.MarkResent(ctx, c.ExtenID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark case resent: %w", err)
		}
		if ok {
			c.Status = models.CaseStatusResent
			c.ResendCount = count
		} else {
			// 查询后被接收或关闭，按新案件处理
			s.logger.Info("Open case handled before resend",
				zap.Int64("exten_id", c.ExtenID),
			)
			c = nil
		}
	}
	if c == nil {
		c = &models.ExtendedHelp{
			UsersID:           req.UsersID,
			TakecareID:        req.TakecareID,
			Status:            models.CaseStatusCreated,
			Reason:            reason,
			CreatedAt:         now,
			SafezoneLatitude:  zone.Latitude,
			SafezoneLongitude: zone.Longitude,
		}
		if err := s.store.CreateCase(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to create case: %w", err)
		}
		resp.Created = true
		eventType = events.CaseCreated
	}
	resp.CaseID = c.ExtenID
	resp.Status = c.Status
	resp.ResendCount = c.ResendCount
	s.metrics.RecordCaseTransition(eventType)

	// 5. 推送群组（失败只记录日志）
	resp.Notified = s.dispatcher.SendToGroup(ctx, group.GroupLineID, notify.EscalationMessages(notify.EscalationCase{
		CaseID:      c.ExtenID,
		ResendCount: c.ResendCount,
		Reason:      c.Reason,
		User:        user,
		Takecare:    tp,
		Latitude:    lat,
		Longitude:   lon,
	})...)

	s.publisher.Publish(ctx, events.NewCaseEvent(eventType, c, nil, now))

	s.logger.Info("Extended help raised",
		zap.Int64("exten_id", c.ExtenID),
		zap.Int64("users_id", req.UsersID),
		zap.Int64("takecare_id", req.TakecareID),
		zap.String("status", string(c.Status)),
		zap.Int("resend_count", c.ResendCount),
		zap.Bool("notified", resp.Notified),
	)
	return resp, nil
}

const unavailableTitle = "Case unavailable"

// actionRule Accept / Close 的差异部分
type actionRule struct {
	name        string
	event       string
	outcome     ActionOutcome
	mark        func(ctx context.Context, extenID, userID int64, at time.Time) (bool, error)
	title       string
	textUnknown string
	textAlready string
	textDone    string
}

// Accept 接收案件
func (s *escalationService) Accept(ctx context.Context, req ActionRequest) (*ActionResponse, error) {
	return s.act(ctx, req, actionRule{
		name:        "accept",
		event:       events.CaseReceived,
		outcome:     OutcomeAccepted,
		mark:        s.store.MarkReceived,
		title:       "Case accepted",
		textUnknown: notify.TextUnknownAccept,
		textAlready: notify.TextAlreadyAccepted,
		textDone:    notify.TextAccepted,
	})
}

// Close 关闭案件
func (s *escalationService) Close(ctx context.Context, req ActionRequest) (*ActionResponse, error) {
	return s.act(ctx, req, actionRule{
		name:        "close",
		event:       events.CaseClosed,
		outcome:     OutcomeClosed,
		mark:        s.store.MarkClosed,
		title:       "Case closed",
		textUnknown: notify.TextUnknownClose,
		textAlready: notify.TextAlreadyClosed,
		textDone:    notify.TextClosed,
	})
}

func (s *escalationService) act(ctx context.Context, req ActionRequest, rule actionRule) (*ActionResponse, error) {
	// 1. 参数校验
	if req.CaseID <= 0 {
		return nil, validationError("case id must be positive")
	}
	if req.ActorLineID == "" {
		return nil, validationError("actor line id is required")
	}

	// 2. 识别操作者
	actor, err := s.store.GetUserByLineID(ctx, req.ActorLineID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get actor: %w", err)
		}
		s.logger.Warn("Unknown responder",
			zap.String("action", rule.name),
			zap.String("actor_line_id", req.ActorLineID),
			zap.Int64("exten_id", req.CaseID),
		)
		s.reply(ctx, req.ActorLineID, rule.title, rule.textUnknown)
		return &ActionResponse{Outcome: OutcomeUnknownResponder, Reply: rule.textUnknown}, nil
	}

	// 3. 案件
	c, err := s.store.GetCase(ctx, req.CaseID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to get case: %w", err)
		}
		s.logger.Warn("Responder action on missing case",
			zap.String("action", rule.name),
			zap.Int64("exten_id", req.CaseID),
		)
		s.reply(ctx, req.ActorLineID, unavailableTitle, notify.TextCaseNotFound)
		return &ActionResponse{Outcome: OutcomeCaseNotFound, Reply: notify.TextCaseNotFound}, nil
	}
	if req.TakecareID > 0 && req.TakecareID != c.TakecareID {
		s.logger.Warn("Responder action on mismatched case",
			zap.String("action", rule.name),
			zap.Int64("exten_id", c.ExtenID),
			zap.Int64("case_takecare_id", c.TakecareID),
			zap.Int64("card_takecare_id", req.TakecareID),
		)
		s.reply(ctx, req.ActorLineID, unavailableTitle, notify.TextCaseMismatch)
		return &ActionResponse{Outcome: OutcomeCaseMismatch, Reply: notify.TextCaseMismatch}, nil
	}

	// 4. 条件更新，先到先得
	now := s.now()
	ok, err := rule.mark(ctx, c.ExtenID, actor.UsersID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to %s case: %w", rule.name, err)
	}

	resp := &ActionResponse{Outcome: rule.outcome, Reply: rule.textDone}
	if !ok {
		resp.Outcome = OutcomeAlreadyHandled
		resp.Reply = rule.textAlready
	}

	if updated, err := s.store.GetCase(ctx, c.ExtenID); err == nil {
		resp.Case = updated
	} else {
		s.logger.Warn("Failed to reload case", zap.Int64("exten_id", c.ExtenID), zap.Error(err))
		resp.Case = c
	}

	if ok {
		actorID := actor.UsersID
		s.metrics.RecordCaseTransition(rule.event)
		s.publisher.Publish(ctx, events.NewCaseEvent(rule.event, resp.Case, &actorID, now))
	}

	// 5. 回执只发给操作者本人
	s.reply(ctx, req.ActorLineID, rule.title, resp.Reply)

	s.logger.Info("Responder action handled",
		zap.String("action", rule.name),
		zap.Int64("exten_id", c.ExtenID),
		zap.Int64("actor_users_id", actor.UsersID),
		zap.String("group_id", req.GroupID),
		zap.String("outcome", string(resp.Outcome)),
	)
	return resp, nil
}

func (s *escalationService) reply(ctx context.Context, actorLineID, title, text string) {
	name := s.dispatcher.DisplayName(ctx, actorLineID)
	s.dispatcher.SendToUser(ctx, actorLineID, notify.ConfirmationMessage(title, name, text))
}
