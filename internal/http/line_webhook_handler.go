package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"carezone/internal/models"
	"carezone/internal/notify"
	"carezone/internal/repository"
	"carezone/internal/service"
	"carezone/internal/store"

	"go.uber.org/zap"
)

// LINE webhook 签名头
const lineSignatureHeader = "X-Line-Signature"

// LINEWebhookConfig webhook 配置
type LINEWebhookConfig struct {
	ChannelSecret   string
	SkipSignature   bool // 仅用于本地联调
	DedupeTTL       time.Duration
	DedupeKeyPrefix string
}

// LINEWebhookHandler 处理卡片按钮 postback：接单 / 结案 / 跌倒求助
type LINEWebhookHandler struct {
	escalation service.EscalationService
	users      repository.UserRepository
	dispatcher *notify.Dispatcher
	kv         store.KV
	cfg        LINEWebhookConfig
	logger     *zap.Logger
}

// NewLINEWebhookHandler 创建 LINEWebhookHandler
func NewLINEWebhookHandler(
	escalation service.EscalationService,
	users repository.UserRepository,
	dispatcher *notify.Dispatcher,
	kv store.KV,
	cfg LINEWebhookConfig,
	logger *zap.Logger,
) *LINEWebhookHandler {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 10 * time.Minute
	}
	return &LINEWebhookHandler{
		escalation: escalation,
		users:      users,
		dispatcher: dispatcher,
		kv:         kv,
		cfg:        cfg,
		logger:     logger,
	}
}

type webhookRequest struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type            string `json:"type"`
	WebhookEventID  string `json:"webhookEventId"`
	Timestamp       int64  `json:"timestamp"`
	DeliveryContext struct {
		IsRedelivery bool `json:"isRedelivery"`
	} `json:"deliveryContext"`
	Source struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
	} `json:"source"`
	Postback struct {
		Data string `json:"data"`
	} `json:"postback"`
}

// ServeHTTP 校验签名后逐个处理事件；鉴权通过后总是返回 200，处理失败只记日志
func (h *LINEWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeBadRequest(w, "failed to read body")
		return
	}

	// 1. 签名校验
	if !h.cfg.SkipSignature && !validSignature(h.cfg.ChannelSecret, body, r.Header.Get(lineSignatureHeader)) {
		h.logger.Warn("Rejected LINE webhook with invalid signature")
		writeJSON(w, http.StatusUnauthorized, Fail("invalid signature"))
		return
	}

	var payload webhookRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		writeBadRequest(w, "invalid body: "+err.Error())
		return
	}

	// 2. 逐个处理
	ctx := r.Context()
	processed := 0
	for _, ev := range payload.Events {
		if !h.firstDelivery(ctx, ev) {
			continue
		}
		if ev.Type != "postback" {
			h.logger.Debug("Ignoring LINE event", zap.String("type", ev.Type))
			continue
		}
		h.handlePostback(ctx, ev)
		processed++
	}

	writeJSON(w, http.StatusOK, Ok(map[string]int{"processed": processed}))
}

// validSignature base64(HMAC-SHA256(channelSecret, body))
func validSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// firstDelivery 按 webhookEventId 去重，KV 不可用时照常处理
func (h *LINEWebhookHandler) firstDelivery(ctx context.Context, ev webhookEvent) bool {
	if ev.WebhookEventID == "" || h.kv == nil {
		return true
	}
	ok, err := h.kv.SetNX(ctx, h.cfg.DedupeKeyPrefix+ev.WebhookEventID, "1", h.cfg.DedupeTTL)
	if err != nil {
		h.logger.Warn("Webhook dedupe unavailable", zap.String("webhook_event_id", ev.WebhookEventID), zap.Error(err))
		return true
	}
	if !ok {
		h.logger.Info("Skipping duplicate LINE event",
			zap.String("webhook_event_id", ev.WebhookEventID),
			zap.Bool("is_redelivery", ev.DeliveryContext.IsRedelivery),
		)
	}
	return ok
}

func (h *LINEWebhookHandler) handlePostback(ctx context.Context, ev webhookEvent) {
	p, err := notify.ParsePostback(ev.Postback.Data)
	if err != nil {
		h.logger.Warn("Invalid postback data", zap.String("data", ev.Postback.Data), zap.Error(err))
		return
	}

	req := service.ActionRequest{
		CaseID:      p.ExtenID,
		TakecareID:  p.TakecareID,
		ActorLineID: ev.Source.UserID,
		GroupID:     ev.Source.GroupID,
	}

	switch p.Type {
	case notify.PostbackAccept:
		_, err = h.escalation.Accept(ctx, req)
	case notify.PostbackClose:
		_, err = h.escalation.Close(ctx, req)
	case notify.PostbackAlert:
		err = h.raiseFromAlert(ctx, ev, p)
	}
	if err != nil && p.Type != notify.PostbackAlert {
		h.dispatcher.SendToUser(ctx, ev.Source.UserID, notify.Text(notify.TextActionFailed))
	}
	if err != nil {
		h.logger.Error("Failed to handle postback",
			zap.String("type", p.Type),
			zap.Int64("exten_id", p.ExtenID),
			zap.Int64("takecare_id", p.TakecareID),
			zap.String("kind", service.ErrorKind(err)),
			zap.Error(err),
		)
	}
}

// raiseFromAlert 跌倒卡片上的求助按钮：以 fall 为原因发起扩展求助
func (h *LINEWebhookHandler) raiseFromAlert(ctx context.Context, ev webhookEvent, p notify.Postback) error {
	usersID := p.UsersID
	if usersID == 0 {
		lineID := p.UserLineID
		if lineID == "" {
			lineID = ev.Source.UserID
		}
		user, err := h.users.GetUserByLineID(ctx, lineID)
		if err != nil {
			h.replyAlert(ctx, ev.Source.UserID, err)
			return err
		}
		usersID = user.UsersID
	}

	_, err := h.escalation.Raise(ctx, service.RaiseRequest{
		UsersID:    usersID,
		TakecareID: p.TakecareID,
		Reason:     models.ReasonFall,
	})
	h.replyAlert(ctx, ev.Source.UserID, err)
	return err
}

// replyAlert 求助按钮的回执，失败时也告知按下按钮的人
func (h *LINEWebhookHandler) replyAlert(ctx context.Context, lineID string, err error) {
	text := notify.TextHelpRequested
	switch {
	case err == nil:
	case errors.Is(err, service.ErrPrecondition):
		text = notify.TextHelpUnavailable
	default:
		text = notify.TextHelpFailed
	}
	h.dispatcher.SendToUser(ctx, lineID, notify.Text(text))
}
