package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/jobwork/internal/jobwork/apperr"
	"github.com/bitfantasy/jobwork/internal/jobwork/entity"
	"github.com/bitfantasy/jobwork/internal/jobwork/repository"
	"github.com/bitfantasy/jobwork/internal/jobwork/sse"
	"github.com/bitfantasy/jobwork/internal/shared/feishu"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService 站内通知服务，可选同步推送飞书群告警
type NotificationService struct {
	repo     repository.NotificationStore
	hub      *sse.Hub
	lark     *feishu.Client
	larkChat string
	logger   *zap.Logger
}

// NewNotificationService 创建通知服务，hub和lark均可为nil
func NewNotificationService(repo repository.NotificationStore, hub *sse.Hub, lark *feishu.Client, larkChat string, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, hub: hub, lark: lark, larkChat: larkChat, logger: logger}
}

// Notify 创建通知。userID为nil表示广播给租户内主管角色。
func (s *NotificationService) Notify(ctx context.Context, tenantID string, userID *string, notifType, message, entityRef string) (*entity.Notification, error) {
	n := &entity.Notification{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		UserID:          userID,
		Type:            notifType,
		Message:         message,
		EntityReference: entityRef,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("NOTIFICATION_CREATED",
		zap.String("tenant_id", tenantID),
		zap.String("type", notifType),
		zap.String("entity_reference", entityRef),
	)

	// SSE实时推送，失败不影响主流程
	if s.hub != nil {
		if data, err := json.Marshal(n); err == nil {
			target := ""
			if userID != nil {
				target = *userID
			}
			s.hub.Publish(tenantID, target, sse.Event{EventType: "notification", Data: string(data)})
		}
	}

	// 飞书群告警异步推送，失败只记录日志
	if s.lark != nil && s.larkChat != "" {
		card := feishu.NewWorkshopAlertCard(notifType, message, entityRef)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.lark.SendCard(ctx, s.larkChat, card); err != nil {
				s.logger.Error("飞书告警推送失败",
					zap.String("type", notifType),
					zap.String("entity_reference", entityRef),
					zap.Error(err))
			}
		}()
	}

	return n, nil
}

// ListForUser 查询用户通知（含租户广播）
func (s *NotificationService) ListForUser(ctx context.Context, tenantID, userID string, unreadOnly bool) ([]entity.Notification, int, error) {
	notifs, err := s.repo.ListForUser(ctx, tenantID, userID, unreadOnly)
	if err != nil {
		return nil, 0, err
	}
	unread := 0
	for _, n := range notifs {
		if !n.IsRead {
			unread++
		}
	}
	return notifs, unread, nil
}

// MarkRead 标记通知已读
func (s *NotificationService) MarkRead(ctx context.Context, tenantID, notificationID string) (*entity.Notification, error) {
	n, err := s.repo.FindByID(ctx, tenantID, notificationID)
	if err != nil {
		return nil, apperr.NotFound("通知不存在")
	}

	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
