package services

import (
	"context"
	"log/slog"

	"github.com/courtside/matchplay/models"
	"github.com/courtside/matchplay/realtime"
	"github.com/courtside/matchplay/repositories"
)

// Notifier - best-effort сток уведомлений. Вызывается строго после коммита
// консистентной части операции; его сбой никогда не поднимается к вызывающему.
type Notifier interface {
	Notify(ctx context.Context, userID int, typ models.NotificationType, title, message string, actionRef *string)
}

type notificationService struct {
	repo   repositories.NotificationRepository
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewNotificationService(repo repositories.NotificationRepository, hub *realtime.Hub, logger *slog.Logger) Notifier {
	return &notificationService{repo: repo, hub: hub, logger: logger}
}

func (s *notificationService) Notify(ctx context.Context, userID int, typ models.NotificationType, title, message string, actionRef *string) {
	n := &models.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ActionRef: actionRef,
	}

	if err := s.repo.Create(ctx, n); err != nil {
		// Логируем и идём дальше: консистентная часть уже зафиксирована.
		s.logger.Warn("failed to persist notification",
			slog.Int("user_id", userID),
			slog.String("type", string(typ)),
			slog.Any("error", err))
	}

	if s.hub != nil {
		s.hub.SendToUser(userID, realtime.Message{Type: string(typ), Payload: n})
	}
}

// NotificationService отдаёт ленту уведомлений пользователя.
type NotificationService struct {
	repo repositories.NotificationRepository
}

func NewNotificationFeed(repo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
