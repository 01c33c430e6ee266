package service

import (
	"context"

	"github.com/learnloop/tutor_marketplace/internal/model"
)

// NotificationStore is the read surface of the persistent notification sink.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID string) ([]*model.Notification, error)
}

// NotificationService serves the user-facing notification inbox.
type NotificationService struct {
	notifications NotificationStore
}

func NewNotificationService(notifications NotificationStore) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}
