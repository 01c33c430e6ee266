// Package notify implements the delivery sinks fed by the event bus.
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/model"
	"github.com/learnloop/tutor_marketplace/internal/repository"
)

// StoreSink persists notifications so users see them in their inbox.
type StoreSink struct {
	notifications *repository.NotificationRepository
}

func NewStoreSink(notifications *repository.NotificationRepository) *StoreSink {
	return &StoreSink{notifications: notifications}
}

func (s *StoreSink) Deliver(ctx context.Context, event events.Event) error {
	return s.notifications.Create(ctx, &model.Notification{
		ID:      uuid.NewString(),
		UserID:  event.UserID,
		Message: event.Message,
		Link:    event.Link,
		Kind:    event.Kind,
	})
}
