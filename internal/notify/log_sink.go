package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/events"
)

// LogSink writes every notification to the application log, so deliveries
// stay visible even when no other sink applies.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, event events.Event) error {
	s.logger.Info("Notification",
		zap.String("user_id", event.UserID),
		zap.String("kind", string(event.Kind)),
		zap.String("message", event.Message),
	)
	return nil
}
