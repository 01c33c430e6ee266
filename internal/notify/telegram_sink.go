package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/repository"
)

// TelegramSink pushes notifications to users who linked a Telegram chat.
// Users without a linked chat are skipped silently.
type TelegramSink struct {
	bot   *bot.Bot
	users *repository.UserRepository
}

func NewTelegramSink(token string, users *repository.UserRepository) (*TelegramSink, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramSink{bot: b, users: users}, nil
}

func (s *TelegramSink) Deliver(ctx context.Context, event events.Event) error {
	user, err := s.users.GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("lookup notification target: %w", err)
	}
	if user == nil || user.TelegramChatID == nil {
		return nil
	}

	text := event.Message
	if event.Link != "" {
		text += "\n" + event.Link
	}

	_, err = s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramChatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}
