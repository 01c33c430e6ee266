package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID         string  `json:"id"`
	Role       Role    `json:"role"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	HourlyRate float64 `json:"hourly_rate"`
	Verified   bool    `json:"verified"`
	// Set once the user links their Telegram account; enables push
	// notifications through the bot.
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
