package model

import "time"

type NotificationKind string

const (
	NotificationKindBooking NotificationKind = "booking"
	NotificationKindDispute NotificationKind = "dispute"
	NotificationKindPayment NotificationKind = "payment"
)

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
}
