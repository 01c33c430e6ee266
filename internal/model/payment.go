package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// Payment is one external-gateway transaction, keyed by TxRef.
type Payment struct {
	ID          string        `json:"id"`
	BookingID   string        `json:"booking_id"`
	TxRef       string        `json:"tx_ref"`
	Amount      float64       `json:"amount"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
