package model

import "time"

type DisputeOutcome string

const (
	DisputeOutcomeRefunded DisputeOutcome = "refunded"
	DisputeOutcomeRejected DisputeOutcome = "rejected"
)

// Dispute is the billing claim embedded in the booking it concerns.
// Outcome and ResolvedAt are only ever set together with Resolved = true.
type Dispute struct {
	Reason   string `json:"reason"`
	FiledBy  string `json:"filed_by"`
	Resolved bool   `json:"resolved"`

	Outcome    DisputeOutcome `json:"outcome,omitempty"`
	FiledAt    time.Time      `json:"filed_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`

	// Refund destination, captured at filing time.
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}
