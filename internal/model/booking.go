package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type SessionKind string

const (
	SessionKindIndividual SessionKind = "individual"
	SessionKindGroup      SessionKind = "group"
)

// DefaultGroupSize is the capacity of a newly opened group slot.
const DefaultGroupSize = 5

type Booking struct {
	ID        string `json:"id"`
	TutorID   string `json:"tutor_id"`
	StudentID string `json:"student_id"`
	Subject   string `json:"subject"`
	Message   string `json:"message,omitempty"`

	// SessionDate (YYYY-MM-DD) and SessionTime are opaque local strings;
	// together with TutorID they form the slot key.
	SessionDate string `json:"session_date"`
	SessionTime string `json:"session_time"`

	SessionKind      SessionKind `json:"session_kind"`
	MaxGroupSize     int         `json:"max_group_size"`
	CurrentGroupSize int         `json:"current_group_size"`
	// GroupID points a joiner at its anchor booking. Nil on anchors and
	// individual bookings. The anchor's CurrentGroupSize is authoritative.
	GroupID *string `json:"group_id,omitempty"`

	Price       float64 `json:"price"`
	IsPaid      bool    `json:"is_paid"`
	IsTutorPaid bool    `json:"is_tutor_paid"`

	Status BookingStatus `json:"status"`

	// RecurringSeriesID links drafts generated from one recurring request.
	RecurringSeriesID *string `json:"recurring_series_id,omitempty"`

	// Only the immediately prior schedule survives a reschedule.
	WasRescheduled bool   `json:"was_rescheduled"`
	OldDate        string `json:"old_date,omitempty"`
	OldTime        string `json:"old_time,omitempty"`
	RescheduleNote string `json:"reschedule_note,omitempty"`

	Dispute *Dispute `json:"dispute,omitempty"`

	// Version guards read-modify-write updates (group counter, dispute
	// fields, reschedule).
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the booking still occupies its slot key.
func (b *Booking) Active() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusConfirmed
}

// IsGroupAnchor reports whether the booking is the first group booking at
// its slot key.
func (b *Booking) IsGroupAnchor() bool {
	return b.SessionKind == SessionKindGroup && b.GroupID == nil
}
