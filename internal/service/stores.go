// Package service implements the booking allocation and dispute resolution
// engine: slot allocation, recurring expansion, availability derivation,
// the booking lifecycle and dispute handling.
package service

import (
	"context"
	"time"

	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/gateway"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// BookingStore is the booking persistence surface the services depend on.
// Implemented by repository.BookingRepository and by the in-memory fakes in
// the tests.
type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	CreateBatch(ctx context.Context, bookings []*model.Booking) (int, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListActiveAtSlot(ctx context.Context, tutorID, sessionDate, sessionTime string) ([]*model.Booking, error)
	ListByStudent(ctx context.Context, studentID string) ([]*model.Booking, error)
	ListByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error)
	ListActiveByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error)
	IncrementGroupSize(ctx context.Context, id string, version int64) error
	UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error
	MarkPaid(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, version int64, newDate, newTime, oldDate, oldTime, note string) error
	FileDispute(ctx context.Context, id string, version int64, d *model.Dispute) error
	ResolveDispute(ctx context.Context, id string, version int64, outcome model.DisputeOutcome, resolvedAt time.Time, isTutorPaid bool, status model.BookingStatus) error
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	ListTutors(ctx context.Context) ([]*model.User, error)
	ListAdmins(ctx context.Context) ([]*model.User, error)
	GetTemplate(ctx context.Context, tutorID string) (model.WeeklyTemplate, error)
}

type PaymentStore interface {
	Create(ctx context.Context, payment *model.Payment) error
	GetByTxRef(ctx context.Context, txRef string) (*model.Payment, error)
	GetCompletedByBookingID(ctx context.Context, bookingID string) (*model.Payment, error)
	MarkCompleted(ctx context.Context, txRef string) (bool, error)
}

// PaymentGateway is the payment bridge contract.
type PaymentGateway interface {
	Initialize(ctx context.Context, req gateway.InitializeRequest) (string, error)
	Verify(ctx context.Context, txRef string) (string, error)
	Transfer(ctx context.Context, req gateway.TransferRequest) error
}

// Publisher accepts outbound notification events after a write lands.
type Publisher interface {
	Publish(event events.Event)
}
