package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// BookingService drives the booking lifecycle: completion, cancellation
// and rescheduling.
type BookingService struct {
	bookings BookingStore
	users    UserStore
	bus      Publisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewBookingService(bookings BookingStore, users UserStore, bus Publisher, logger *zap.Logger, now func() time.Time) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings: bookings,
		users:    users,
		bus:      bus,
		logger:   logger,
		now:      now,
	}
}

// GetByID returns the booking or ErrNotFound.
func (s *BookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	return booking, nil
}

// ListForUser returns the bookings a user participates in, as student or
// tutor depending on their role.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, apperr.ErrNotFound)
	}

	if user.Role == model.RoleTutor {
		return s.bookings.ListByTutor(ctx, user.ID)
	}
	return s.bookings.ListByStudent(ctx, user.ID)
}

// Complete marks a booking completed. Idempotent.
func (s *BookingService) Complete(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status == model.BookingStatusCompleted {
		return booking, nil
	}

	if err := s.bookings.UpdateStatus(ctx, id, model.BookingStatusCompleted); err != nil {
		return nil, err
	}
	booking.Status = model.BookingStatusCompleted

	s.logger.Info("Booking completed", zap.String("booking_id", id))
	return booking, nil
}

// Cancel sets the booking to cancelled, freeing its slot key. Covers both
// student cancellation and tutor rejection.
func (s *BookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.UpdateStatus(ctx, id, model.BookingStatusCancelled); err != nil {
		return nil, err
	}
	booking.Status = model.BookingStatusCancelled

	s.logger.Info("Booking cancelled", zap.String("booking_id", id))

	s.bus.Publish(events.Event{
		UserID:  booking.StudentID,
		Message: fmt.Sprintf("Your session on %s at %s was cancelled.", booking.SessionDate, booking.SessionTime),
		Link:    "/bookings/" + booking.ID,
		Kind:    model.NotificationKindBooking,
	})
	s.bus.Publish(events.Event{
		UserID:  booking.TutorID,
		Message: fmt.Sprintf("The session on %s at %s was cancelled.", booking.SessionDate, booking.SessionTime),
		Link:    "/bookings/" + booking.ID,
		Kind:    model.NotificationKindBooking,
	})

	return booking, nil
}

type RescheduleRequest struct {
	BookingID string
	ActorID   string
	NewDate   string
	NewTime   string
	Note      string
}

// Reschedule moves a booking to a new slot. Only the owning tutor may
// reschedule, neither the current nor the new slot may lie in the past,
// and only the immediately prior slot is retained.
func (s *BookingService) Reschedule(ctx context.Context, req RescheduleRequest) (*model.Booking, error) {
	if req.NewDate == "" || req.NewTime == "" {
		return nil, fmt.Errorf("new date and time are required: %w", apperr.ErrValidation)
	}

	booking, err := s.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if booking.TutorID != req.ActorID {
		return nil, fmt.Errorf("only the owning tutor may reschedule: %w", apperr.ErrForbidden)
	}

	now := s.now()

	if current, ok := sessionInstant(booking.SessionDate, booking.SessionTime); ok && current.Before(now) {
		return nil, fmt.Errorf("session already elapsed: %w", apperr.ErrPastSession)
	}

	target, ok := sessionInstant(req.NewDate, req.NewTime)
	if !ok {
		return nil, fmt.Errorf("new slot %s %s: %w", req.NewDate, req.NewTime, apperr.ErrValidation)
	}
	if target.Before(now) {
		return nil, fmt.Errorf("new slot %s %s: %w", req.NewDate, req.NewTime, apperr.ErrPastSession)
	}

	oldDate, oldTime := booking.SessionDate, booking.SessionTime
	err = s.bookings.Reschedule(ctx, booking.ID, booking.Version, req.NewDate, req.NewTime, oldDate, oldTime, req.Note)
	if err != nil {
		return nil, err
	}

	booking.SessionDate = req.NewDate
	booking.SessionTime = req.NewTime
	booking.WasRescheduled = true
	booking.OldDate = oldDate
	booking.OldTime = oldTime
	booking.RescheduleNote = req.Note

	s.logger.Info("Booking rescheduled",
		zap.String("booking_id", booking.ID),
		zap.String("old", oldDate+" "+oldTime),
		zap.String("new", req.NewDate+" "+req.NewTime),
	)

	s.bus.Publish(events.Event{
		UserID: booking.StudentID,
		Message: fmt.Sprintf("Your session was moved from %s %s to %s %s.",
			oldDate, oldTime, req.NewDate, req.NewTime),
		Link: "/bookings/" + booking.ID,
		Kind: model.NotificationKindBooking,
	})

	return booking, nil
}

// sessionInstant combines the opaque date and time strings into an instant
// for past/future guards. Unparsable values report ok=false and skip the
// guard.
func sessionInstant(date, timeOfDay string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout+" 15:04", date+" "+timeOfDay); err == nil {
		return t, true
	}
	if t, err := time.Parse(dateLayout, date); err == nil {
		return t, true
	}
	return time.Time{}, false
}
