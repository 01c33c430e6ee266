package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// AllocationService is the transactional decision point for a single
// incoming booking request.
type AllocationService struct {
	bookings BookingStore
	users    UserStore
	bus      Publisher
	logger   *zap.Logger
}

func NewAllocationService(bookings BookingStore, users UserStore, bus Publisher, logger *zap.Logger) *AllocationService {
	return &AllocationService{
		bookings: bookings,
		users:    users,
		bus:      bus,
		logger:   logger,
	}
}

type AllocateRequest struct {
	TutorID     string
	StudentID   string
	Price       float64
	SessionDate string
	SessionTime string
	Subject     string
	Message     string
	SessionKind model.SessionKind
}

// Allocate applies the exclusivity rules at the slot key and persists the
// resulting booking. Exactly one booking is created per successful call;
// joining a group additionally bumps the anchor's counter.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*model.Booking, error) {
	if req.TutorID == "" || req.StudentID == "" || req.Price == 0 ||
		req.SessionDate == "" || req.SessionTime == "" {
		return nil, fmt.Errorf("tutor, student, price, date and time are required: %w", apperr.ErrValidation)
	}
	if req.SessionKind != model.SessionKindIndividual && req.SessionKind != model.SessionKindGroup {
		return nil, fmt.Errorf("session kind %q: %w", req.SessionKind, apperr.ErrInvalidSessionType)
	}

	tutor, err := s.users.GetByID(ctx, req.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, fmt.Errorf("tutor %s: %w", req.TutorID, apperr.ErrNotFound)
	}

	existing, err := s.bookings.ListActiveAtSlot(ctx, req.TutorID, req.SessionDate, req.SessionTime)
	if err != nil {
		return nil, fmt.Errorf("list bookings at slot: %w", err)
	}

	if req.SessionKind == model.SessionKindIndividual {
		return s.allocateIndividual(ctx, req, existing)
	}
	return s.allocateGroup(ctx, req, existing)
}

func (s *AllocationService) allocateIndividual(ctx context.Context, req AllocateRequest, existing []*model.Booking) (*model.Booking, error) {
	// An individual session needs the slot to itself.
	if len(existing) > 0 {
		return nil, fmt.Errorf("slot %s %s: %w", req.SessionDate, req.SessionTime, apperr.ErrSlotTaken)
	}

	booking := s.newBooking(req, model.SessionKindIndividual, 1, nil)
	if err := s.bookings.Create(ctx, booking); err != nil {
		// The unique index catches the writer that lost the race.
		return nil, err
	}

	s.logger.Info("Individual session booked",
		zap.String("booking_id", booking.ID),
		zap.String("tutor_id", booking.TutorID),
		zap.String("student_id", booking.StudentID),
		zap.String("date", booking.SessionDate),
		zap.String("time", booking.SessionTime),
	)

	s.publishPair(booking,
		fmt.Sprintf("Your individual session on %s at %s is confirmed.", booking.SessionDate, booking.SessionTime),
		fmt.Sprintf("A student booked an individual session on %s at %s.", booking.SessionDate, booking.SessionTime),
	)

	return booking, nil
}

func (s *AllocationService) allocateGroup(ctx context.Context, req AllocateRequest, existing []*model.Booking) (*model.Booking, error) {
	var anchor *model.Booking
	for _, b := range existing {
		if b.SessionKind == model.SessionKindIndividual {
			// A group cannot share a slot with an individual session.
			return nil, fmt.Errorf("slot %s %s holds an individual session: %w", req.SessionDate, req.SessionTime, apperr.ErrSlotTaken)
		}
		if b.IsGroupAnchor() {
			anchor = b
		}
	}

	if anchor != nil {
		return s.joinGroup(ctx, req, anchor)
	}

	booking := s.newBooking(req, model.SessionKindGroup, model.DefaultGroupSize, nil)
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("Group session opened",
		zap.String("booking_id", booking.ID),
		zap.String("tutor_id", booking.TutorID),
		zap.String("date", booking.SessionDate),
		zap.String("time", booking.SessionTime),
	)

	s.publishPair(booking,
		fmt.Sprintf("You opened a group session on %s at %s.", booking.SessionDate, booking.SessionTime),
		fmt.Sprintf("A new group session was opened on %s at %s.", booking.SessionDate, booking.SessionTime),
	)

	return booking, nil
}

func (s *AllocationService) joinGroup(ctx context.Context, req AllocateRequest, anchor *model.Booking) (*model.Booking, error) {
	if anchor.CurrentGroupSize >= anchor.MaxGroupSize {
		return nil, fmt.Errorf("group %s: %w", anchor.ID, apperr.ErrGroupFull)
	}

	if err := s.bookings.IncrementGroupSize(ctx, anchor.ID, anchor.Version); err != nil {
		return nil, err
	}

	groupID := anchor.ID
	booking := s.newBooking(req, model.SessionKindGroup, anchor.MaxGroupSize, &groupID)
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info("Student joined group session",
		zap.String("booking_id", booking.ID),
		zap.String("group_id", anchor.ID),
		zap.Int("group_size", anchor.CurrentGroupSize+1),
	)

	s.publishPair(booking,
		fmt.Sprintf("You joined the group session on %s at %s.", booking.SessionDate, booking.SessionTime),
		fmt.Sprintf("A student joined your group session on %s at %s.", booking.SessionDate, booking.SessionTime),
	)

	return booking, nil
}

func (s *AllocationService) newBooking(req AllocateRequest, kind model.SessionKind, maxSize int, groupID *string) *model.Booking {
	return &model.Booking{
		ID:               uuid.NewString(),
		TutorID:          req.TutorID,
		StudentID:        req.StudentID,
		Subject:          req.Subject,
		Message:          req.Message,
		SessionDate:      req.SessionDate,
		SessionTime:      req.SessionTime,
		SessionKind:      kind,
		MaxGroupSize:     maxSize,
		CurrentGroupSize: 1,
		GroupID:          groupID,
		Price:            req.Price,
		Status:           model.BookingStatusConfirmed,
	}
}

func (s *AllocationService) publishPair(booking *model.Booking, studentMsg, tutorMsg string) {
	link := "/bookings/" + booking.ID
	s.bus.Publish(events.Event{
		UserID:  booking.StudentID,
		Message: studentMsg,
		Link:    link,
		Kind:    model.NotificationKindBooking,
	})
	s.bus.Publish(events.Event{
		UserID:  booking.TutorID,
		Message: tutorMsg,
		Link:    link,
		Kind:    model.NotificationKindBooking,
	})
}
