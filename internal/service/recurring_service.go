package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

const dateLayout = "2006-01-02"

// RecurringService expands a recurring booking request into a batch of
// dated pending drafts.
//
// The expansion deliberately does not consult existing bookings per date:
// recurring drafts claim their slots without the allocator's exclusivity
// check, matching the behavior the product shipped with.
type RecurringService struct {
	bookings     BookingStore
	users        UserStore
	bus          Publisher
	logger       *zap.Logger
	defaultPrice float64
}

func NewRecurringService(bookings BookingStore, users UserStore, bus Publisher, defaultPrice float64, logger *zap.Logger) *RecurringService {
	return &RecurringService{
		bookings:     bookings,
		users:        users,
		bus:          bus,
		logger:       logger,
		defaultPrice: defaultPrice,
	}
}

type RecurringRequest struct {
	TutorID        string
	StudentID      string
	StartDate      string
	DurationMonths int
	Weekdays       []string
	SessionTime    string
	Subject        string
	Message        string
	Price          float64
}

type RecurringResult struct {
	SeriesID   string  `json:"series_id"`
	Count      int     `json:"count"`
	TotalPrice float64 `json:"total_price"`
	FirstDate  string  `json:"first_date"`
}

// Generate materializes one pending draft for every calendar day in
// [startDate, startDate+months) whose weekday is requested, inserts them as
// one batch and notifies both parties once for the whole series.
func (s *RecurringService) Generate(ctx context.Context, req RecurringRequest) (*RecurringResult, error) {
	if req.TutorID == "" || req.StudentID == "" || req.SessionTime == "" {
		return nil, fmt.Errorf("tutor, student and time are required: %w", apperr.ErrValidation)
	}
	if req.DurationMonths < 1 {
		return nil, fmt.Errorf("duration must be at least one month: %w", apperr.ErrValidation)
	}
	if len(req.Weekdays) == 0 {
		return nil, fmt.Errorf("at least one weekday is required: %w", apperr.ErrValidation)
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start date %q: %w", req.StartDate, apperr.ErrValidation)
	}

	tutor, err := s.users.GetByID(ctx, req.TutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return nil, fmt.Errorf("tutor %s: %w", req.TutorID, apperr.ErrNotFound)
	}

	price := req.Price
	if price == 0 {
		price = tutor.HourlyRate
	}
	if price == 0 {
		price = s.defaultPrice
	}

	wanted := make(map[string]bool, len(req.Weekdays))
	for _, day := range req.Weekdays {
		wanted[strings.ToLower(strings.TrimSpace(day))] = true
	}

	seriesID := uuid.NewString()
	end := start.AddDate(0, req.DurationMonths, 0)

	var drafts []*model.Booking
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if !wanted[strings.ToLower(d.Weekday().String())] {
			continue
		}
		drafts = append(drafts, &model.Booking{
			ID:                uuid.NewString(),
			TutorID:           req.TutorID,
			StudentID:         req.StudentID,
			Subject:           req.Subject,
			Message:           req.Message,
			SessionDate:       d.Format(dateLayout),
			SessionTime:       req.SessionTime,
			SessionKind:       model.SessionKindIndividual,
			MaxGroupSize:      1,
			CurrentGroupSize:  1,
			Price:             price,
			Status:            model.BookingStatusPending,
			RecurringSeriesID: &seriesID,
		})
	}

	if len(drafts) == 0 {
		return nil, fmt.Errorf("no day in range matches %v: %w", req.Weekdays, apperr.ErrNoSessionsGenerated)
	}

	inserted, err := s.bookings.CreateBatch(ctx, drafts)
	if err != nil {
		// The batch is not atomic: rows inserted before the failure stay.
		s.logger.Error("Recurring batch insert failed",
			zap.String("series_id", seriesID),
			zap.Int("inserted", inserted),
			zap.Int("requested", len(drafts)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("insert recurring drafts: %w", err)
	}

	result := &RecurringResult{
		SeriesID:   seriesID,
		Count:      inserted,
		TotalPrice: price * float64(inserted),
		FirstDate:  drafts[0].SessionDate,
	}

	s.logger.Info("Recurring series generated",
		zap.String("series_id", seriesID),
		zap.String("tutor_id", req.TutorID),
		zap.String("student_id", req.StudentID),
		zap.Int("count", result.Count),
		zap.Float64("total_price", result.TotalPrice),
	)

	s.bus.Publish(events.Event{
		UserID: req.StudentID,
		Message: fmt.Sprintf("Booked %d recurring sessions starting %s, total %.2f.",
			result.Count, result.FirstDate, result.TotalPrice),
		Kind: model.NotificationKindBooking,
	})
	s.bus.Publish(events.Event{
		UserID: req.TutorID,
		Message: fmt.Sprintf("A student booked %d recurring sessions starting %s.",
			result.Count, result.FirstDate),
		Kind: model.NotificationKindBooking,
	})

	return result, nil
}
