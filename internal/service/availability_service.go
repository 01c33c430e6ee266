package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// AvailabilityService classifies tutors as available or unavailable from
// their weekly template and their confirmed individual bookings.
type AvailabilityService struct {
	bookings BookingStore
	users    UserStore
}

func NewAvailabilityService(bookings BookingStore, users UserStore) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, users: users}
}

// ClassifyTutor derives the availability annotation for one tutor.
func (s *AvailabilityService) ClassifyTutor(ctx context.Context, tutorID string) (model.TutorAvailability, error) {
	tutor, err := s.users.GetByID(ctx, tutorID)
	if err != nil {
		return model.TutorAvailability{}, fmt.Errorf("get tutor: %w", err)
	}
	if tutor == nil {
		return model.TutorAvailability{}, fmt.Errorf("tutor %s: %w", tutorID, apperr.ErrNotFound)
	}

	template, err := s.users.GetTemplate(ctx, tutorID)
	if err != nil {
		return model.TutorAvailability{}, err
	}

	bookings, err := s.bookings.ListActiveByTutor(ctx, tutorID)
	if err != nil {
		return model.TutorAvailability{}, err
	}

	return Classify(template, bookings), nil
}

// TutorListing is a tutor annotated for search/listing consumers.
type TutorListing struct {
	Tutor        *model.User             `json:"tutor"`
	Availability model.TutorAvailability `json:"availability"`
}

// ListTutors returns all verified tutors with their availability
// annotation.
func (s *AvailabilityService) ListTutors(ctx context.Context) ([]TutorListing, error) {
	tutors, err := s.users.ListTutors(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]TutorListing, 0, len(tutors))
	for _, tutor := range tutors {
		template, err := s.users.GetTemplate(ctx, tutor.ID)
		if err != nil {
			return nil, err
		}
		bookings, err := s.bookings.ListActiveByTutor(ctx, tutor.ID)
		if err != nil {
			return nil, err
		}
		listings = append(listings, TutorListing{
			Tutor:        tutor,
			Availability: Classify(template, bookings),
		})
	}

	return listings, nil
}

// Classify runs the weekday-based availability derivation.
//
// The calculation is weekday-based, not date-based: one confirmed
// individual booking on a weekday/time pair counts that weekly slot as
// booked from then on. Template times are normalized to HH:MM; booked
// times are compared raw. Both behaviors are load-bearing for the search
// filter and are pinned by tests.
func Classify(template model.WeeklyTemplate, bookings []*model.Booking) model.TutorAvailability {
	result := model.TutorAvailability{Status: model.AvailabilityAvailable}

	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		switch b.SessionKind {
		case model.SessionKindIndividual:
			result.HasIndividualBookings = true
		case model.SessionKindGroup:
			result.HasGroupBookings = true
		}
	}

	weekly := weeklySlotKeys(template)
	if len(weekly) == 0 {
		// No usable template day: the tutor is listed unconditionally.
		return result
	}

	booked := bookedSlotKeys(bookings)

	for key := range weekly {
		if !booked[key] {
			return result
		}
	}

	result.Status = model.AvailabilityUnavailable
	result.IsFullyBookedIndividually = true
	return result
}

func weeklySlotKeys(template model.WeeklyTemplate) map[string]bool {
	keys := make(map[string]bool)
	for weekday, day := range template {
		if !day.Available {
			continue
		}
		from := NormalizeTime(day.From)
		if from == "" {
			continue
		}
		keys[strings.ToLower(weekday)+":"+from] = true
	}
	return keys
}

// bookedSlotKeys maps each confirmed individual booking to weekday:time,
// keeping the session time exactly as stored. Group bookings never
// constrain availability.
func bookedSlotKeys(bookings []*model.Booking) map[string]bool {
	keys := make(map[string]bool)
	for _, b := range bookings {
		if b.SessionKind != model.SessionKindIndividual || b.Status != model.BookingStatusConfirmed {
			continue
		}
		date, err := time.Parse(dateLayout, b.SessionDate)
		if err != nil {
			continue
		}
		keys[strings.ToLower(date.Weekday().String())+":"+b.SessionTime] = true
	}
	return keys
}

// NormalizeTime brings a template time to HH:MM, zero-padding bare hour
// values ("9" -> "09:00", "9:30" -> "09:30"). Returns "" for unusable
// input.
func NormalizeTime(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	hour, minute := raw, "00"
	if i := strings.Index(raw, ":"); i >= 0 {
		hour, minute = raw[:i], raw[i+1:]
	}
	if hour == "" || len(hour) > 2 || minute == "" || len(minute) > 2 {
		return ""
	}
	if len(hour) == 1 {
		hour = "0" + hour
	}
	if len(minute) == 1 {
		minute = "0" + minute
	}

	return hour + ":" + minute
}
