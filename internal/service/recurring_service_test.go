package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

func newRecurringFixture(t *testing.T) (*RecurringService, *fakeBookingStore, *fakeBus) {
	t.Helper()

	store := newFakeBookingStore()
	users := newFakeUserStore()
	users.addUser(&model.User{ID: "tutor-1", Role: model.RoleTutor, Name: "Vera", HourlyRate: 30})
	users.addUser(&model.User{ID: "tutor-free", Role: model.RoleTutor, Name: "Noor"})
	bus := &fakeBus{}

	return NewRecurringService(store, users, bus, 20, zap.NewNop()), store, bus
}

func recurringRequest() RecurringRequest {
	return RecurringRequest{
		TutorID:        "tutor-1",
		StudentID:      "student-1",
		StartDate:      "2024-06-03", // a Monday
		DurationMonths: 1,
		Weekdays:       []string{"monday", "wednesday"},
		SessionTime:    "10:00",
		Subject:        "algebra",
		Price:          25,
	}
}

func TestGenerateExpandsWeekdays(t *testing.T) {
	svc, store, bus := newRecurringFixture(t)

	result, err := svc.Generate(context.Background(), recurringRequest())
	require.NoError(t, err)

	// Five Mondays 06-03..07-01 and four Wednesdays 06-05..06-26; the end
	// bound 07-03 is excluded.
	wantDates := []string{
		"2024-06-03", "2024-06-05", "2024-06-10", "2024-06-12",
		"2024-06-17", "2024-06-19", "2024-06-24", "2024-06-26",
		"2024-07-01",
	}

	assert.Equal(t, len(wantDates), result.Count)
	assert.Equal(t, 25*float64(len(wantDates)), result.TotalPrice)
	assert.Equal(t, "2024-06-03", result.FirstDate)

	bookings, err := store.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, bookings, len(wantDates))

	got := make(map[string]bool)
	for _, b := range bookings {
		got[b.SessionDate] = true
		assert.Equal(t, model.BookingStatusPending, b.Status)
		assert.False(t, b.IsPaid)
		assert.Equal(t, "10:00", b.SessionTime)
		require.NotNil(t, b.RecurringSeriesID)
		assert.Equal(t, result.SeriesID, *b.RecurringSeriesID)
	}
	for _, d := range wantDates {
		assert.True(t, got[d], "missing session on %s", d)
	}

	// One aggregate notification per party, not per booking.
	assert.Len(t, bus.forUser("student-1"), 1)
	assert.Len(t, bus.forUser("tutor-1"), 1)
}

func TestGeneratePriceFallback(t *testing.T) {
	svc, store, _ := newRecurringFixture(t)
	ctx := context.Background()

	t.Run("tutor rate", func(t *testing.T) {
		req := recurringRequest()
		req.Price = 0
		result, err := svc.Generate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 30*float64(result.Count), result.TotalPrice)
	})

	t.Run("configured default", func(t *testing.T) {
		req := recurringRequest()
		req.Price = 0
		req.TutorID = "tutor-free"
		req.StudentID = "student-2"
		result, err := svc.Generate(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 20*float64(result.Count), result.TotalPrice)

		bookings, err := store.ListByStudent(ctx, "student-2")
		require.NoError(t, err)
		for _, b := range bookings {
			assert.Equal(t, float64(20), b.Price)
		}
	})
}

func TestGenerateNoSessions(t *testing.T) {
	svc, _, _ := newRecurringFixture(t)

	req := recurringRequest()
	req.Weekdays = []string{"noday"}

	_, err := svc.Generate(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrNoSessionsGenerated)
}

func TestGenerateValidation(t *testing.T) {
	svc, _, _ := newRecurringFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*RecurringRequest)
		want   error
	}{
		{"empty weekdays", func(r *RecurringRequest) { r.Weekdays = nil }, apperr.ErrValidation},
		{"zero duration", func(r *RecurringRequest) { r.DurationMonths = 0 }, apperr.ErrValidation},
		{"bad start date", func(r *RecurringRequest) { r.StartDate = "June 3rd" }, apperr.ErrValidation},
		{"missing time", func(r *RecurringRequest) { r.SessionTime = "" }, apperr.ErrValidation},
		{"unknown tutor", func(r *RecurringRequest) { r.TutorID = "tutor-missing" }, apperr.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := recurringRequest()
			tc.mutate(&req)
			_, err := svc.Generate(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// Recurring expansion does not consult existing bookings per date: a draft
// lands on a slot an individual booking already holds. This mirrors the
// shipped behavior; the partial unique index exempts recurring drafts.
func TestGenerateBypassesSlotExclusivity(t *testing.T) {
	svc, store, _ := newRecurringFixture(t)
	ctx := context.Background()

	existing := &model.Booking{
		ID:               "existing",
		TutorID:          "tutor-1",
		StudentID:        "someone-else",
		SessionDate:      "2024-06-03",
		SessionTime:      "10:00",
		SessionKind:      model.SessionKindIndividual,
		MaxGroupSize:     1,
		CurrentGroupSize: 1,
		Price:            30,
		Status:           model.BookingStatusConfirmed,
	}
	require.NoError(t, store.Create(ctx, existing))

	result, err := svc.Generate(ctx, recurringRequest())
	require.NoError(t, err)
	assert.Equal(t, 9, result.Count)

	atSlot, err := store.ListActiveAtSlot(ctx, "tutor-1", "2024-06-03", "10:00")
	require.NoError(t, err)
	assert.Len(t, atSlot, 2)
}

// A mid-batch failure keeps the rows already inserted; nothing rolls back.
func TestGeneratePartialBatch(t *testing.T) {
	svc, store, _ := newRecurringFixture(t)
	store.failBatchAfter = 3

	_, err := svc.Generate(context.Background(), recurringRequest())
	require.Error(t, err)

	bookings, listErr := store.ListByStudent(context.Background(), "student-1")
	require.NoError(t, listErr)
	assert.Len(t, bookings, 3)
}
