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

func newAllocationFixture(t *testing.T) (*AllocationService, *fakeBookingStore, *fakeBus) {
	t.Helper()

	store := newFakeBookingStore()
	users := newFakeUserStore()
	users.addUser(&model.User{ID: "tutor-1", Role: model.RoleTutor, Name: "Vera", HourlyRate: 30})
	users.addUser(&model.User{ID: "student-1", Role: model.RoleStudent, Name: "Amin"})
	bus := &fakeBus{}

	return NewAllocationService(store, users, bus, zap.NewNop()), store, bus
}

func individualRequest(studentID string) AllocateRequest {
	return AllocateRequest{
		TutorID:     "tutor-1",
		StudentID:   studentID,
		Price:       30,
		SessionDate: "2024-07-01",
		SessionTime: "10:00",
		Subject:     "algebra",
		SessionKind: model.SessionKindIndividual,
	}
}

func groupRequest(studentID string) AllocateRequest {
	req := individualRequest(studentID)
	req.SessionKind = model.SessionKindGroup
	return req
}

func TestAllocateIndividual(t *testing.T) {
	svc, _, bus := newAllocationFixture(t)

	booking, err := svc.Allocate(context.Background(), individualRequest("student-1"))
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, 1, booking.MaxGroupSize)
	assert.Equal(t, 1, booking.CurrentGroupSize)
	assert.Nil(t, booking.GroupID)

	assert.Len(t, bus.forUser("student-1"), 1)
	assert.Len(t, bus.forUser("tutor-1"), 1)
}

func TestAllocateValidation(t *testing.T) {
	svc, _, _ := newAllocationFixture(t)
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		req := individualRequest("student-1")
		req.Price = 0
		_, err := svc.Allocate(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("invalid session kind", func(t *testing.T) {
		req := individualRequest("student-1")
		req.SessionKind = "workshop"
		_, err := svc.Allocate(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidSessionType)
	})

	t.Run("unknown tutor", func(t *testing.T) {
		req := individualRequest("student-1")
		req.TutorID = "tutor-missing"
		_, err := svc.Allocate(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestAllocateIndividualSlotTaken(t *testing.T) {
	svc, _, _ := newAllocationFixture(t)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, individualRequest("student-1"))
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, individualRequest("student-2"))
	assert.ErrorIs(t, err, apperr.ErrSlotTaken)
}

func TestAllocateIndividualBlockedByGroup(t *testing.T) {
	svc, _, _ := newAllocationFixture(t)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, groupRequest("student-1"))
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, individualRequest("student-2"))
	assert.ErrorIs(t, err, apperr.ErrSlotTaken)
}

func TestAllocateGroupBlockedByIndividual(t *testing.T) {
	svc, _, _ := newAllocationFixture(t)
	ctx := context.Background()

	_, err := svc.Allocate(ctx, individualRequest("student-1"))
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, groupRequest("student-2"))
	assert.ErrorIs(t, err, apperr.ErrSlotTaken)
}

func TestAllocateGroupCreateAndJoin(t *testing.T) {
	svc, store, _ := newAllocationFixture(t)
	ctx := context.Background()

	anchor, err := svc.Allocate(ctx, groupRequest("student-1"))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultGroupSize, anchor.MaxGroupSize)
	assert.Equal(t, 1, anchor.CurrentGroupSize)
	assert.Nil(t, anchor.GroupID)

	joiner, err := svc.Allocate(ctx, groupRequest("student-2"))
	require.NoError(t, err)
	require.NotNil(t, joiner.GroupID)
	assert.Equal(t, anchor.ID, *joiner.GroupID)
	assert.Equal(t, 1, joiner.CurrentGroupSize)

	stored, err := store.GetByID(ctx, anchor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.CurrentGroupSize)
}

func TestAllocateGroupFull(t *testing.T) {
	svc, store, _ := newAllocationFixture(t)
	ctx := context.Background()

	anchor, err := svc.Allocate(ctx, groupRequest("student-1"))
	require.NoError(t, err)

	for i := 2; i <= model.DefaultGroupSize; i++ {
		_, err := svc.Allocate(ctx, groupRequest("student-"+string(rune('0'+i))))
		require.NoError(t, err)
	}

	before, err := store.ListActiveAtSlot(ctx, "tutor-1", "2024-07-01", "10:00")
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, groupRequest("student-late"))
	assert.ErrorIs(t, err, apperr.ErrGroupFull)

	// A failed join mutates nothing.
	after, err := store.ListActiveAtSlot(ctx, "tutor-1", "2024-07-01", "10:00")
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	stored, err := store.GetByID(ctx, anchor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultGroupSize, stored.CurrentGroupSize)
}

// After any sequence of allocations, a slot key holds either one individual
// booking or one anchor with exactly currentGroupSize-1 joiners.
func TestSlotExclusivityInvariant(t *testing.T) {
	svc, store, _ := newAllocationFixture(t)
	ctx := context.Background()

	students := []string{"s1", "s2", "s3", "s4"}
	for _, s := range students {
		_, err := svc.Allocate(ctx, groupRequest(s))
		require.NoError(t, err)
	}
	_, err := svc.Allocate(ctx, individualRequest("s5"))
	assert.ErrorIs(t, err, apperr.ErrSlotTaken)

	bookings, err := store.ListActiveAtSlot(ctx, "tutor-1", "2024-07-01", "10:00")
	require.NoError(t, err)

	var anchor *model.Booking
	joiners := 0
	for _, b := range bookings {
		require.Equal(t, model.SessionKindGroup, b.SessionKind)
		if b.IsGroupAnchor() {
			require.Nil(t, anchor, "exactly one anchor per slot key")
			anchor = b
		} else {
			joiners++
		}
	}
	require.NotNil(t, anchor)
	assert.Equal(t, anchor.CurrentGroupSize-1, joiners)
}

func TestAllocateAfterCancellationFreesSlot(t *testing.T) {
	svc, store, _ := newAllocationFixture(t)
	ctx := context.Background()

	booking, err := svc.Allocate(ctx, individualRequest("student-1"))
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, booking.ID, model.BookingStatusCancelled))

	_, err = svc.Allocate(ctx, individualRequest("student-2"))
	assert.NoError(t, err)
}
