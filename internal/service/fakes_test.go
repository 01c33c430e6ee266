package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/gateway"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// fixedNow is the reference clock for the lifecycle tests.
var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testClock() func() time.Time {
	return func() time.Time { return fixedNow }
}

// fakeBookingStore mirrors the repository semantics in memory, including
// the unique-index behavior on individual slots and the version checks.
type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking

	failBatchAfter   int  // insert this many batch rows, then fail; 0 = never
	failMarkPaidOnce bool // fail the next MarkPaid call, then recover
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{bookings: make(map[string]*model.Booking)}
}

func cloneBooking(b *model.Booking) *model.Booking {
	c := *b
	if b.GroupID != nil {
		groupID := *b.GroupID
		c.GroupID = &groupID
	}
	if b.RecurringSeriesID != nil {
		seriesID := *b.RecurringSeriesID
		c.RecurringSeriesID = &seriesID
	}
	if b.Dispute != nil {
		d := *b.Dispute
		if b.Dispute.ResolvedAt != nil {
			at := *b.Dispute.ResolvedAt
			d.ResolvedAt = &at
		}
		c.Dispute = &d
	}
	return &c
}

func (f *fakeBookingStore) insert(b *model.Booking) {
	c := cloneBooking(b)
	c.Version = 1
	c.CreatedAt = fixedNow
	c.UpdatedAt = fixedNow
	f.bookings[c.ID] = c
	b.Version = c.Version
}

func (f *fakeBookingStore) Create(ctx context.Context, booking *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// The partial unique index: one active, non-recurring individual
	// booking per slot key.
	if booking.SessionKind == model.SessionKindIndividual && booking.RecurringSeriesID == nil {
		for _, b := range f.bookings {
			if b.TutorID == booking.TutorID &&
				b.SessionDate == booking.SessionDate &&
				b.SessionTime == booking.SessionTime &&
				b.Active() &&
				b.SessionKind == model.SessionKindIndividual &&
				b.RecurringSeriesID == nil {
				return fmt.Errorf("create booking: %w", apperr.ErrSlotTaken)
			}
		}
	}

	f.insert(booking)
	return nil
}

func (f *fakeBookingStore) CreateBatch(ctx context.Context, bookings []*model.Booking) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	inserted := 0
	for _, b := range bookings {
		if f.failBatchAfter > 0 && inserted >= f.failBatchAfter {
			return inserted, fmt.Errorf("batch insert bookings: connection reset")
		}
		f.insert(b)
		inserted++
	}
	return inserted, nil
}

func (f *fakeBookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	return cloneBooking(b), nil
}

func (f *fakeBookingStore) ListActiveAtSlot(ctx context.Context, tutorID, sessionDate, sessionTime string) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Booking
	for _, b := range f.bookings {
		if b.TutorID == tutorID && b.SessionDate == sessionDate && b.SessionTime == sessionTime && b.Active() {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListByStudent(ctx context.Context, studentID string) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Booking
	for _, b := range f.bookings {
		if b.StudentID == studentID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Booking
	for _, b := range f.bookings {
		if b.TutorID == tutorID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (f *fakeBookingStore) ListActiveByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Booking
	for _, b := range f.bookings {
		if b.TutorID == tutorID && b.Active() {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (f *fakeBookingStore) IncrementGroupSize(ctx context.Context, id string, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || b.Version != version || b.CurrentGroupSize >= b.MaxGroupSize {
		return fmt.Errorf("increment group size: %w", apperr.ErrVersionConflict)
	}
	b.CurrentGroupSize++
	b.Version++
	return nil
}

func (f *fakeBookingStore) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("update booking status: %w", apperr.ErrNotFound)
	}
	b.Status = status
	b.Version++
	return nil
}

func (f *fakeBookingStore) MarkPaid(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failMarkPaidOnce {
		f.failMarkPaidOnce = false
		return fmt.Errorf("mark booking paid: connection reset")
	}

	b, ok := f.bookings[id]
	if !ok {
		return fmt.Errorf("mark booking paid: %w", apperr.ErrNotFound)
	}
	b.IsPaid = true
	b.Version++
	return nil
}

func (f *fakeBookingStore) Reschedule(ctx context.Context, id string, version int64, newDate, newTime, oldDate, oldTime, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || b.Version != version {
		return fmt.Errorf("reschedule booking: %w", apperr.ErrVersionConflict)
	}
	b.SessionDate = newDate
	b.SessionTime = newTime
	b.WasRescheduled = true
	b.OldDate = oldDate
	b.OldTime = oldTime
	b.RescheduleNote = note
	b.Version++
	return nil
}

func (f *fakeBookingStore) FileDispute(ctx context.Context, id string, version int64, d *model.Dispute) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || b.Version != version || b.Dispute != nil {
		return fmt.Errorf("file dispute: %w", apperr.ErrVersionConflict)
	}
	dispute := *d
	b.Dispute = &dispute
	b.Version++
	return nil
}

func (f *fakeBookingStore) ResolveDispute(ctx context.Context, id string, version int64, outcome model.DisputeOutcome, resolvedAt time.Time, isTutorPaid bool, status model.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bookings[id]
	if !ok || b.Version != version || b.Dispute == nil || b.Dispute.Resolved {
		return fmt.Errorf("resolve dispute: %w", apperr.ErrVersionConflict)
	}
	b.Dispute.Resolved = true
	b.Dispute.Outcome = outcome
	at := resolvedAt
	b.Dispute.ResolvedAt = &at
	b.IsTutorPaid = isTutorPaid
	b.Status = status
	b.Version++
	return nil
}

type fakeUserStore struct {
	users     map[string]*model.User
	templates map[string]model.WeeklyTemplate
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:     make(map[string]*model.User),
		templates: make(map[string]model.WeeklyTemplate),
	}
}

func (f *fakeUserStore) addUser(u *model.User) {
	f.users[u.ID] = u
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) ListTutors(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.Role == model.RoleTutor {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) ListAdmins(ctx context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.Role == model.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) GetTemplate(ctx context.Context, tutorID string) (model.WeeklyTemplate, error) {
	if t, ok := f.templates[tutorID]; ok {
		return t, nil
	}
	return model.WeeklyTemplate{}, nil
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]*model.Payment // by tx_ref
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]*model.Payment)}
}

func (f *fakePaymentStore) Create(ctx context.Context, payment *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := *payment
	f.payments[p.TxRef] = &p
	return nil
}

func (f *fakePaymentStore) GetByTxRef(ctx context.Context, txRef string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[txRef]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (f *fakePaymentStore) GetCompletedByBookingID(ctx context.Context, bookingID string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status == model.PaymentStatusCompleted {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakePaymentStore) MarkCompleted(ctx context.Context, txRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[txRef]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusCompleted
	return true, nil
}

// fakeBus records published events synchronously.
type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakeBus) Publish(event events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBus) forUser(userID string) []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []events.Event
	for _, e := range f.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

type fakeGateway struct {
	checkoutURL  string
	verifyStatus string
	transferErr  error

	transfers []gateway.TransferRequest
}

func (f *fakeGateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (string, error) {
	if f.checkoutURL == "" {
		return "https://checkout.example/" + req.TxRef, nil
	}
	return f.checkoutURL, nil
}

func (f *fakeGateway) Verify(ctx context.Context, txRef string) (string, error) {
	if f.verifyStatus == "" {
		return "success", nil
	}
	return f.verifyStatus, nil
}

func (f *fakeGateway) Transfer(ctx context.Context, req gateway.TransferRequest) error {
	f.transfers = append(f.transfers, req)
	if f.transferErr != nil {
		return f.transferErr
	}
	return nil
}
