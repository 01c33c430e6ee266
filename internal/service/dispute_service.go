package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/gateway"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// PayoutPolicy is the injected payout configuration used when a dispute is
// rejected and the tutor is paid out.
type PayoutPolicy struct {
	CommissionRate float64
	MinPayout      float64
	Currency       string
}

// DisputeService manages filing and resolving billing disputes, including
// the external refund transfer.
type DisputeService struct {
	bookings BookingStore
	payments PaymentStore
	users    UserStore
	gateway  PaymentGateway
	bus      Publisher
	policy   PayoutPolicy
	logger   *zap.Logger
	now      func() time.Time
}

func NewDisputeService(
	bookings BookingStore,
	payments PaymentStore,
	users UserStore,
	gw PaymentGateway,
	bus Publisher,
	policy PayoutPolicy,
	logger *zap.Logger,
	now func() time.Time,
) *DisputeService {
	if now == nil {
		now = time.Now
	}
	return &DisputeService{
		bookings: bookings,
		payments: payments,
		users:    users,
		gateway:  gw,
		bus:      bus,
		policy:   policy,
		logger:   logger,
		now:      now,
	}
}

type FileDisputeRequest struct {
	BookingID     string
	FiledBy       string
	Reason        string
	AccountName   string
	AccountNumber string
	BankCode      string
}

// File opens a dispute against a booking. At most one dispute per booking;
// a second filing fails and leaves the existing record untouched.
func (s *DisputeService) File(ctx context.Context, req FileDisputeRequest) (*model.Booking, error) {
	if req.BookingID == "" || req.Reason == "" {
		return nil, fmt.Errorf("booking and reason are required: %w", apperr.ErrValidation)
	}

	booking, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", req.BookingID, apperr.ErrNotFound)
	}

	if req.FiledBy != booking.StudentID && req.FiledBy != booking.TutorID {
		return nil, fmt.Errorf("only a party to the booking may file: %w", apperr.ErrForbidden)
	}

	if booking.Dispute != nil {
		return nil, fmt.Errorf("booking %s: %w", req.BookingID, apperr.ErrAlreadyDisputed)
	}

	dispute := &model.Dispute{
		Reason:        req.Reason,
		FiledBy:       req.FiledBy,
		FiledAt:       s.now(),
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
	}

	if err := s.bookings.FileDispute(ctx, booking.ID, booking.Version, dispute); err != nil {
		return nil, err
	}
	booking.Dispute = dispute

	s.logger.Info("Dispute filed",
		zap.String("booking_id", booking.ID),
		zap.String("filed_by", req.FiledBy),
	)

	s.notifyParties(booking, "A billing dispute was filed for your session on "+booking.SessionDate+".")
	s.notifyAdmins(ctx, booking)

	return booking, nil
}

// Resolve adjudicates a filed dispute. The refunded path calls the payment
// bridge before any local write: a failed transfer leaves the dispute
// filed and unresolved, and the operation can be retried.
func (s *DisputeService) Resolve(ctx context.Context, bookingID string, outcome model.DisputeOutcome) (*model.Booking, error) {
	if outcome != model.DisputeOutcomeRefunded && outcome != model.DisputeOutcomeRejected {
		return nil, fmt.Errorf("outcome %q: %w", outcome, apperr.ErrValidation)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
	}

	dispute := booking.Dispute
	if dispute == nil {
		return nil, fmt.Errorf("booking %s has no dispute: %w", bookingID, apperr.ErrNotFound)
	}
	if dispute.Resolved {
		return nil, fmt.Errorf("dispute already resolved: %w", apperr.ErrValidation)
	}

	if outcome == model.DisputeOutcomeRejected {
		return s.resolveRejected(ctx, booking)
	}
	return s.resolveRefunded(ctx, booking)
}

func (s *DisputeService) resolveRejected(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	resolvedAt := s.now()

	// Status is unchanged on rejection; the tutor keeps the payout.
	err := s.bookings.ResolveDispute(ctx, booking.ID, booking.Version,
		model.DisputeOutcomeRejected, resolvedAt, true, booking.Status)
	if err != nil {
		return nil, err
	}

	booking.IsTutorPaid = true
	booking.Dispute.Resolved = true
	booking.Dispute.Outcome = model.DisputeOutcomeRejected
	booking.Dispute.ResolvedAt = &resolvedAt

	payout := booking.Price * (1 - s.policy.CommissionRate)
	s.logger.Info("Dispute rejected",
		zap.String("booking_id", booking.ID),
		zap.Float64("tutor_payout", payout),
	)
	if payout < s.policy.MinPayout {
		s.logger.Warn("Tutor payout below minimum, held for batching",
			zap.String("booking_id", booking.ID),
			zap.Float64("payout", payout),
			zap.Float64("min_payout", s.policy.MinPayout),
		)
	}

	s.notifyParties(booking, "The dispute for the session on "+booking.SessionDate+" was rejected.")

	return booking, nil
}

func (s *DisputeService) resolveRefunded(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	payment, err := s.payments.GetCompletedByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("booking %s: %w", booking.ID, apperr.ErrNoCompletedPayment)
	}

	dispute := booking.Dispute

	// The external transfer goes first. Nothing local is written until it
	// succeeds, so a failed transfer never strands a resolved dispute.
	err = s.gateway.Transfer(ctx, gateway.TransferRequest{
		AccountName:   dispute.AccountName,
		AccountNumber: dispute.AccountNumber,
		Amount:        payment.Amount,
		Reference:     "refund-" + booking.ID,
		BankCode:      dispute.BankCode,
		Currency:      payment.Currency,
	})
	if err != nil {
		s.logger.Error("Refund transfer failed, dispute left unresolved",
			zap.String("booking_id", booking.ID),
			zap.String("tx_ref", payment.TxRef),
			zap.Error(err),
		)
		return nil, err
	}

	resolvedAt := s.now()
	err = s.bookings.ResolveDispute(ctx, booking.ID, booking.Version,
		model.DisputeOutcomeRefunded, resolvedAt, false, model.BookingStatusCancelled)
	if err != nil {
		// Money already moved; the transfer reference refund-<booking id>
		// lets the gateway side be reconciled manually.
		s.logger.Error("Refunded transfer succeeded but local write failed",
			zap.String("booking_id", booking.ID),
			zap.Error(err),
		)
		return nil, err
	}

	booking.IsTutorPaid = false
	booking.Status = model.BookingStatusCancelled
	dispute.Resolved = true
	dispute.Outcome = model.DisputeOutcomeRefunded
	dispute.ResolvedAt = &resolvedAt

	s.logger.Info("Dispute refunded",
		zap.String("booking_id", booking.ID),
		zap.Float64("amount", payment.Amount),
	)

	s.notifyParties(booking, "The dispute for the session on "+booking.SessionDate+" was resolved with a refund.")

	return booking, nil
}

func (s *DisputeService) notifyParties(booking *model.Booking, message string) {
	link := "/bookings/" + booking.ID
	s.bus.Publish(events.Event{
		UserID:  booking.StudentID,
		Message: message,
		Link:    link,
		Kind:    model.NotificationKindDispute,
	})
	s.bus.Publish(events.Event{
		UserID:  booking.TutorID,
		Message: message,
		Link:    link,
		Kind:    model.NotificationKindDispute,
	})
}

func (s *DisputeService) notifyAdmins(ctx context.Context, booking *model.Booking) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		// Admin notification is best-effort like every other delivery.
		s.logger.Warn("List admins for dispute notification failed", zap.Error(err))
		return
	}
	for _, admin := range admins {
		s.bus.Publish(events.Event{
			UserID:  admin.ID,
			Message: "A dispute needs review for booking " + booking.ID + ".",
			Link:    "/bookings/" + booking.ID,
			Kind:    model.NotificationKindDispute,
		})
	}
}
