package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/events"
	"github.com/learnloop/tutor_marketplace/internal/gateway"
	"github.com/learnloop/tutor_marketplace/internal/model"
)

// PaymentService starts checkouts and applies webhook confirmations. The
// webhook path is the only writer of a booking's paid flag.
type PaymentService struct {
	bookings BookingStore
	payments PaymentStore
	users    UserStore
	gateway  PaymentGateway
	bus      Publisher
	currency string
	logger   *zap.Logger
}

func NewPaymentService(
	bookings BookingStore,
	payments PaymentStore,
	users UserStore,
	gw PaymentGateway,
	bus Publisher,
	currency string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		bookings: bookings,
		payments: payments,
		users:    users,
		gateway:  gw,
		bus:      bus,
		currency: currency,
		logger:   logger,
	}
}

// Initialize opens a gateway checkout for a booking and records the
// pending payment.
func (s *PaymentService) Initialize(ctx context.Context, bookingID string) (*model.Payment, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, apperr.ErrNotFound)
	}

	student, err := s.users.GetByID(ctx, booking.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", booking.StudentID, apperr.ErrNotFound)
	}

	txRef := uuid.NewString()
	checkoutURL, err := s.gateway.Initialize(ctx, gateway.InitializeRequest{
		Amount:    booking.Price,
		Currency:  s.currency,
		Email:     student.Email,
		FirstName: student.Name,
		TxRef:     txRef,
	})
	if err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ID:          uuid.NewString(),
		BookingID:   booking.ID,
		TxRef:       txRef,
		Amount:      booking.Price,
		Currency:    s.currency,
		Status:      model.PaymentStatusPending,
		CheckoutURL: checkoutURL,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("Payment initialized",
		zap.String("booking_id", booking.ID),
		zap.String("tx_ref", txRef),
		zap.Float64("amount", payment.Amount),
	)

	return payment, nil
}

// HandleWebhook applies a gateway callback. The status is re-verified with
// the gateway; redelivery of an already-applied reference only retries the
// booking's paid flip if an earlier delivery lost it, and never re-notifies.
func (s *PaymentService) HandleWebhook(ctx context.Context, txRef string) error {
	if txRef == "" {
		return fmt.Errorf("tx_ref is required: %w", apperr.ErrValidation)
	}

	payment, err := s.payments.GetByTxRef(ctx, txRef)
	if err != nil {
		return err
	}
	if payment == nil {
		return fmt.Errorf("payment %s: %w", txRef, apperr.ErrNotFound)
	}

	status, err := s.gateway.Verify(ctx, txRef)
	if err != nil {
		return err
	}
	if status != "success" {
		s.logger.Warn("Webhook for unsuccessful transaction ignored",
			zap.String("tx_ref", txRef),
			zap.String("status", status),
		)
		return nil
	}

	changed, err := s.payments.MarkCompleted(ctx, txRef)
	if err != nil {
		return err
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return fmt.Errorf("booking %s: %w", payment.BookingID, apperr.ErrNotFound)
	}

	// Redelivery heals a booking whose paid flip was lost after the payment
	// completed: MarkPaid is idempotent, so retry it until it lands.
	if !booking.IsPaid {
		if err := s.bookings.MarkPaid(ctx, payment.BookingID); err != nil {
			return err
		}
		booking.IsPaid = true
	}

	if !changed {
		return nil
	}

	s.logger.Info("Payment confirmed",
		zap.String("tx_ref", txRef),
		zap.String("booking_id", payment.BookingID),
	)
	s.bus.Publish(events.Event{
		UserID:  booking.StudentID,
		Message: fmt.Sprintf("Your payment of %.2f %s was received.", payment.Amount, payment.Currency),
		Link:    "/bookings/" + booking.ID,
		Kind:    model.NotificationKindPayment,
	})
	s.bus.Publish(events.Event{
		UserID:  booking.TutorID,
		Message: fmt.Sprintf("The session on %s at %s is now paid.", booking.SessionDate, booking.SessionTime),
		Link:    "/bookings/" + booking.ID,
		Kind:    model.NotificationKindPayment,
	})

	return nil
}
