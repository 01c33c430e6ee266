package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnloop/tutor_marketplace/internal/model"
	"github.com/learnloop/tutor_marketplace/internal/repository/base"
)

type PaymentRepository struct {
	*base.Repository
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{Repository: base.NewRepository(pool)}
}

// Create inserts a pending payment record.
func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, tx_ref, amount, currency, status, checkout_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		payment.ID,
		payment.BookingID,
		payment.TxRef,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.CheckoutURL,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}

	return nil
}

// GetByTxRef returns the payment or (nil, nil) when the reference is unknown.
func (r *PaymentRepository) GetByTxRef(ctx context.Context, txRef string) (*model.Payment, error) {
	query := `
		SELECT id, booking_id, tx_ref, amount, currency, status, checkout_url, created_at, updated_at
		FROM payments
		WHERE tx_ref = $1
	`

	payment, err := r.scanOne(r.QueryRow(ctx, query, txRef))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by tx_ref: %w", err)
	}

	return payment, nil
}

// GetCompletedByBookingID returns the completed payment for a booking, or
// (nil, nil) when none exists. The refund flow depends on this lookup.
func (r *PaymentRepository) GetCompletedByBookingID(ctx context.Context, bookingID string) (*model.Payment, error) {
	query := `
		SELECT id, booking_id, tx_ref, amount, currency, status, checkout_url, created_at, updated_at
		FROM payments
		WHERE booking_id = $1 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`

	payment, err := r.scanOne(r.QueryRow(ctx, query, bookingID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get completed payment by booking: %w", err)
	}

	return payment, nil
}

// MarkCompleted flips a pending payment to completed. Returns false when
// the payment was already completed, which makes webhook redelivery a no-op.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, txRef string) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'completed', updated_at = now()
		WHERE tx_ref = $1 AND status = 'pending'
	`

	affected, err := r.ExecAffected(ctx, query, txRef)
	if err != nil {
		return false, fmt.Errorf("mark payment completed: %w", err)
	}

	return affected > 0, nil
}

func (r *PaymentRepository) scanOne(row pgx.Row) (*model.Payment, error) {
	var payment model.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.TxRef,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CheckoutURL,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
