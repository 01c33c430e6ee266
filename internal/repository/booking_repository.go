package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/learnloop/tutor_marketplace/internal/apperr"
	"github.com/learnloop/tutor_marketplace/internal/model"
	"github.com/learnloop/tutor_marketplace/internal/repository/base"
)

const bookingColumns = `
	id, tutor_id, student_id, subject, message,
	session_date, session_time, session_kind,
	max_group_size, current_group_size, group_id,
	price, is_paid, is_tutor_paid, status, recurring_series_id,
	was_rescheduled, old_date, old_time, reschedule_note,
	dispute_filed, dispute_reason, dispute_filed_by, dispute_resolved,
	dispute_outcome, dispute_filed_at, dispute_resolved_at,
	dispute_account_name, dispute_account_number, dispute_bank_code,
	version, created_at, updated_at`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// Create inserts a booking. The partial unique index on the slot key turns
// a concurrent individual double-booking into apperr.ErrSlotTaken.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			id, tutor_id, student_id, subject, message,
			session_date, session_time, session_kind,
			max_group_size, current_group_size, group_id,
			price, is_paid, is_tutor_paid, status, recurring_series_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING version, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.ID,
		booking.TutorID,
		booking.StudentID,
		booking.Subject,
		booking.Message,
		booking.SessionDate,
		booking.SessionTime,
		booking.SessionKind,
		booking.MaxGroupSize,
		booking.CurrentGroupSize,
		booking.GroupID,
		booking.Price,
		booking.IsPaid,
		booking.IsTutorPaid,
		booking.Status,
		booking.RecurringSeriesID,
	).Scan(&booking.Version, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return fmt.Errorf("create booking: %w", apperr.ErrSlotTaken)
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// CreateBatch inserts recurring drafts in one round trip. The rows are
// independent; a mid-batch failure leaves earlier rows in place and the
// returned count reflects what was actually inserted.
func (r *BookingRepository) CreateBatch(ctx context.Context, bookings []*model.Booking) (int, error) {
	query := `
		INSERT INTO bookings (
			id, tutor_id, student_id, subject, message,
			session_date, session_time, session_kind,
			max_group_size, current_group_size, group_id,
			price, is_paid, is_tutor_paid, status, recurring_series_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	batch := &pgx.Batch{}
	for _, b := range bookings {
		batch.Queue(query,
			b.ID, b.TutorID, b.StudentID, b.Subject, b.Message,
			b.SessionDate, b.SessionTime, b.SessionKind,
			b.MaxGroupSize, b.CurrentGroupSize, b.GroupID,
			b.Price, b.IsPaid, b.IsTutorPaid, b.Status, b.RecurringSeriesID,
		)
	}

	results := r.Pool().SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range bookings {
		if _, err := results.Exec(); err != nil {
			return inserted, fmt.Errorf("batch insert bookings: %w", err)
		}
		inserted++
	}

	return inserted, nil
}

// GetByID returns the booking or (nil, nil) when it does not exist.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListActiveAtSlot returns pending and confirmed bookings at the slot key.
func (r *BookingRepository) ListActiveAtSlot(ctx context.Context, tutorID, sessionDate, sessionTime string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1 AND session_date = $2 AND session_time = $3
		  AND status IN ('pending', 'confirmed')
		ORDER BY created_at ASC
	`

	return r.list(ctx, "list bookings at slot", query, tutorID, sessionDate, sessionTime)
}

// ListByStudent returns all bookings of a student, newest first.
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE student_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, "list bookings by student", query, studentID)
}

// ListByTutor returns all bookings of a tutor, newest first.
func (r *BookingRepository) ListByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, "list bookings by tutor", query, tutorID)
}

// ListActiveByTutor returns the tutor's pending and confirmed bookings.
// The availability calculation runs over this set.
func (r *BookingRepository) ListActiveByTutor(ctx context.Context, tutorID string) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tutor_id = $1 AND status IN ('pending', 'confirmed')
		ORDER BY session_date, session_time
	`

	return r.list(ctx, "list active bookings by tutor", query, tutorID)
}

// IncrementGroupSize bumps the anchor's counter with an optimistic version
// check. The capacity predicate keeps the counter within max_group_size
// even when two joiners race past the service-level check.
func (r *BookingRepository) IncrementGroupSize(ctx context.Context, id string, version int64) error {
	query := `
		UPDATE bookings
		SET current_group_size = current_group_size + 1,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $2 AND current_group_size < max_group_size
	`

	affected, err := r.ExecAffected(ctx, query, id, version)
	if err != nil {
		return fmt.Errorf("increment group size: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("increment group size: %w", apperr.ErrVersionConflict)
	}

	return nil
}

// UpdateStatus flips the lifecycle status.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2
	`

	affected, err := r.ExecAffected(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update booking status: %w", apperr.ErrNotFound)
	}

	return nil
}

// MarkPaid sets is_paid after webhook confirmation. This is the only write
// path for the flag.
func (r *BookingRepository) MarkPaid(ctx context.Context, id string) error {
	query := `
		UPDATE bookings
		SET is_paid = true, version = version + 1, updated_at = now()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark booking paid: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark booking paid: %w", apperr.ErrNotFound)
	}

	return nil
}

// Reschedule overwrites the slot and records the prior one, guarded by the
// version the caller read.
func (r *BookingRepository) Reschedule(ctx context.Context, id string, version int64, newDate, newTime, oldDate, oldTime, note string) error {
	query := `
		UPDATE bookings
		SET session_date = $1, session_time = $2,
		    was_rescheduled = true, old_date = $3, old_time = $4, reschedule_note = $5,
		    version = version + 1, updated_at = now()
		WHERE id = $6 AND version = $7
	`

	affected, err := r.ExecAffected(ctx, query, newDate, newTime, oldDate, oldTime, note, id, version)
	if err != nil {
		return fmt.Errorf("reschedule booking: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reschedule booking: %w", apperr.ErrVersionConflict)
	}

	return nil
}

// FileDispute writes the dispute sub-entity, guarded by version so two
// concurrent filings cannot both land.
func (r *BookingRepository) FileDispute(ctx context.Context, id string, version int64, d *model.Dispute) error {
	query := `
		UPDATE bookings
		SET dispute_filed = true,
		    dispute_reason = $1,
		    dispute_filed_by = $2,
		    dispute_filed_at = $3,
		    dispute_account_name = $4,
		    dispute_account_number = $5,
		    dispute_bank_code = $6,
		    version = version + 1, updated_at = now()
		WHERE id = $7 AND version = $8 AND dispute_filed = false
	`

	affected, err := r.ExecAffected(ctx, query,
		d.Reason, d.FiledBy, d.FiledAt,
		d.AccountName, d.AccountNumber, d.BankCode,
		id, version,
	)
	if err != nil {
		return fmt.Errorf("file dispute: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("file dispute: %w", apperr.ErrVersionConflict)
	}

	return nil
}

// ResolveDispute writes the full resolution in one statement: outcome,
// resolved flags and the booking-side effects land together or not at all.
func (r *BookingRepository) ResolveDispute(ctx context.Context, id string, version int64, outcome model.DisputeOutcome, resolvedAt time.Time, isTutorPaid bool, status model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET dispute_resolved = true,
		    dispute_outcome = $1,
		    dispute_resolved_at = $2,
		    is_tutor_paid = $3,
		    status = $4,
		    version = version + 1, updated_at = now()
		WHERE id = $5 AND version = $6 AND dispute_filed = true AND dispute_resolved = false
	`

	affected, err := r.ExecAffected(ctx, query, outcome, resolvedAt, isTutorPaid, status, id, version)
	if err != nil {
		return fmt.Errorf("resolve dispute: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resolve dispute: %w", apperr.ErrVersionConflict)
	}

	return nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking    model.Booking
		oldDate    *string
		oldTime    *string
		note       *string
		filed      bool
		reason     *string
		filedBy    *string
		resolved   bool
		outcome    *string
		filedAt    *time.Time
		resolvedAt *time.Time
		accName    *string
		accNumber  *string
		bankCode   *string
	)

	err := row.Scan(
		&booking.ID,
		&booking.TutorID,
		&booking.StudentID,
		&booking.Subject,
		&booking.Message,
		&booking.SessionDate,
		&booking.SessionTime,
		&booking.SessionKind,
		&booking.MaxGroupSize,
		&booking.CurrentGroupSize,
		&booking.GroupID,
		&booking.Price,
		&booking.IsPaid,
		&booking.IsTutorPaid,
		&booking.Status,
		&booking.RecurringSeriesID,
		&booking.WasRescheduled,
		&oldDate,
		&oldTime,
		&note,
		&filed,
		&reason,
		&filedBy,
		&resolved,
		&outcome,
		&filedAt,
		&resolvedAt,
		&accName,
		&accNumber,
		&bankCode,
		&booking.Version,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if oldDate != nil {
		booking.OldDate = *oldDate
	}
	if oldTime != nil {
		booking.OldTime = *oldTime
	}
	if note != nil {
		booking.RescheduleNote = *note
	}

	if filed {
		dispute := &model.Dispute{Resolved: resolved}
		if reason != nil {
			dispute.Reason = *reason
		}
		if filedBy != nil {
			dispute.FiledBy = *filedBy
		}
		if outcome != nil {
			dispute.Outcome = model.DisputeOutcome(*outcome)
		}
		if filedAt != nil {
			dispute.FiledAt = *filedAt
		}
		dispute.ResolvedAt = resolvedAt
		if accName != nil {
			dispute.AccountName = *accName
		}
		if accNumber != nil {
			dispute.AccountNumber = *accNumber
		}
		if bankCode != nil {
			dispute.BankCode = *bankCode
		}
		booking.Dispute = dispute
	}

	return &booking, nil
}
