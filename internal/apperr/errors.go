// Package apperr holds the sentinel errors shared by the service and
// controller layers. Services wrap them with context via fmt.Errorf and
// callers match with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation covers missing or malformed input. Never retried.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidSessionType is returned for a session kind other than
	// individual or group.
	ErrInvalidSessionType = errors.New("invalid session type")

	// ErrSlotTaken means the requested slot key already holds a booking
	// that excludes the request.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrGroupFull means the group anchor at the slot key is at capacity.
	ErrGroupFull = errors.New("group is full")

	// ErrNoSessionsGenerated means no day in the requested range matched
	// any of the requested weekdays.
	ErrNoSessionsGenerated = errors.New("no sessions generated")

	// ErrAlreadyDisputed means the booking already carries a filed dispute.
	ErrAlreadyDisputed = errors.New("booking already disputed")

	// ErrNoCompletedPayment means no completed payment exists for the
	// booking being refunded.
	ErrNoCompletedPayment = errors.New("no completed payment for booking")

	// ErrPastSession means a reschedule targeted a date/time strictly in
	// the past.
	ErrPastSession = errors.New("session time is in the past")

	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrVersionConflict means a concurrent writer won the optimistic
	// version check; the operation may be retried.
	ErrVersionConflict = errors.New("version conflict")

	// ErrGatewayUnavailable means the payment gateway rejected or failed
	// an operation. The caller decides whether retry is safe.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
