package errors

import "errors"

var (
	ErrShowNotFound = errors.New("show not found")

	ErrScreenNotFound = errors.New("screen not found")

	ErrBookingNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid ID format")

	ErrInvalidSeat = errors.New("invalid seat identifier")

	ErrNoTier = errors.New("seat has no resolvable tier")
)
